// Copyright (C) 2026 The Corestream Authors.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
// Package inputformat implements the per-source raw-input format scan:
// the format-specific indexer that locates tuple delimiters in a raw
// buffer, coordinates with the shredder package to resolve
// buffer-spanning tuples, and reconstructs those spanning records from
// an arena.
package inputformat

import "bytes"

// Indexer locates tuple boundaries in one raw buffer. It reports the
// offsets of every delimiter found plus, redundantly but explicitly,
// the first and last (the values the sequence shredder needs).
type Indexer interface {
	Index(raw []byte) Index
}

// Index is one buffer's delimiter positions.
type Index struct {
	Delimiters  []int // every delimiter offset, ascending
	FirstDelim  int   // -1 if none
	LastDelim   int   // -1 if none
}

// CSVIndexer indexes a newline-delimited record stream (one tuple per
// line). Field splitting within a record is left to the Field Index
// Function (fieldindex.go); this type only locates record boundaries.
type CSVIndexer struct {
	Delimiter byte
}

// NewCSVIndexer builds an indexer using '\n' as the record delimiter.
func NewCSVIndexer() CSVIndexer { return CSVIndexer{Delimiter: '\n'} }

func (c CSVIndexer) Index(raw []byte) Index {
	idx := Index{FirstDelim: -1, LastDelim: -1}
	off := 0
	for {
		i := bytes.IndexByte(raw[off:], c.Delimiter)
		if i < 0 {
			break
		}
		pos := off + i
		idx.Delimiters = append(idx.Delimiters, pos)
		off = pos + 1
	}
	if len(idx.Delimiters) > 0 {
		idx.FirstDelim = idx.Delimiters[0]
		idx.LastDelim = idx.Delimiters[len(idx.Delimiters)-1]
	}
	return idx
}
