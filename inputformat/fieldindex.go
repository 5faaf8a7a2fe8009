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

package inputformat

import "bytes"

// FieldIndexFunction maps a record's field index to its byte range
// within that record. For CSV this splits on a field separator;
// binary formats would instead carry fixed or length-prefixed offsets,
// but this core only needs to support the text format its test suite
// exercises.
type FieldIndexFunction struct {
	ranges [][2]int // [start, end) per field, in record order
}

// IndexCSVRecord splits record on sep into field byte ranges.
func IndexCSVRecord(record []byte, sep byte) FieldIndexFunction {
	var fif FieldIndexFunction
	start := 0
	for {
		i := bytes.IndexByte(record[start:], sep)
		if i < 0 {
			fif.ranges = append(fif.ranges, [2]int{start, len(record)})
			break
		}
		end := start + i
		fif.ranges = append(fif.ranges, [2]int{start, end})
		start = end + 1
	}
	return fif
}

// NumFields reports how many fields this record was indexed into.
func (f FieldIndexFunction) NumFields() int { return len(f.ranges) }

// ErrFieldOutOfRange is returned by Field when fieldIndex is not
// covered by the index: a decode error where a field index function
// points past the buffer.
var ErrFieldOutOfRange = errOutOfRange{}

type errOutOfRange struct{}

func (errOutOfRange) Error() string { return "inputformat: field index out of range" }

// Field returns the raw bytes of one field of record, as located by
// fif.
func (f FieldIndexFunction) Field(record []byte, fieldIndex int) ([]byte, error) {
	if fieldIndex < 0 || fieldIndex >= len(f.ranges) {
		return nil, ErrFieldOutOfRange
	}
	r := f.ranges[fieldIndex]
	if r[1] > len(record) {
		return nil, ErrFieldOutOfRange
	}
	return record[r[0]:r[1]], nil
}

// ReadSpanningRecord reconstructs a projected view of a spanning
// record's fields from its already-assembled arena bytes:
// readSpanningRecord(projectionFields, basePtr, rowIndex, meta, fif,
// arena). rowIndex is always 0 here since a spanning record's
// reconstruction produces exactly one logical record per arena
// allocation.
func ReadSpanningRecord(arena []byte, sep byte, projectionFields []int) ([][]byte, error) {
	fif := IndexCSVRecord(arena, sep)
	out := make([][]byte, len(projectionFields))
	for i, fieldIdx := range projectionFields {
		v, err := fif.Field(arena, fieldIdx)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
