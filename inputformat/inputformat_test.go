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

import (
	"testing"

	"github.com/nebulastream-go/corestream/shredder"
)

func TestCSVIndexerFindsDelimiters(t *testing.T) {
	idx := NewCSVIndexer().Index([]byte("a,1\nb,2\nc,3\n"))
	if len(idx.Delimiters) != 3 {
		t.Fatalf("expected 3 delimiters, got %d: %v", len(idx.Delimiters), idx.Delimiters)
	}
	if idx.FirstDelim != 3 || idx.LastDelim != 11 {
		t.Fatalf("got first=%d last=%d", idx.FirstDelim, idx.LastDelim)
	}
}

func TestFieldIndexFunctionSplitsFields(t *testing.T) {
	fif := IndexCSVRecord([]byte("alice,30,engineer"), ',')
	if fif.NumFields() != 3 {
		t.Fatalf("expected 3 fields, got %d", fif.NumFields())
	}
	name, err := fif.Field([]byte("alice,30,engineer"), 0)
	if err != nil || string(name) != "alice" {
		t.Fatalf("got %q, err %v", name, err)
	}
	age, err := fif.Field([]byte("alice,30,engineer"), 1)
	if err != nil || string(age) != "30" {
		t.Fatalf("got %q, err %v", age, err)
	}
	if _, err := fif.Field([]byte("alice,30,engineer"), 5); err != ErrFieldOutOfRange {
		t.Fatalf("expected ErrFieldOutOfRange, got %v", err)
	}
}

// TestScannerResolvesSpanningCSV checks spanning-record resolution at
// the scanner layer: buffer 3 has no newline, 2 and 4 do; arrival
// order 4,2,6,1,3,5 should yield exactly one spanning record
// composed of tail(buf2) + buf3 + head(buf4).
func TestScannerResolvesSpanningCSV(t *testing.T) {
	buffers := map[uint64][]byte{
		1: []byte("p,1\nq,2\n"),
		2: []byte("r,3\ns,4\nSPANST"),
		3: []byte("ART-middle-"),
		4: []byte("ARTEND\nt,5\n"),
		5: []byte("u,6\nv,7\n"),
		6: []byte("w,8\nx,9\n"),
	}
	s := NewScanner(shredder.New(1, 64), NewCSVIndexer())

	order := []uint64{4, 2, 6, 1, 3, 5}
	var spanning [][]byte
	for _, seq := range order {
		res, err := s.Submit(seq, buffers[seq])
		if err != nil {
			t.Fatalf("submit %d: %v", seq, err)
		}
		if res.Spanning != nil {
			spanning = append(spanning, res.Spanning)
		}
	}

	if len(spanning) != 1 {
		t.Fatalf("expected exactly one spanning record, got %d: %v", len(spanning), spanning)
	}
	want := "SPANSTART-middle-ARTEND"
	if string(spanning[0]) != want {
		t.Fatalf("got %q, want %q", spanning[0], want)
	}
}

// TestScannerEmitsLeadingHeadRecord guards against dropping the very
// first record of a stream: a buffer that begins on a record boundary
// has a non-empty head before its first delimiter, but since it is
// the first buffer of the stream that head is a complete record, not
// a partial fragment waiting on an earlier buffer that will never
// arrive.
func TestScannerEmitsLeadingHeadRecord(t *testing.T) {
	s := NewScanner(shredder.New(1, 64), NewCSVIndexer())
	res, err := s.Submit(1, []byte("1,307\n4,6\n11,30\n1,870\n"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(res.Complete) != 4 {
		t.Fatalf("expected 4 complete records, got %d: %v", len(res.Complete), res.Complete)
	}
	if string(res.Complete[0]) != "1,307" {
		t.Fatalf("expected leading record %q, got %q", "1,307", res.Complete[0])
	}
}

func TestScannerRequiresRepeatOutsideWindow(t *testing.T) {
	s := NewScanner(shredder.New(1, 2), NewCSVIndexer())
	_, err := s.Submit(500, []byte("a,1\n"))
	if err != ErrRequiresRepeat {
		t.Fatalf("expected ErrRequiresRepeat, got %v", err)
	}
}

func TestScannerEmitsCompleteInBufferRecords(t *testing.T) {
	s := NewScanner(shredder.New(1, 64), NewCSVIndexer())
	res, err := s.Submit(1, []byte("\na,1\nb,2\nc,3\n"))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(res.Complete) != 3 {
		t.Fatalf("expected 3 complete records, got %d: %v", len(res.Complete), res.Complete)
	}
	if string(res.Complete[0]) != "a,1" || string(res.Complete[2]) != "c,3" {
		t.Fatalf("unexpected complete records: %v", res.Complete)
	}
}
