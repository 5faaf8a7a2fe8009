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

package join

import "testing"

type lrec struct {
	ID  int
	Val string
}

type rrec struct {
	ID  int
	Amt int
}

func TestNestedLoopJoinCartesianFiltered(t *testing.T) {
	h := NewHandler[lrec, rrec](func(l lrec, r rrec) bool { return l.ID == r.ID }, 8)

	h.BuildLeft(0, lrec{ID: 1, Val: "a"})
	h.BuildLeft(0, lrec{ID: 2, Val: "b"})
	h.BuildRight(0, rrec{ID: 1, Amt: 100})
	h.BuildRight(0, rrec{ID: 2, Amt: 200})
	h.BuildRight(0, rrec{ID: 3, Amt: 300})

	pairs := h.Trigger(0)
	if len(pairs) != 2 {
		t.Fatalf("expected 2 matching pairs, got %d: %v", len(pairs), pairs)
	}
	seen := map[int]int{}
	for _, p := range pairs {
		if p.Left.ID != p.Right.ID {
			t.Fatalf("mismatched join pair: %+v", p)
		}
		seen[p.Left.ID] = p.Right.Amt
	}
	if seen[1] != 100 || seen[2] != 200 {
		t.Fatalf("unexpected pairing: %v", seen)
	}
}

func TestTriggerReleasesSlice(t *testing.T) {
	h := NewHandler[lrec, rrec](func(l lrec, r rrec) bool { return true }, 8)
	h.BuildLeft(0, lrec{ID: 1})
	h.BuildRight(0, rrec{ID: 1})
	h.Trigger(0)
	// a second trigger on the same slice start should find nothing,
	// since the slice was deleted on first trigger.
	if got := h.Trigger(0); got != nil {
		t.Fatalf("expected nil after slice release, got %v", got)
	}
}

func TestConcurrentSliceCreationIsSingleAllocation(t *testing.T) {
	h := NewHandler[lrec, rrec](func(l lrec, r rrec) bool { return true }, 8)
	done := make(chan struct{})
	for i := 0; i < 16; i++ {
		go func(i int) {
			h.BuildLeft(5000, lrec{ID: i})
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < 16; i++ {
		<-done
	}
	s := h.getSliceByTimestampOrCreateIt(5000)
	if s.left.Len() != 16 {
		t.Fatalf("expected all 16 concurrent builds to land in one slice, got %d", s.left.Len())
	}
}
