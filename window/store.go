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

package window

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/nebulastream-go/corestream/agg"
)

// NonKeyedState is the non-keyed pre-aggregation variant: a single
// aggregation state instead of a hash map.
type NonKeyedState[V any, S any] struct {
	fn    agg.Function[V, S]
	state S
}

func NewNonKeyedState[V any, S any](fn agg.Function[V, S]) *NonKeyedState[V, S] {
	return &NonKeyedState[V, S]{fn: fn, state: fn.Reset()}
}

func (n *NonKeyedState[V, S]) Lift(v V)      { n.state = n.fn.Lift(n.state, v) }
func (n *NonKeyedState[V, S]) State() S      { return n.state }
func (n *NonKeyedState[V, S]) Merge(o *NonKeyedState[V, S]) {
	n.state = n.fn.Combine(n.state, o.state)
}

// SliceRecord is one worker's or the global store's bookkeeping for a
// single slice: its boundaries plus either keyed or non-keyed state.
// Exactly one of Keyed/NonKeyed is non-nil.
type SliceRecord[V any, S any] struct {
	Slice    Slice
	Keyed    *KeyedState[V, S]
	NonKeyed *NonKeyedState[V, S]
}

// SliceStore is the thread-local (per-worker) or global, slice-start
// ordered store mapping slice start to hash map (key -> per-key
// state). Kept as a sorted slice of slice starts (maintained via
// golang.org/x/exp/slices' BinarySearch/Insert/Delete) plus a map,
// since the store is walked in ascending slice-start order by the
// trigger.
type SliceStore[V any, S any] struct {
	mu      sync.Mutex
	byStart map[int64]*SliceRecord[V, S]
	starts  []int64 // kept sorted
}

func NewSliceStore[V any, S any]() *SliceStore[V, S] {
	return &SliceStore[V, S]{byStart: make(map[int64]*SliceRecord[V, S])}
}

// findSliceByTs returns the slice record for sl, creating it via
// newRecord on first sight.
func (s *SliceStore[V, S]) findSliceByTs(sl Slice, newRecord func() *SliceRecord[V, S]) *SliceRecord[V, S] {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.byStart[sl.Start]
	if ok {
		return rec
	}
	rec = newRecord()
	rec.Slice = sl
	s.byStart[sl.Start] = rec
	i, _ := slices.BinarySearch(s.starts, sl.Start)
	s.starts = slices.Insert(s.starts, i, sl.Start)
	return rec
}

// FindOrCreateKeyed is the keyed-aggregation entry point used by the
// scan/filter/map-then-aggregate pipeline's execute step.
func (s *SliceStore[V, S]) FindOrCreateKeyed(sl Slice, fn agg.Function[V, S], buckets int) *KeyedState[V, S] {
	rec := s.findSliceByTs(sl, func() *SliceRecord[V, S] {
		return &SliceRecord[V, S]{Keyed: NewKeyedState(fn, buckets)}
	})
	return rec.Keyed
}

// FindOrCreateNonKeyed is the non-keyed equivalent.
func (s *SliceStore[V, S]) FindOrCreateNonKeyed(sl Slice, fn agg.Function[V, S]) *NonKeyedState[V, S] {
	rec := s.findSliceByTs(sl, func() *SliceRecord[V, S] {
		return &SliceRecord[V, S]{NonKeyed: NewNonKeyedState(fn)}
	})
	return rec.NonKeyed
}

// Ready returns every slice record whose end is at or before
// watermark, in ascending slice-start order — the set a trigger should
// promote and remove.
func (s *SliceStore[V, S]) Ready(watermark int64) []*SliceRecord[V, S] {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*SliceRecord[V, S]
	for _, start := range s.starts {
		rec := s.byStart[start]
		if rec.Slice.End <= watermark {
			out = append(out, rec)
		}
	}
	return out
}

// Remove deletes the slice record starting at start, used by
// deleteSlices once the minimum watermark passes sliceEnd +
// allowedLateness.
func (s *SliceStore[V, S]) Remove(start int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byStart[start]; !ok {
		return
	}
	delete(s.byStart, start)
	if i, ok := slices.BinarySearch(s.starts, start); ok {
		s.starts = slices.Delete(s.starts, i, i+1)
	}
}

// All returns every slice start currently held, for tests and
// deleteSlices batch scans.
func (s *SliceStore[V, S]) All() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.starts))
	copy(out, s.starts)
	return out
}
