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
// Package join implements a nested-loop join with a slicing strategy:
// one pair of paged vectors per slice for the left and right build
// sides, shared by all workers (not kept per worker), triggered into a
// cartesian-product emit pass once a slice's window closes.
package join

import (
	"sync"

	"github.com/nebulastream-go/corestream/agg"
)

// Predicate reports whether a left/right pair satisfies the join
// condition.
type Predicate[L any, R any] func(left L, right R) bool

// sliceSides holds one slice's build-side storage: a paged vector per
// side, shared by every worker and guarded by mu.
type sliceSides[L any, R any] struct {
	mu    sync.Mutex
	left  *agg.PagedVector[L]
	right *agg.PagedVector[R]
}

// Handler is the join runtime: a slice-keyed map of build sides, with
// getSliceByTimestampOrCreateIt serialised by the handler-wide mu (not
// a per-slice lock) to prevent duplicate allocation under concurrent
// workers.
type Handler[L any, R any] struct {
	pred     Predicate[L, R]
	pageSize int

	mu     sync.Mutex
	slices map[int64]*sliceSides[L, R]
}

// NewHandler builds a join handler for a window keyed by slice start.
func NewHandler[L any, R any](pred Predicate[L, R], pageSize int) *Handler[L, R] {
	return &Handler[L, R]{pred: pred, pageSize: pageSize, slices: make(map[int64]*sliceSides[L, R])}
}

// getSliceByTimestampOrCreateIt returns the build-side storage for the
// slice starting at sliceStart, allocating it on first use.
func (h *Handler[L, R]) getSliceByTimestampOrCreateIt(sliceStart int64) *sliceSides[L, R] {
	h.mu.Lock()
	s, ok := h.slices[sliceStart]
	if !ok {
		s = &sliceSides[L, R]{
			left:  agg.NewPagedVector[L](h.pageSize),
			right: agg.NewPagedVector[R](h.pageSize),
		}
		h.slices[sliceStart] = s
	}
	h.mu.Unlock()
	return s
}

// BuildLeft stores a left-side record into its slice.
func (h *Handler[L, R]) BuildLeft(sliceStart int64, rec L) {
	s := h.getSliceByTimestampOrCreateIt(sliceStart)
	s.mu.Lock()
	s.left.Append(rec)
	s.mu.Unlock()
}

// BuildRight stores a right-side record into its slice.
func (h *Handler[L, R]) BuildRight(sliceStart int64, rec R) {
	s := h.getSliceByTimestampOrCreateIt(sliceStart)
	s.mu.Lock()
	s.right.Append(rec)
	s.mu.Unlock()
}

// Pair is one emitted joined (left, right) record.
type Pair[L any, R any] struct {
	Left  L
	Right R
}

// Trigger emits the cartesian product of the slice's left x right
// sides filtered by the join predicate, then releases the slice's
// storage (a triggered slice is never re-fed).
func (h *Handler[L, R]) Trigger(sliceStart int64) []Pair[L, R] {
	h.mu.Lock()
	s, ok := h.slices[sliceStart]
	if ok {
		delete(h.slices, sliceStart)
	}
	h.mu.Unlock()
	if !ok {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	left := s.left.ToSlice()
	right := s.right.ToSlice()
	out := make([]Pair[L, R], 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			if h.pred(l, r) {
				out = append(out, Pair[L, R]{Left: l, Right: r})
			}
		}
	}
	return out
}
