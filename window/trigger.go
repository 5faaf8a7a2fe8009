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

	"github.com/nebulastream-go/corestream/agg"
)

// TriggeredSlice is a global-store slice ready for the downstream
// slice-merge task.
type TriggeredSlice[V any, S any] struct {
	Slice Slice
	Keyed *KeyedState[V, S]
	NonKd *NonKeyedState[V, S]
}

// Handler is a watermark-driven trigger: it tracks the last-seen
// watermark per worker, computes minWatermark, and on
// each scan-close promotes every slice whose end has fallen at or
// below minWatermark into the global store, emitting a
// TriggeredSlice for each.
type Handler[V any, S any] struct {
	fn              agg.Function[V, S]
	assigner        Assigner
	keyed           bool
	buckets         int
	allowedLateness int64

	mu         sync.Mutex
	watermarks map[int]int64 // workerID -> last-seen watermark
	global     *SliceStore[V, S]
	perWorker  map[int]*SliceStore[V, S]
}

// NewHandler builds a trigger handler. keyed selects whether records
// are pre-aggregated per key (KeyedState) or as one value
// (NonKeyedState); buckets only matters when keyed is true.
func NewHandler[V any, S any](fn agg.Function[V, S], assigner Assigner, keyed bool, buckets int, allowedLateness int64) *Handler[V, S] {
	return &Handler[V, S]{
		fn:              fn,
		assigner:        assigner,
		keyed:           keyed,
		buckets:         buckets,
		allowedLateness: allowedLateness,
		watermarks:      make(map[int]int64),
		global:          NewSliceStore[V, S](),
		perWorker:       make(map[int]*SliceStore[V, S]),
	}
}

func (h *Handler[V, S]) workerStore(workerID int) *SliceStore[V, S] {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.perWorker[workerID]
	if !ok {
		s = NewSliceStore[V, S]()
		h.perWorker[workerID] = s
	}
	return s
}

// LiftKeyed applies one record's (key, value, eventTime) to every
// slice it is assigned to, in the given worker's thread-local store.
func (h *Handler[V, S]) LiftKeyed(workerID int, key string, value V, eventTime int64) {
	store := h.workerStore(workerID)
	for _, sl := range h.assigner.Assign(eventTime) {
		store.FindOrCreateKeyed(sl, h.fn, h.buckets).Lift(key, value)
	}
}

// LiftNonKeyed is LiftKeyed's non-keyed counterpart.
func (h *Handler[V, S]) LiftNonKeyed(workerID int, value V, eventTime int64) {
	store := h.workerStore(workerID)
	for _, sl := range h.assigner.Assign(eventTime) {
		store.FindOrCreateNonKeyed(sl, h.fn).Lift(value)
	}
}

// AdvanceWatermark records workerID's newest watermark. Call on every
// scan-close.
func (h *Handler[V, S]) AdvanceWatermark(workerID int, watermark int64) {
	h.mu.Lock()
	if cur, ok := h.watermarks[workerID]; !ok || watermark > cur {
		h.watermarks[workerID] = watermark
	}
	h.mu.Unlock()
}

// minWatermark computes the minimum watermark across all known
// workers; a worker that has never reported one does not gate the
// minimum (treated as having advanced past everything, matching
// "workers with no input never block triggering").
func (h *Handler[V, S]) minWatermark() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	min := int64(1<<63 - 1)
	seen := false
	for _, wm := range h.watermarks {
		seen = true
		if wm < min {
			min = wm
		}
	}
	if !seen {
		return 0
	}
	return min
}

// Trigger combines every worker's ready slices (sliceEnd <=
// minWatermark) into the global store and returns the set of newly
// triggered global slices. Idempotent per slice: calling Trigger twice
// in a row without new data yields no duplicates (invariant 3).
func (h *Handler[V, S]) Trigger() []TriggeredSlice[V, S] {
	wm := h.minWatermark()

	h.mu.Lock()
	workers := make([]*SliceStore[V, S], 0, len(h.perWorker))
	for _, s := range h.perWorker {
		workers = append(workers, s)
	}
	h.mu.Unlock()

	merged := make(map[int64]*SliceRecord[V, S])
	for _, store := range workers {
		for _, rec := range store.Ready(wm) {
			dst, ok := merged[rec.Slice.Start]
			if !ok {
				dst = &SliceRecord[V, S]{Slice: rec.Slice}
				if h.keyed {
					dst.Keyed = NewKeyedState(h.fn, h.buckets)
				} else {
					dst.NonKeyed = NewNonKeyedState(h.fn)
				}
				merged[rec.Slice.Start] = dst
			}
			if h.keyed {
				dst.Keyed.Merge(rec.Keyed)
			} else {
				dst.NonKeyed.Merge(rec.NonKeyed)
			}
		}
		for _, rec := range store.Ready(wm) {
			store.Remove(rec.Slice.Start)
		}
	}

	var out []TriggeredSlice[V, S]
	for _, dst := range merged {
		if h.keyed {
			h.global.FindOrCreateKeyed(dst.Slice, h.fn, h.buckets).Merge(dst.Keyed)
		} else {
			h.global.FindOrCreateNonKeyed(dst.Slice, h.fn).Merge(dst.NonKeyed)
		}
		out = append(out, TriggeredSlice[V, S]{Slice: dst.Slice, Keyed: dst.Keyed, NonKd: dst.NonKeyed})
	}
	return out
}

// DeleteSlices batch-removes slices from the global store whose end
// plus allowedLateness has fallen below watermark: deleteSlices(
// watermark, sequence, origin). sequence and origin are accepted for
// API-compatibility with per-origin bookkeeping but this core tracks a
// single global store per handler.
func (h *Handler[V, S]) DeleteSlices(watermark int64, sequence uint64, origin uint64) {
	for _, start := range h.global.All() {
		rec, ok := h.global.byStart[start]
		if ok && rec.Slice.End+h.allowedLateness < watermark {
			h.global.Remove(start)
		}
	}
}

// GlobalSlices exposes the global store's contents for tests and
// downstream emit.
func (h *Handler[V, S]) GlobalSlices() []TriggeredSlice[V, S] {
	var out []TriggeredSlice[V, S]
	for _, start := range h.global.All() {
		rec := h.global.byStart[start]
		out = append(out, TriggeredSlice[V, S]{Slice: rec.Slice, Keyed: rec.Keyed, NonKd: rec.NonKeyed})
	}
	return out
}
