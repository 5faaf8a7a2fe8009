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

package agg

import "math/rand"

// ReservoirState holds the reservoir itself plus the running count of
// records observed, which Lift uses for Algorithm R's replacement
// probability; Combine concatenates reservoirs and sums the counts.
type ReservoirState[T any] struct {
	reservoir *PagedVector[T]
	seen      int64
}

// Reservoir implements classic reservoir sampling (Algorithm R) with N
// slots, backed by a paged vector and a fixed-seed RNG so test runs
// are reproducible: the seed is fixed per function instance.
type Reservoir[T any] struct {
	N        int
	Seed     int64
	pageSize int
}

// NewReservoir builds a Reservoir[T] aggregation with a fixed seed;
// pageSize sizes the backing paged vector's pages.
func NewReservoir[T any](n int, seed int64, pageSize int) *Reservoir[T] {
	return &Reservoir[T]{N: n, Seed: seed, pageSize: pageSize}
}

func (r *Reservoir[T]) Reset() ReservoirState[T] {
	return ReservoirState[T]{reservoir: NewPagedVector[T](r.pageSize)}
}

// Lift applies the k-th observed record (1-based, per-state) to the
// reservoir: append while under capacity, otherwise replace slot
// uniform(0, k) with probability N/k.
func (r *Reservoir[T]) Lift(s ReservoirState[T], v T) ReservoirState[T] {
	s.seen++
	k := s.seen
	if int(k) <= r.N {
		s.reservoir.Append(v)
		return s
	}
	rng := rand.New(rand.NewSource(r.Seed + k))
	pos := rng.Int63n(k)
	if int(pos) < r.N {
		s.reservoir.Set(int(pos), v)
	}
	return s
}

// Combine concatenates the two reservoirs' pages and sums their
// observed counts. This is an approximation of a single-stream
// reservoir merge: exact
// statistically-uniform merging of independently-sampled reservoirs
// requires weighted resampling, which this core does not implement
// (see DESIGN.md).
func (r *Reservoir[T]) Combine(a, b ReservoirState[T]) ReservoirState[T] {
	merged := r.Reset()
	merged.reservoir.Concat(a.reservoir)
	merged.reservoir.Concat(b.reservoir)
	merged.seen = a.seen + b.seen
	return merged
}

// Lower returns the sample as a variable-sized array reference.
func (r *Reservoir[T]) Lower(s ReservoirState[T]) []T {
	return s.reservoir.ToSlice()
}

func (r *Reservoir[T]) StateSize() int {
	var z T
	return int(approxSizeof(z))*r.N + 16
}

// approxSizeof estimates a record's footprint for StateSize reporting
// without reflection; composite record types fall back to a
// conservative estimate since their real size depends on variable-size
// fields resolved at the layout level, not here.
func approxSizeof(v any) uintptr {
	switch v.(type) {
	case int64, float64, uint64:
		return 8
	case int32, float32, uint32:
		return 4
	default:
		return 16
	}
}
