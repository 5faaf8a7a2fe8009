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

import "golang.org/x/exp/constraints"

// Number is the set of field types Sum/Min/Max/Avg accept.
type Number interface {
	constraints.Integer | constraints.Float
}

// Function is the decomposable aggregation contract: lift folds one
// record's value into a state, combine merges two
// partial states from different workers/slices, lower extracts the
// user-visible result, reset restores the zero state. StateSize
// reports the approximate in-memory footprint of a State value; no
// other package of this module reads it.
type Function[V any, S any] interface {
	Lift(state S, value V) S
	Combine(a, b S) S
	Lower(state S) V
	Reset() S
	StateSize() int
}

// --- Count ---

// Count counts records; the running count is itself the state, so
// Count[V] satisfies Function[V, V] directly (V constrained to
// Number so the count can be carried in V's own zero/add).
type Count[V Number] struct{}

func (Count[V]) Lift(s V, _ V) V    { return s + 1 }
func (Count[V]) Combine(a, b V) V   { return a + b }
func (Count[V]) Lower(s V) V        { return s }
func (Count[V]) Reset() V           { return 0 }
func (Count[V]) StateSize() int     { var z V; return sizeOfNumber(z) }

// --- Sum ---

// Sum's running total is the state itself, so Sum[V] satisfies
// Function[V, V] directly.
type Sum[V Number] struct{}

func (Sum[V]) Lift(s V, v V) V    { return s + v }
func (Sum[V]) Combine(a, b V) V   { return a + b }
func (Sum[V]) Lower(s V) V        { return s }
func (Sum[V]) Reset() V           { return 0 }
func (Sum[V]) StateSize() int     { var z V; return sizeOfNumber(z) }

// --- Min ---

type minState[V Number] struct {
	val V
	set bool
}

type Min[V Number] struct{}

func (Min[V]) Lift(s minState[V], v V) minState[V] {
	if !s.set || v < s.val {
		s.val, s.set = v, true
	}
	return s
}
func (Min[V]) Combine(a, b minState[V]) minState[V] {
	if !a.set {
		return b
	}
	if !b.set {
		return a
	}
	if b.val < a.val {
		return b
	}
	return a
}
func (Min[V]) Lower(s minState[V]) V { return s.val }
func (Min[V]) Reset() minState[V]    { return minState[V]{} }
func (Min[V]) StateSize() int        { var z V; return sizeOfNumber(z) + 1 }

// --- Max ---

type maxState[V Number] struct {
	val V
	set bool
}

type Max[V Number] struct{}

func (Max[V]) Lift(s maxState[V], v V) maxState[V] {
	if !s.set || v > s.val {
		s.val, s.set = v, true
	}
	return s
}
func (Max[V]) Combine(a, b maxState[V]) maxState[V] {
	if !a.set {
		return b
	}
	if !b.set {
		return a
	}
	if b.val > a.val {
		return b
	}
	return a
}
func (Max[V]) Lower(s maxState[V]) V { return s.val }
func (Max[V]) Reset() maxState[V]    { return maxState[V]{} }
func (Max[V]) StateSize() int        { var z V; return sizeOfNumber(z) + 1 }

// --- Avg ---

// Avg is result-typed-only: Lower always produces a float64 mean
// regardless of V, so Avg[V] does not satisfy Function[V, avgState[V]]
// for V other than float64 and cannot be wired into window.NewHandler
// the way Count/Sum/Min/Max are. Truncating the mean back to V would
// silently lose precision for integer fields, so callers that need
// the average of an integer column should run it standalone (as the
// tests do) and read the float64 result directly, rather than through
// the generic Handler path.
type avgState[V Number] struct {
	total V
	count int64
}

type Avg[V Number] struct{}

func (Avg[V]) Lift(s avgState[V], v V) avgState[V] {
	s.total += v
	s.count++
	return s
}
func (Avg[V]) Combine(a, b avgState[V]) avgState[V] {
	return avgState[V]{a.total + b.total, a.count + b.count}
}
func (Avg[V]) Lower(s avgState[V]) float64 {
	if s.count == 0 {
		return 0
	}
	return float64(s.total) / float64(s.count)
}
func (Avg[V]) Reset() avgState[V] { return avgState[V]{} }
func (Avg[V]) StateSize() int     { var z V; return sizeOfNumber(z) + 8 }

func sizeOfNumber[V Number](_ V) int {
	var v V
	switch any(v).(type) {
	case int8, uint8:
		return 1
	case int16, uint16:
		return 2
	case int32, uint32, float32:
		return 4
	default:
		return 8
	}
}
