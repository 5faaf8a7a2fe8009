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
// Package window implements slice-based keyed and non-keyed windowed
// aggregation: tumbling/sliding slice assignment, watermark-driven
// triggering, and the per-worker pre-aggregation hash table.
package window

// Assigner computes the slice boundaries a timestamp belongs to.
type Assigner interface {
	// Assign returns every [start, end) slice that covers t.
	Assign(t int64) []Slice
}

// Slice is a half-open time interval [Start, End).
type Slice struct {
	Start int64
	End   int64
}

// Tumbling assigns t to exactly one slice [floor(t/S)*S, +S).
type Tumbling struct {
	Size int64
}

func (tw Tumbling) Assign(t int64) []Slice {
	start := floorDiv(t, tw.Size) * tw.Size
	return []Slice{{Start: start, End: start + tw.Size}}
}

// Sliding assigns t to every slice [k*D, k*D+S) with k*D <= t < k*D+S.
type Sliding struct {
	Size int64
	Step int64
}

func (sw Sliding) Assign(t int64) []Slice {
	if sw.Step <= 0 {
		sw.Step = sw.Size
	}
	// k ranges over every step-multiple whose window covers t:
	// k*D <= t < k*D+S  =>  (t-S)/D < k <= t/D
	kMax := floorDiv(t, sw.Step)
	kMin := floorDiv(t-sw.Size+1, sw.Step)
	var out []Slice
	for k := kMin; k <= kMax; k++ {
		start := k * sw.Step
		end := start + sw.Size
		if start <= t && t < end {
			out = append(out, Slice{Start: start, End: end})
		}
	}
	return out
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
