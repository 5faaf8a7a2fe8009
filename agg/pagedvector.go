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
// Package agg implements the decomposable aggregation contract:
// lift/combine/lower/reset over Count, Sum, Min, Max, Avg and a
// reservoir-sample variant, plus the paged-vector storage both
// reservoir sampling and the join package build on.
package agg

// PagedVector is an append-only sequence of fixed-size pages of
// records, addressable by (pageIndex, offsetInPage). Grounded on
// sorting.rowsWriter's page-chunking discipline (sorting/rows_writer.go),
// adapted here to a generic in-memory page chain rather than an
// on-disk writer.
type PagedVector[T any] struct {
	pageSize int
	pages    [][]T
}

// NewPagedVector creates a paged vector whose pages hold pageSize
// records each.
func NewPagedVector[T any](pageSize int) *PagedVector[T] {
	if pageSize <= 0 {
		pageSize = 1024
	}
	return &PagedVector[T]{pageSize: pageSize}
}

// Len returns the total number of records appended so far.
func (p *PagedVector[T]) Len() int {
	if len(p.pages) == 0 {
		return 0
	}
	full := (len(p.pages) - 1) * p.pageSize
	return full + len(p.pages[len(p.pages)-1])
}

// Append adds a record, allocating a new page when the last one is
// full.
func (p *PagedVector[T]) Append(v T) {
	if len(p.pages) == 0 || len(p.pages[len(p.pages)-1]) == p.pageSize {
		p.pages = append(p.pages, make([]T, 0, p.pageSize))
	}
	last := len(p.pages) - 1
	p.pages[last] = append(p.pages[last], v)
}

// At returns the record at a flat index, computing (pageIndex,
// offsetInPage) internally.
func (p *PagedVector[T]) At(index int) T {
	pageIndex := index / p.pageSize
	offset := index % p.pageSize
	return p.pages[pageIndex][offset]
}

// Set overwrites the record at a flat index in place, used by
// reservoir sampling's replacement step.
func (p *PagedVector[T]) Set(index int, v T) {
	pageIndex := index / p.pageSize
	offset := index % p.pageSize
	p.pages[pageIndex][offset] = v
}

// Pages exposes the underlying page slices for Concat / iteration by
// callers such as join build sides.
func (p *PagedVector[T]) Pages() [][]T { return p.pages }

// Concat appends another paged vector's pages onto this one,
// implementing the "combine concatenates pages" rule for Reservoir
// and for join build-side merging.
func (p *PagedVector[T]) Concat(other *PagedVector[T]) {
	for _, page := range other.pages {
		for _, v := range page {
			p.Append(v)
		}
	}
}

// ToSlice materializes the paged vector into a single contiguous
// slice, used by lower() to return the sample as a variable-sized
// array reference.
func (p *PagedVector[T]) ToSlice() []T {
	out := make([]T, 0, p.Len())
	for _, page := range p.pages {
		out = append(out, page...)
	}
	return out
}
