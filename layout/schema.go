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
// Package layout maps a logical tuple — an ordered sequence of named,
// typed fields — onto a byte layout (row or column major) within a
// buffer.Pool buffer, and computes the field offsets.
//
// Grounded on ion/symtab.go (dense slice + reverse-index map for name
// lookup) for Schema's field-lookup shape.
package layout

import (
	"errors"
	"fmt"
)

// FieldType is the concrete wire type of a schema field.
type FieldType int

const (
	Int8 FieldType = iota
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	// FixedChar is a fixed-size byte array; its width is carried
	// alongside the Field.
	FixedChar
	// VarData is a variable-size field; in-buffer storage is a
	// handle (offset, length) into a side arena, not an inline value.
	VarData
)

// Width returns the fixed in-buffer byte width of the type; for
// VarData that is the handle width (handleWidth).
func (t FieldType) Width(fixedCharWidth int) int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64:
		return 8
	case FixedChar:
		return fixedCharWidth
	case VarData:
		return handleWidth
	default:
		return 0
	}
}

// handleWidth is the in-buffer footprint of a variable-size field
// handle: a uint32 offset plus a uint32 length into the side arena.
const handleWidth = 8

// Field describes one named, typed column of a Schema.
type Field struct {
	Name  string
	Type  FieldType
	Width int // meaningful only for FixedChar; byte width of the array
}

func (f Field) byteWidth() int {
	if f.Type == FixedChar {
		return f.Type.Width(f.Width)
	}
	return f.Type.Width(0)
}

// ErrUnknownField is returned by FieldIndex when looking up a
// field name that is not part of the schema.
var ErrUnknownField = errors.New("layout: unknown field")

// Schema is an ordered sequence of named fields.
type Schema struct {
	fields     []Field
	index      map[string]int
	tupleWidth int
	offsets    []int // per-field byte offset within a row (prefix sums)
}

// NewSchema builds a Schema from an ordered field list, computing
// tupleWidthBytes and per-field prefix-sum offsets.
//
// Field offsets within a row are raw prefix sums of the unpadded
// field widths (no inter-field padding); the final tupleWidthBytes is
// padded up to a multiple of the widest field's width, a C-struct-style
// trailing padding convention (a schema (u8, u16, u32) occupies an
// 8-byte row: raw field sum is 7, padded to the next multiple of the
// widest field, 4, giving 8).
func NewSchema(fields []Field) *Schema {
	s := &Schema{
		fields:  append([]Field(nil), fields...),
		index:   make(map[string]int, len(fields)),
		offsets: make([]int, len(fields)),
	}
	off := 0
	maxWidth := 1
	for i, f := range s.fields {
		s.index[f.Name] = i
		s.offsets[i] = off
		w := f.byteWidth()
		off += w
		if w > maxWidth {
			maxWidth = w
		}
	}
	if rem := off % maxWidth; rem != 0 {
		off += maxWidth - rem
	}
	s.tupleWidth = off
	return s
}

// Fields returns the ordered field list.
func (s *Schema) Fields() []Field { return s.fields }

// TupleWidthBytes is the total row width in bytes.
func (s *Schema) TupleWidthBytes() int { return s.tupleWidth }

// FieldIndex resolves a field name to its ordinal position.
func (s *Schema) FieldIndex(name string) (int, error) {
	i, ok := s.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return i, nil
}

// FieldByIndex returns the Field at the given ordinal.
func (s *Schema) FieldByIndex(i int) (Field, error) {
	if i < 0 || i >= len(s.fields) {
		return Field{}, fmt.Errorf("%w: index %d", ErrUnknownField, i)
	}
	return s.fields[i], nil
}

// rowFieldOffset returns the byte offset of fieldIndex within one row,
// i.e. the prefix sum of preceding field widths.
func (s *Schema) rowFieldOffset(fieldIndex int) int {
	return s.offsets[fieldIndex]
}

func (s *Schema) fieldWidth(fieldIndex int) int {
	return s.fields[fieldIndex].byteWidth()
}
