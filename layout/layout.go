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

package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrOutOfBounds is returned by calcOffset/read/write/push operations
// that would access a row or field past the bound buffer's capacity.
var ErrOutOfBounds = errors.New("layout: access out of bounds")

// Kind selects row-major or column-major physical layout.
type Kind int

const (
	RowLayout Kind = iota
	ColumnLayout
)

// Layout computes `(rowIndex, fieldIndex) -> byteOffset` for a given
// Schema and a fixed buffer capacity:
//
//	row:    rowIndex*tupleWidth + Σ₀…fieldIndex-1 fieldWidth
//	column: Σ₀…fieldIndex-1 capacity*fieldWidth + rowIndex*fieldWidth
//	        where capacity = floor(bufferSize / tupleWidth)
type Layout struct {
	schema     *Schema
	kind       Kind
	bufferSize int
	capacity   int // max rows storable in one buffer of bufferSize
}

// NewLayout builds a Layout for the given schema, kind, and buffer
// capacity in bytes.
func NewLayout(schema *Schema, kind Kind, bufferSize int) *Layout {
	l := &Layout{schema: schema, kind: kind, bufferSize: bufferSize}
	if schema.TupleWidthBytes() > 0 {
		l.capacity = bufferSize / schema.TupleWidthBytes()
	}
	return l
}

// Schema returns the layout's schema.
func (l *Layout) Schema() *Schema { return l.schema }

// Kind returns whether this is a row or column layout.
func (l *Layout) Kind() Kind { return l.kind }

// Capacity is the maximum number of rows a buffer of this layout's
// bufferSize can hold.
func (l *Layout) Capacity() int { return l.capacity }

// CalcOffset computes the byte offset of (rowIndex, fieldIndex). If
// bounded is true, it returns ErrOutOfBounds for any access that would
// read or write past the buffer's capacity.
func (l *Layout) CalcOffset(rowIndex, fieldIndex int, bounded bool) (int, error) {
	if fieldIndex < 0 || fieldIndex >= len(l.schema.fields) {
		return 0, fmt.Errorf("%w: field index %d", ErrOutOfBounds, fieldIndex)
	}
	if bounded && (rowIndex < 0 || rowIndex >= l.capacity) {
		return 0, fmt.Errorf("%w: row index %d (capacity %d)", ErrOutOfBounds, rowIndex, l.capacity)
	}
	fw := l.schema.fieldWidth(fieldIndex)
	var off int
	switch l.kind {
	case RowLayout:
		off = rowIndex*l.schema.TupleWidthBytes() + l.schema.rowFieldOffset(fieldIndex)
	case ColumnLayout:
		off = l.capacity*l.schema.rowFieldOffset(fieldIndex) + rowIndex*fw
		// column offset uses Σ capacity*fieldWidth_i for i<fieldIndex;
		// rowFieldOffset is a row-layout prefix sum of widths, which
		// is exactly Σ fieldWidth_i for i<fieldIndex, so multiplying
		// by capacity gives the column-layout prefix sum required.
	}
	if bounded && off+fw > l.bufferSize {
		return 0, fmt.Errorf("%w: offset %d+%d exceeds buffer size %d", ErrOutOfBounds, off, fw, l.bufferSize)
	}
	return off, nil
}

// BoundBuffer binds a raw byte slice (typically buffer.TupleBuffer.Bytes())
// to this layout so records can be pushed and read through it.
type BoundBuffer struct {
	layout  *Layout
	data    []byte
	numRows int
	bounded bool
}

// Bind attaches this layout to a backing byte slice. bounded controls
// whether subsequent Push/Read calls check capacity, configurable
// per-binding.
func (l *Layout) Bind(data []byte, bounded bool) *BoundBuffer {
	return &BoundBuffer{layout: l, data: data, bounded: bounded}
}

// NumRows reports how many rows have been pushed into this binding.
func (bb *BoundBuffer) NumRows() int { return bb.numRows }

// Push appends a record at the next free row, if any, and returns
// false,nil if the buffer is full (bounded) rather than erroring.
func (bb *BoundBuffer) Push(values []Value) (ok bool, err error) {
	row := bb.numRows
	if bb.bounded && row >= bb.layout.capacity {
		return false, nil
	}
	for fi, v := range values {
		if err := bb.writeField(row, fi, v); err != nil {
			return false, err
		}
	}
	bb.numRows++
	return true, nil
}

// Read returns the typed tuple at rowIndex.
func (bb *BoundBuffer) Read(rowIndex int) ([]Value, error) {
	fields := bb.layout.schema.Fields()
	out := make([]Value, len(fields))
	for fi := range fields {
		v, err := bb.readField(rowIndex, fi)
		if err != nil {
			return nil, err
		}
		out[fi] = v
	}
	return out, nil
}

// Value is a typed accessor result: exactly one of the typed fields is
// meaningful, selected by Type.
type Value struct {
	Type  FieldType
	I64   int64
	U64   uint64
	F64   float64
	Bytes []byte // FixedChar payload, or VarData payload
}

func (bb *BoundBuffer) writeField(row, fieldIndex int, v Value) error {
	off, err := bb.layout.CalcOffset(row, fieldIndex, bb.bounded)
	if err != nil {
		return err
	}
	f, _ := bb.layout.schema.FieldByIndex(fieldIndex)
	switch f.Type {
	case Int8:
		bb.data[off] = byte(v.I64)
	case Uint8:
		bb.data[off] = byte(v.U64)
	case Int16:
		binary.LittleEndian.PutUint16(bb.data[off:], uint16(v.I64))
	case Uint16:
		binary.LittleEndian.PutUint16(bb.data[off:], uint16(v.U64))
	case Int32:
		binary.LittleEndian.PutUint32(bb.data[off:], uint32(v.I64))
	case Uint32:
		binary.LittleEndian.PutUint32(bb.data[off:], uint32(v.U64))
	case Float32:
		binary.LittleEndian.PutUint32(bb.data[off:], math.Float32bits(float32(v.F64)))
	case Int64:
		binary.LittleEndian.PutUint64(bb.data[off:], uint64(v.I64))
	case Uint64:
		binary.LittleEndian.PutUint64(bb.data[off:], v.U64)
	case Float64:
		binary.LittleEndian.PutUint64(bb.data[off:], math.Float64bits(v.F64))
	case FixedChar:
		n := copy(bb.data[off:off+f.Width], v.Bytes)
		for ; n < f.Width; n++ {
			bb.data[off+n] = 0
		}
	case VarData:
		return errVarDataNeedsArena
	}
	return nil
}

var errVarDataNeedsArena = errors.New("layout: variable-size fields require an arena-backed writer")

func (bb *BoundBuffer) readField(row, fieldIndex int) (Value, error) {
	off, err := bb.layout.CalcOffset(row, fieldIndex, bb.bounded)
	if err != nil {
		return Value{}, err
	}
	f, _ := bb.layout.schema.FieldByIndex(fieldIndex)
	switch f.Type {
	case Int8:
		return Value{Type: f.Type, I64: int64(int8(bb.data[off]))}, nil
	case Uint8:
		return Value{Type: f.Type, U64: uint64(bb.data[off])}, nil
	case Int16:
		return Value{Type: f.Type, I64: int64(int16(binary.LittleEndian.Uint16(bb.data[off:])))}, nil
	case Uint16:
		return Value{Type: f.Type, U64: uint64(binary.LittleEndian.Uint16(bb.data[off:]))}, nil
	case Int32:
		return Value{Type: f.Type, I64: int64(int32(binary.LittleEndian.Uint32(bb.data[off:])))}, nil
	case Uint32:
		return Value{Type: f.Type, U64: uint64(binary.LittleEndian.Uint32(bb.data[off:]))}, nil
	case Float32:
		return Value{Type: f.Type, F64: float64(math.Float32frombits(binary.LittleEndian.Uint32(bb.data[off:])))}, nil
	case Int64:
		return Value{Type: f.Type, I64: int64(binary.LittleEndian.Uint64(bb.data[off:]))}, nil
	case Uint64:
		return Value{Type: f.Type, U64: binary.LittleEndian.Uint64(bb.data[off:])}, nil
	case Float64:
		return Value{Type: f.Type, F64: math.Float64frombits(binary.LittleEndian.Uint64(bb.data[off:]))}, nil
	case FixedChar:
		buf := make([]byte, f.Width)
		copy(buf, bb.data[off:off+f.Width])
		return Value{Type: f.Type, Bytes: buf}, nil
	case VarData:
		return Value{}, errVarDataNeedsArena
	}
	return Value{}, fmt.Errorf("layout: unsupported field type %v", f.Type)
}
