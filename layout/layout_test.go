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

import "testing"

// TestS1RowColumnOffsets checks row and column offset formulas for
// schema (u8,u16,u32), buffer size 4096, capacity 512:
// row offset(1,2)=11, column offset(1,2)=1540.
func TestS1RowColumnOffsets(t *testing.T) {
	schema := NewSchema([]Field{
		{Name: "f1", Type: Uint8},
		{Name: "f2", Type: Uint16},
		{Name: "f3", Type: Uint32},
	})
	if schema.TupleWidthBytes() != 8 {
		t.Fatalf("expected tuple width 8, got %d", schema.TupleWidthBytes())
	}

	row := NewLayout(schema, RowLayout, 4096)
	if row.Capacity() != 512 {
		t.Fatalf("expected capacity 512, got %d", row.Capacity())
	}
	off, err := row.CalcOffset(1, 2, true)
	if err != nil {
		t.Fatalf("row offset: %v", err)
	}
	if off != 11 {
		t.Fatalf("expected row offset 11, got %d", off)
	}

	col := NewLayout(schema, ColumnLayout, 4096)
	off, err = col.CalcOffset(1, 2, true)
	if err != nil {
		t.Fatalf("column offset: %v", err)
	}
	if off != 1540 {
		t.Fatalf("expected column offset 1540, got %d", off)
	}
}

func TestBoundsChecking(t *testing.T) {
	schema := NewSchema([]Field{{Name: "a", Type: Uint32}})
	l := NewLayout(schema, RowLayout, 16) // capacity 4
	if _, err := l.CalcOffset(4, 0, true); err == nil {
		t.Fatal("expected out-of-bounds error for row index at capacity")
	}
	if _, err := l.CalcOffset(3, 0, true); err != nil {
		t.Fatalf("expected row 3 to be in bounds: %v", err)
	}
	if _, err := l.CalcOffset(1000, 0, false); err != nil {
		t.Fatalf("unbounded access should not check capacity: %v", err)
	}
}

func TestPushReadRoundTrip(t *testing.T) {
	schema := NewSchema([]Field{
		{Name: "id", Type: Uint32},
		{Name: "value", Type: Int64},
	})
	l := NewLayout(schema, RowLayout, 4096)
	buf := make([]byte, 4096)
	bb := l.Bind(buf, true)

	for i := 0; i < 10; i++ {
		ok, err := bb.Push([]Value{
			{Type: Uint32, U64: uint64(i)},
			{Type: Int64, I64: int64(i * 100)},
		})
		if err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
		if !ok {
			t.Fatalf("push %d: expected success", i)
		}
	}
	for i := 0; i < 10; i++ {
		row, err := bb.Read(i)
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if row[0].U64 != uint64(i) || row[1].I64 != int64(i*100) {
			t.Fatalf("row %d mismatch: %+v", i, row)
		}
	}
}

func TestPushFullBufferFails(t *testing.T) {
	schema := NewSchema([]Field{{Name: "a", Type: Uint64}})
	l := NewLayout(schema, RowLayout, 16) // capacity 2
	buf := make([]byte, 16)
	bb := l.Bind(buf, true)
	for i := 0; i < 2; i++ {
		ok, err := bb.Push([]Value{{Type: Uint64, U64: uint64(i)}})
		if err != nil || !ok {
			t.Fatalf("push %d should succeed: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := bb.Push([]Value{{Type: Uint64, U64: 99}})
	if err != nil {
		t.Fatalf("push past capacity should fail gracefully, not error: %v", err)
	}
	if ok {
		t.Fatal("expected push past capacity to report failure")
	}
}

func TestColumnLayoutRoundTrip(t *testing.T) {
	schema := NewSchema([]Field{
		{Name: "a", Type: Uint16},
		{Name: "b", Type: Float64},
	})
	l := NewLayout(schema, ColumnLayout, 4096)
	buf := make([]byte, 4096)
	bb := l.Bind(buf, true)
	for i := 0; i < 5; i++ {
		_, err := bb.Push([]Value{
			{Type: Uint16, U64: uint64(i * 2)},
			{Type: Float64, F64: float64(i) + 0.5},
		})
		if err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	row, err := bb.Read(3)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if row[0].U64 != 6 || row[1].F64 != 3.5 {
		t.Fatalf("column round trip mismatch: %+v", row)
	}
}
