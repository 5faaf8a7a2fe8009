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

package trace

// Value is a tagged variant: either a concrete scalar (Kind selects
// which field is live) or a symbolic reference into the current
// trace, depending on whether the owning Context is tracing.
type Value struct {
	ctx      *Context // nil => always concrete, never traced
	symbolic bool
	ref      Ref
	kind     Kind
	i64      int64
	f64      float64
	boolean  bool
}

// ConstInt builds a concrete int64 value, usable with or without a
// tracing Context (pass nil ctx for fully untraced/concrete execution).
func ConstInt(ctx *Context, v int64) Value {
	val := Value{ctx: ctx, kind: KindInt64, i64: v}
	if ctx != nil && ctx.tracing {
		id := ctx.emitConst(KindInt64, v, 0)
		val.symbolic = true
		val.ref = ValRef(id)
	}
	return val
}

// ConstFloat builds a concrete float64 value.
func ConstFloat(ctx *Context, v float64) Value {
	val := Value{ctx: ctx, kind: KindFloat64, f64: v}
	if ctx != nil && ctx.tracing {
		id := ctx.emitConst(KindFloat64, 0, v)
		val.symbolic = true
		val.ref = ValRef(id)
	}
	return val
}

// ConstBool builds a concrete boolean value.
func ConstBool(ctx *Context, v bool) Value {
	val := Value{ctx: ctx, kind: KindBool, boolean: v}
	i := int64(0)
	if v {
		i = 1
	}
	if ctx != nil && ctx.tracing {
		id := ctx.emitConst(KindBool, i, 0)
		val.symbolic = true
		val.ref = ValRef(id)
	}
	return val
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsSymbolic() bool { return v.symbolic }

// Int64 returns the concrete int64 payload (meaningful only when the
// value was never symbolic, i.e. produced during untraced execution).
func (v Value) Int64() int64 { return v.i64 }

// Float64 returns the concrete float64 payload.
func (v Value) Float64() float64 { return v.f64 }

// Bool returns the concrete boolean payload.
func (v Value) Bool() bool { return v.boolean }

func (v Value) isTracing() bool { return v.ctx != nil && v.ctx.tracing }

func (v Value) binOp(other Value, op Opcode, concrete func(a, b Value) Value) (Value, error) {
	if !v.isTracing() {
		return concrete(v, other), nil
	}
	id, err := v.ctx.emitBinOp(op, v.ref, other.ref, v.kind)
	if err != nil {
		return Value{}, err
	}
	return Value{ctx: v.ctx, symbolic: true, ref: ValRef(id), kind: v.kind}, nil
}

func (v Value) Add(other Value) (Value, error) {
	return v.binOp(other, OpAdd, func(a, b Value) Value {
		return arith(a, b, func(x, y int64) int64 { return x + y }, func(x, y float64) float64 { return x + y })
	})
}

func (v Value) Sub(other Value) (Value, error) {
	return v.binOp(other, OpSub, func(a, b Value) Value {
		return arith(a, b, func(x, y int64) int64 { return x - y }, func(x, y float64) float64 { return x - y })
	})
}

func (v Value) Mul(other Value) (Value, error) {
	return v.binOp(other, OpMul, func(a, b Value) Value {
		return arith(a, b, func(x, y int64) int64 { return x * y }, func(x, y float64) float64 { return x * y })
	})
}

func (v Value) Div(other Value) (Value, error) {
	return v.binOp(other, OpDiv, func(a, b Value) Value {
		return arith(a, b, func(x, y int64) int64 { return x / y }, func(x, y float64) float64 { return x / y })
	})
}

func (v Value) And(other Value) (Value, error) {
	return v.binOp(other, OpAnd, func(a, b Value) Value {
		if a.kind == KindBool {
			return ConstBool(nil, a.boolean && b.boolean)
		}
		return ConstInt(nil, a.i64&b.i64)
	})
}

func (v Value) Or(other Value) (Value, error) {
	return v.binOp(other, OpOr, func(a, b Value) Value {
		if a.kind == KindBool {
			return ConstBool(nil, a.boolean || b.boolean)
		}
		return ConstInt(nil, a.i64|b.i64)
	})
}

func (v Value) Negate() (Value, error) {
	if !v.isTracing() {
		if v.kind == KindFloat64 {
			return ConstFloat(nil, -v.f64), nil
		}
		return ConstInt(nil, -v.i64), nil
	}
	id, err := v.ctx.emitUnOp(OpNegate, v.ref, v.kind)
	if err != nil {
		return Value{}, err
	}
	return Value{ctx: v.ctx, symbolic: true, ref: ValRef(id), kind: v.kind}, nil
}

func (v Value) Equals(other Value) (Value, error) {
	return v.compare(other, OpEquals, func(a, b Value) bool {
		if a.kind == KindFloat64 {
			return a.f64 == b.f64
		}
		if a.kind == KindBool {
			return a.boolean == b.boolean
		}
		return a.i64 == b.i64
	})
}

func (v Value) LessThan(other Value) (Value, error) {
	return v.compare(other, OpLessThan, func(a, b Value) bool {
		if a.kind == KindFloat64 {
			return a.f64 < b.f64
		}
		return a.i64 < b.i64
	})
}

func (v Value) compare(other Value, op Opcode, concrete func(a, b Value) bool) (Value, error) {
	if !v.isTracing() {
		return ConstBool(nil, concrete(v, other)), nil
	}
	id, err := v.ctx.emitBinOp(op, v.ref, other.ref, KindBool)
	if err != nil {
		return Value{}, err
	}
	return Value{ctx: v.ctx, symbolic: true, ref: ValRef(id), kind: KindBool}, nil
}

func arith(a, b Value, fi func(x, y int64) int64, ff func(x, y float64) float64) Value {
	if a.kind == KindFloat64 {
		return ConstFloat(nil, ff(a.f64, b.f64))
	}
	return ConstInt(nil, fi(a.i64, b.i64))
}
