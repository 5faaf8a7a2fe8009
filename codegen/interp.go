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
// Package codegen lowers SSA IR (trace.Trace, after ssa.Build) to an
// executable Program. Two back-ends are provided: an interpreter that
// walks the IR directly, and a stub "native" lowering that documents
// the hand-off point without actually emitting machine code. Both must
// produce bit-identical output for pure, side-effect-free functions.
//
// Grounded on vm/interp.go, a straight-line dispatch loop over an
// opcode sequence.
package codegen

import (
	"fmt"

	"github.com/nebulastream-go/corestream/trace"
)

// Program is a compiled, runnable pipeline function.
type Program struct {
	t *trace.Trace
}

// Compile wraps an already SSA-formed trace as a runnable Program. It
// does not itself run the SSA-creation phase; callers pass a trace
// that has already gone through ssa.Build.
func Compile(t *trace.Trace) *Program {
	return &Program{t: t}
}

// scalar is the interpreter's runtime value representation, mirroring
// trace.Value's tagged-variant shape without requiring a Context.
type scalar struct {
	kind trace.Kind
	i64  int64
	f64  float64
}

func constScalar(op trace.Op) scalar {
	return scalar{kind: op.Kind, i64: op.ConstI, f64: op.ConstF}
}

// ErrUnsupportedOp is returned by the Run* entry points if the trace
// contains an opcode this interpreter does not implement (should not
// happen for traces built exclusively through the trace package's
// Value operations).
var ErrUnsupportedOp = fmt.Errorf("codegen: unsupported opcode")

// RunInt64 is a convenience entry point for programs whose entry block
// takes a single int64-valued formal argument and returns an int64.
func (p *Program) RunInt64(arg int64) (int64, error) {
	s, err := p.runFrom(0, []scalar{{kind: trace.KindInt64, i64: arg}})
	if err != nil {
		return 0, err
	}
	return s.i64, nil
}

// RunInt64NoArgs runs a program whose entry block takes no arguments.
func (p *Program) RunInt64NoArgs() (int64, error) {
	s, err := p.runFrom(0, nil)
	if err != nil {
		return 0, err
	}
	return s.i64, nil
}

func (p *Program) runFrom(start trace.BlockID, args []scalar) (scalar, error) {
	blockID := start
	incoming := args
	for {
		b := p.t.Block(blockID)
		env := make(map[trace.ValueID]scalar, len(b.Args)+len(b.Ops))
		for i, a := range b.Args {
			if i < len(incoming) {
				env[a] = incoming[i]
			}
		}
		var cmpResult scalar
		var terminal *trace.Op
		for i := range b.Ops {
			op := &b.Ops[i]
			switch op.Opcode {
			case trace.OpConst:
				env[op.Result] = constScalar(*op)
			case trace.OpAdd, trace.OpSub, trace.OpMul, trace.OpDiv, trace.OpAnd, trace.OpOr, trace.OpEquals, trace.OpLessThan:
				a := env[op.Operands[0].Value]
				b2 := env[op.Operands[1].Value]
				r, err := binOp(op.Opcode, a, b2)
				if err != nil {
					return scalar{}, err
				}
				env[op.Result] = r
			case trace.OpNegate:
				a := env[op.Operands[0].Value]
				env[op.Result] = negate(a)
			case trace.OpCmp:
				cmpResult = env[op.Operands[0].Value]
			case trace.OpJmp:
				terminal = op
			case trace.OpReturn:
				return env[op.Operands[0].Value], nil
			default:
				return scalar{}, fmt.Errorf("%w: %s", ErrUnsupportedOp, op.Opcode)
			}
		}
		if terminal == nil {
			return scalar{}, fmt.Errorf("codegen: block %d has no terminator", blockID)
		}
		if len(terminal.Operands) == 2 {
			// conditional jump: (then, else) selected by the most
			// recent CMP result.
			target := terminal.Operands[1].Block
			if cmpResult.i64 != 0 {
				target = terminal.Operands[0].Block
			}
			blockID = target.Target
			incoming = resolveArgs(env, target.Args)
			continue
		}
		target := terminal.Operands[0].Block
		blockID = target.Target
		incoming = resolveArgs(env, target.Args)
	}
}

func resolveArgs(env map[trace.ValueID]scalar, ids []trace.ValueID) []scalar {
	out := make([]scalar, len(ids))
	for i, id := range ids {
		out[i] = env[id]
	}
	return out
}

func binOp(op trace.Opcode, a, b scalar) (scalar, error) {
	if a.kind == trace.KindFloat64 || b.kind == trace.KindFloat64 {
		var r float64
		switch op {
		case trace.OpAdd:
			r = a.f64 + b.f64
		case trace.OpSub:
			r = a.f64 - b.f64
		case trace.OpMul:
			r = a.f64 * b.f64
		case trace.OpDiv:
			r = a.f64 / b.f64
		case trace.OpEquals:
			return boolScalar(a.f64 == b.f64), nil
		case trace.OpLessThan:
			return boolScalar(a.f64 < b.f64), nil
		default:
			return scalar{}, fmt.Errorf("%w: %s on float", ErrUnsupportedOp, op)
		}
		return scalar{kind: trace.KindFloat64, f64: r}, nil
	}
	var r int64
	switch op {
	case trace.OpAdd:
		r = a.i64 + b.i64
	case trace.OpSub:
		r = a.i64 - b.i64
	case trace.OpMul:
		r = a.i64 * b.i64
	case trace.OpDiv:
		r = a.i64 / b.i64
	case trace.OpAnd:
		r = a.i64 & b.i64
	case trace.OpOr:
		r = a.i64 | b.i64
	case trace.OpEquals:
		return boolScalar(a.i64 == b.i64), nil
	case trace.OpLessThan:
		return boolScalar(a.i64 < b.i64), nil
	default:
		return scalar{}, fmt.Errorf("%w: %s on int", ErrUnsupportedOp, op)
	}
	return scalar{kind: trace.KindInt64, i64: r}, nil
}

func negate(a scalar) scalar {
	if a.kind == trace.KindFloat64 {
		return scalar{kind: trace.KindFloat64, f64: -a.f64}
	}
	return scalar{kind: trace.KindInt64, i64: -a.i64}
}

func boolScalar(v bool) scalar {
	if v {
		return scalar{kind: trace.KindBool, i64: 1}
	}
	return scalar{kind: trace.KindBool, i64: 0}
}
