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

import "fmt"

// Context is a thread-local trace context: a stack of currently-open
// blocks (here just the single current block, since this module's
// If/Loop constructors fully close each block before opening the
// next) plus the trace being assembled.
type Context struct {
	tracing bool
	trace   *Trace
	cur     *Block
}

// NewContext creates a tracing context ready to record a new Trace.
func NewContext() *Context {
	t := newTrace()
	b := t.newBlock()
	return &Context{tracing: true, trace: t, cur: b}
}

// NewUntracedContext returns a Context in concrete-execution mode: all
// Value operations on it compute immediately and no trace is built.
// This is the "untraced function" path used by tests to check
// bit-identical output against the compiled IR.
func NewUntracedContext() *Context {
	return &Context{tracing: false}
}

// Finish seals the current block with a RETURN of the given value and
// returns the completed trace.
func (c *Context) Finish(ret Value) (*Trace, error) {
	if !c.tracing {
		return nil, fmt.Errorf("trace: Finish called on untraced context")
	}
	if c.cur.sealed {
		return nil, &TraceError{Reason: "current block already sealed"}
	}
	c.cur.Ops = append(c.cur.Ops, Op{
		Opcode:   OpReturn,
		Operands: []Ref{ret.ref},
		Kind:     ret.kind,
	})
	c.cur.sealed = true
	return c.trace, nil
}

func (c *Context) emitConst(kind Kind, i int64, f float64) ValueID {
	id := c.cur.allocValue()
	c.cur.Ops = append(c.cur.Ops, Op{Opcode: OpConst, Result: id, Kind: kind, ConstI: i, ConstF: f})
	return id
}

func (c *Context) emitBinOp(op Opcode, a, b Ref, kind Kind) (ValueID, error) {
	if c.cur.sealed {
		return 0, &TraceError{Reason: "cannot append op to a sealed block"}
	}
	if a.IsBlock || b.IsBlock {
		return 0, &TraceError{Reason: "arithmetic/comparison operand must be a value, not a block ref"}
	}
	id := c.cur.allocValue()
	c.cur.Ops = append(c.cur.Ops, Op{Opcode: op, Operands: []Ref{a, b}, Result: id, Kind: kind})
	return id, nil
}

func (c *Context) emitUnOp(op Opcode, a Ref, kind Kind) (ValueID, error) {
	if c.cur.sealed {
		return 0, &TraceError{Reason: "cannot append op to a sealed block"}
	}
	id := c.cur.allocValue()
	c.cur.Ops = append(c.cur.Ops, Op{Opcode: op, Operands: []Ref{a}, Result: id, Kind: kind})
	return id, nil
}

func (c *Context) jumpTo(target *Block, args ...ValueID) {
	c.cur.Ops = append(c.cur.Ops, Op{
		Opcode:   OpJmp,
		Operands: []Ref{BlockRefOf(target.ID, args...)},
	})
	c.cur.sealed = true
	target.Preds = append(target.Preds, c.cur.ID)
}

// If implements the four-block pattern for `if (c) a; else b;`: a
// condition block (emitting CMP over the predicate), a then-block, an
// else-block (each ending in JMP), and a join block whose single
// formal argument is the merged result — the φ-node for the value
// produced by whichever branch ran.
//
// In untraced (concrete) mode this runs exactly one of thenFn/elseFn,
// per ordinary Go `if` semantics, so the same operator logic can be
// unit-tested on an untraced Context without building a trace.
func If(ctx *Context, cond Value, thenFn, elseFn func(*Context) (Value, error)) (Value, error) {
	if !ctx.tracing {
		if cond.boolean {
			return thenFn(ctx)
		}
		return elseFn(ctx)
	}
	if cond.ref.IsBlock {
		return Value{}, &TraceError{Reason: "If condition must be a value"}
	}

	condBlock := ctx.cur
	condBlock.Ops = append(condBlock.Ops, Op{Opcode: OpCmp, Operands: []Ref{cond.ref}, Kind: KindBool})

	thenBlock := ctx.trace.newBlock()
	elseBlock := ctx.trace.newBlock()
	joinBlock := ctx.trace.newBlock()
	joinArg := joinBlock.addArg()

	// condition block's terminator: conditional jump, encoded as a
	// JMP whose two block-ref operands are (then, else); codegen
	// selects one based on the CMP result recorded just above.
	condBlock.Ops = append(condBlock.Ops, Op{
		Opcode:   OpJmp,
		Operands: []Ref{BlockRefOf(thenBlock.ID), BlockRefOf(elseBlock.ID)},
	})
	condBlock.sealed = true
	thenBlock.Preds = append(thenBlock.Preds, condBlock.ID)
	elseBlock.Preds = append(elseBlock.Preds, condBlock.ID)

	ctx.cur = thenBlock
	tv, err := thenFn(ctx)
	if err != nil {
		return Value{}, err
	}
	ctx.jumpTo(joinBlock, tv.ref.Value)

	ctx.cur = elseBlock
	ev, err := elseFn(ctx)
	if err != nil {
		return Value{}, err
	}
	ctx.jumpTo(joinBlock, ev.ref.Value)

	ctx.cur = joinBlock
	return Value{ctx: ctx, symbolic: true, ref: ValRef(joinArg), kind: tv.kind}, nil
}

// Loop implements the header/body/exit/join pattern. header
// tests cond against the current loop-carried value (its block
// argument); while true it jumps to body, which computes the next
// loop-carried value and jumps back to header; once cond is false it
// jumps to exit, which forwards the final value to join.
//
// In untraced mode this is an ordinary Go loop.
func Loop(ctx *Context, init Value, cond func(*Context, Value) (Value, error), body func(*Context, Value) (Value, error)) (Value, error) {
	if !ctx.tracing {
		v := init
		for {
			c, err := cond(ctx, v)
			if err != nil {
				return Value{}, err
			}
			if !c.boolean {
				return v, nil
			}
			v, err = body(ctx, v)
			if err != nil {
				return Value{}, err
			}
		}
	}

	header := ctx.trace.newBlock()
	body_ := ctx.trace.newBlock()
	exit := ctx.trace.newBlock()
	join := ctx.trace.newBlock()

	headerArg := header.addArg()
	ctx.jumpTo(header, init.ref.Value)

	ctx.cur = header
	headerVal := Value{ctx: ctx, symbolic: true, ref: ValRef(headerArg), kind: init.kind}
	cv, err := cond(ctx, headerVal)
	if err != nil {
		return Value{}, err
	}
	header.Ops = append(header.Ops, Op{Opcode: OpCmp, Operands: []Ref{cv.ref}, Kind: KindBool})
	header.Ops = append(header.Ops, Op{
		Opcode:   OpJmp,
		Operands: []Ref{BlockRefOf(body_.ID), BlockRefOf(exit.ID)},
	})
	header.sealed = true
	body_.Preds = append(body_.Preds, header.ID)
	exit.Preds = append(exit.Preds, header.ID)

	ctx.cur = body_
	nv, err := body(ctx, headerVal)
	if err != nil {
		return Value{}, err
	}
	ctx.jumpTo(header, nv.ref.Value)

	ctx.cur = exit
	joinArg := join.addArg()
	ctx.jumpTo(join, headerArg)

	ctx.cur = join
	return Value{ctx: ctx, symbolic: true, ref: ValRef(joinArg), kind: init.kind}, nil
}
