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

package ssa

import "github.com/nebulastream-go/corestream/trace"

// resolveCrossBlockReferences performs the SSA-creation phase's
// middle two steps together: it places a block argument
// (φ-input) wherever a block uses a value it does not locally define,
// threads that value in from every predecessor edge (recursively, so
// a predecessor that also lacks the value gains its own block
// argument in turn), and rewrites the using block's references to
// point at the newly-local argument.
//
// Runs to a fixpoint: each pass may turn a predecessor's jump into a
// new "use" that the predecessor itself must resolve on the next pass.
func resolveCrossBlockReferences(t *trace.Trace) error {
	// defBlock[v] = the block that originally produces value v,
	// either as a block formal argument or as an op result.
	defBlock := make(map[trace.ValueID]trace.BlockID)
	for _, b := range t.Blocks {
		for _, a := range b.Args {
			defBlock[a] = b.ID
		}
		for _, op := range b.Ops {
			if definesValue(op.Opcode) {
				defBlock[op.Result] = b.ID
			}
		}
	}

	// argOf[b][v] = the formal argument of b that already stands for
	// the outside value v, so a later pass reuses it instead of adding
	// a second argument that the predecessors' jumps do not supply.
	argOf := make(map[trace.BlockID]map[trace.ValueID]trace.ValueID)

	for pass := 0; pass < len(t.Blocks)+1; pass++ {
		changed := false
		for _, b := range t.Blocks {
			local := localSet(b)
			// collect the set of values used by this block that are
			// not locally available, preserving first-seen order.
			var missing []trace.ValueID
			seen := make(map[trace.ValueID]bool)
			markMissing := func(v trace.ValueID) {
				if local[v] || seen[v] {
					return
				}
				seen[v] = true
				missing = append(missing, v)
			}
			for i := range b.Ops {
				op := &b.Ops[i]
				for _, operand := range op.Operands {
					if operand.IsBlock {
						for _, a := range operand.Block.Args {
							markMissing(a)
						}
						continue
					}
					markMissing(operand.Value)
				}
			}
			if len(missing) == 0 {
				continue
			}
			changed = true
			for _, v := range missing {
				if a, ok := argOf[b.ID][v]; ok {
					rewriteValue(b, v, a)
					continue
				}
				newArg := b.AddArg()
				if argOf[b.ID] == nil {
					argOf[b.ID] = make(map[trace.ValueID]trace.ValueID)
				}
				argOf[b.ID][v] = newArg
				rewriteValue(b, v, newArg)
				local[newArg] = true
				local[v] = false // old id no longer referenced directly in this block
				for _, predID := range b.Preds {
					threadThroughEdge(t.Block(predID), b.ID, v)
				}
			}
		}
		if !changed {
			break
		}
	}
	return nil
}

func definesValue(op trace.Opcode) bool {
	switch op {
	case trace.OpJmp, trace.OpReturn, trace.OpCmp:
		return false
	default:
		return true
	}
}

func localSet(b *trace.Block) map[trace.ValueID]bool {
	s := make(map[trace.ValueID]bool)
	for _, a := range b.Args {
		s[a] = true
	}
	for _, op := range b.Ops {
		if definesValue(op.Opcode) {
			s[op.Result] = true
		}
	}
	return s
}

// rewriteValue replaces every occurrence of oldV with newV among b's
// op operands (including inside block-ref argument lists).
func rewriteValue(b *trace.Block, oldV, newV trace.ValueID) {
	for i := range b.Ops {
		op := &b.Ops[i]
		for j := range op.Operands {
			operand := &op.Operands[j]
			if operand.IsBlock {
				for k := range operand.Block.Args {
					if operand.Block.Args[k] == oldV {
						operand.Block.Args[k] = newV
					}
				}
				continue
			}
			if operand.Value == oldV {
				operand.Value = newV
			}
		}
	}
}

// threadThroughEdge appends v to the argument list of pred's jump
// targeting dst. If pred already forwards v on that edge, it is not
// added twice.
func threadThroughEdge(pred *trace.Block, dst trace.BlockID, v trace.ValueID) {
	for i := range pred.Ops {
		op := &pred.Ops[i]
		if op.Opcode != trace.OpJmp {
			continue
		}
		for j := range op.Operands {
			operand := &op.Operands[j]
			if !operand.IsBlock || operand.Block.Target != dst {
				continue
			}
			for _, existing := range operand.Block.Args {
				if existing == v {
					return
				}
			}
			operand.Block.Args = append(operand.Block.Args, v)
			return
		}
	}
}

// eliminateRedundantJumps collapses a block whose only content is an
// unconditional JMP with argument list identical to its own formal
// arguments (a pure pass-through introduced by transitive threading)
// by redirecting its predecessors straight to its target. This is
// conservative: it only fires on single-successor, single-purpose
// blocks with no other operations.
func eliminateRedundantJumps(t *trace.Trace) {
	for _, b := range t.Blocks {
		if len(b.Ops) != 1 {
			continue
		}
		op := b.Ops[0]
		if op.Opcode != trace.OpJmp || len(op.Operands) != 1 {
			continue
		}
		target := op.Operands[0]
		if !target.IsBlock || len(target.Block.Args) != len(b.Args) {
			continue
		}
		identity := true
		for i, a := range b.Args {
			if target.Block.Args[i] != a {
				identity = false
				break
			}
		}
		if !identity {
			continue
		}
		// redirect every predecessor's jump from b to target directly.
		for _, predID := range b.Preds {
			pred := t.Block(predID)
			for i := range pred.Ops {
				pop := &pred.Ops[i]
				if pop.Opcode != trace.OpJmp {
					continue
				}
				for j := range pop.Operands {
					if pop.Operands[j].IsBlock && pop.Operands[j].Block.Target == b.ID {
						pop.Operands[j].Block.Target = target.Block.Target
					}
				}
			}
		}
	}
}
