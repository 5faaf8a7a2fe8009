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
// Package ssa implements the SSA-creation phase: it takes a raw
// trace.Trace (which may contain forward references to values defined
// in a different block than where they are used — pseudo-SSA with
// per-block argument lists that may be unresolved) and rewrites it so
// that every value reference is block-local, by threading missing
// values through as additional block arguments along every
// predecessor edge.
//
// Grounded on vm/ssadefs.go's block-argument-carrying IR shape; the
// construction algorithm itself (resolve-by-adding-block-params,
// propagated transitively to predecessors) is the "block arguments
// instead of φ-nodes" style used by Cranelift-like SSA builders, a
// natural fit for an IR whose blocks already carry explicit formal
// argument lists.
package ssa

import (
	"fmt"

	"github.com/nebulastream-go/corestream/trace"
)

// ErrInvariantViolation is returned when the input trace is malformed
// in a way the construction cannot repair: a missing block reference
// or a block unreachable from the entry. Fatal
// for the affected pipeline's compilation.
type ErrInvariantViolation struct {
	Reason string
}

func (e *ErrInvariantViolation) Error() string {
	return fmt.Sprintf("ssa: ir-invariant-violation: %s", e.Reason)
}

// Build performs the four-step SSA-creation phase over t in place,
// and returns t for convenience.
func Build(t *trace.Trace) (*trace.Trace, error) {
	if err := validateBlockRefs(t); err != nil {
		return nil, err
	}
	dom, err := computeDominance(t)
	if err != nil {
		return nil, err
	}
	_ = dom // dominance is validated (reachability) and available to callers; see Dominators.

	if err := resolveCrossBlockReferences(t); err != nil {
		return nil, err
	}
	eliminateRedundantJumps(t)
	return t, nil
}

// validateBlockRefs checks that every JMP/block-ref operand names a
// block that actually exists in the trace, and that every non-entry
// block is reachable from block 0 (catches unreachable joins).
func validateBlockRefs(t *trace.Trace) error {
	n := trace.BlockID(len(t.Blocks))
	reachable := make(map[trace.BlockID]bool)
	var walk func(id trace.BlockID) error
	walk = func(id trace.BlockID) error {
		if reachable[id] {
			return nil
		}
		reachable[id] = true
		b := t.Block(id)
		for _, op := range b.Ops {
			for _, operand := range op.Operands {
				if !operand.IsBlock {
					continue
				}
				if operand.Block.Target < 0 || operand.Block.Target >= n {
					return &ErrInvariantViolation{Reason: "jump target out of range"}
				}
				if err := walk(operand.Block.Target); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := walk(0); err != nil {
		return err
	}
	for id := trace.BlockID(0); id < n; id++ {
		if !reachable[id] {
			return &ErrInvariantViolation{Reason: fmt.Sprintf("block %d is unreachable", id)}
		}
	}
	return nil
}
