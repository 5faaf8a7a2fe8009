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

// Dominators maps each block to its immediate dominator; the entry
// block (id 0) dominates itself and has no immediate dominator.
type Dominators map[trace.BlockID]trace.BlockID

// computeDominance runs the standard iterative (Cooper/Harvey/Kennedy)
// dominance algorithm over the trace's block graph, using block
// indices in trace order as an approximate reverse-postorder (every
// block here is created after at least one of its predecessors, since
// blocks are only ever created by If/Loop while emitting a jump into
// them, so block-index order is already a valid topological seed).
func computeDominance(t *trace.Trace) (Dominators, error) {
	n := len(t.Blocks)
	if n == 0 {
		return Dominators{}, nil
	}
	idom := make([]int, n)
	for i := range idom {
		idom[i] = -1
	}
	idom[0] = 0

	changed := true
	for changed {
		changed = false
		for i := 1; i < n; i++ {
			b := t.Block(trace.BlockID(i))
			newIdom := -1
			for _, p := range b.Preds {
				if idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = int(p)
					continue
				}
				newIdom = intersect(idom, newIdom, int(p))
			}
			if newIdom != -1 && idom[i] != newIdom {
				idom[i] = newIdom
				changed = true
			}
		}
	}

	out := make(Dominators, n)
	for i := 1; i < n; i++ {
		if idom[i] == -1 {
			return nil, &ErrInvariantViolation{Reason: "block has no dominator (disconnected from entry)"}
		}
		out[trace.BlockID(i)] = trace.BlockID(idom[i])
	}
	return out, nil
}

// intersect walks both fingers up the dominator tree until they meet,
// using block index as the "finger" ordering proxy for postorder
// number (valid here because idom always points to a lower or equal
// index than its dominatee, by construction above).
func intersect(idom []int, a, b int) int {
	for a != b {
		for a > b {
			a = idom[a]
		}
		for b > a {
			b = idom[b]
		}
	}
	return a
}
