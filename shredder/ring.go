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

package shredder

import (
	"runtime"
	"sync/atomic"
)

// RingShredder is a lock-free layout variant: each ring slot packs an
// ABA generation tag and four flag bits (hasDelimiter, noDelimiter,
// completedLeading, completedTrailing) into one 64-bit atomic word.
// Threads claim a spanning tuple via a CAS on the slot containing its
// first delimiter; losing threads retry.
//
// Grounded on internal/atomicext's pause idiom for spin-retry loops
// (no assembly PAUSE instruction is available from Go, so this module
// yields the scheduler instead).
type RingShredder struct {
	slots []uint64
	size  uint64
}

const (
	flagHasDelimiter      uint64 = 1 << 0
	flagNoDelimiter       uint64 = 1 << 1
	flagCompletedLeading  uint64 = 1 << 2
	flagCompletedTrailing uint64 = 1 << 3
	flagBits                     = 4
	genShift                     = flagBits
)

// NewRing creates a ring of the given size (must be a power of two for
// the modulo-by-mask indexing below; NewRing rounds up if it is not).
func NewRing(size int) *RingShredder {
	n := uint64(1)
	for n < uint64(size) {
		n <<= 1
	}
	return &RingShredder{slots: make([]uint64, n), size: n}
}

func (r *RingShredder) index(seq uint64) uint64 { return seq & (r.size - 1) }

func pack(gen uint64, flags uint64) uint64 {
	return (gen << genShift) | (flags & (1<<flagBits - 1))
}

func unpack(word uint64) (gen uint64, flags uint64) {
	return word >> genShift, word & (1<<flagBits - 1)
}

// Mark records, without contention, whether the buffer at seq has a
// delimiter. Called once per arriving buffer before any claim attempt.
func (r *RingShredder) Mark(seq uint64, hasDelimiter bool) {
	idx := r.index(seq)
	for {
		old := atomic.LoadUint64(&r.slots[idx])
		gen, _ := unpack(old)
		var flags uint64
		if hasDelimiter {
			flags = flagHasDelimiter
		} else {
			flags = flagNoDelimiter
		}
		next := pack(gen, flags)
		if atomic.CompareAndSwapUint64(&r.slots[idx], old, next) {
			return
		}
		runtime.Gosched()
	}
}

// ClaimLeading attempts to claim completion of the leading half of a
// spanning tuple at seq (the thread that owns the delimiter buffer to
// seq's right claims the leading contribution of seq). Returns true if
// this call won the race.
func (r *RingShredder) ClaimLeading(seq uint64) bool {
	return r.claim(seq, flagCompletedLeading)
}

// ClaimTrailing is ClaimLeading's mirror for the trailing half.
func (r *RingShredder) ClaimTrailing(seq uint64) bool {
	return r.claim(seq, flagCompletedTrailing)
}

func (r *RingShredder) claim(seq uint64, bit uint64) bool {
	idx := r.index(seq)
	for {
		old := atomic.LoadUint64(&r.slots[idx])
		gen, flags := unpack(old)
		if flags&bit != 0 {
			return false // already claimed by another thread
		}
		next := pack(gen, flags|bit)
		if atomic.CompareAndSwapUint64(&r.slots[idx], old, next) {
			return true
		}
		runtime.Gosched()
	}
}

// Recycle bumps the slot's ABA generation and clears its flags once
// its sequence number has fully cycled out of the ring, guarding
// against a stale claim from a wrapped-around reuse of the same slot.
func (r *RingShredder) Recycle(seq uint64) {
	idx := r.index(seq)
	for {
		old := atomic.LoadUint64(&r.slots[idx])
		gen, _ := unpack(old)
		next := pack(gen+1, 0)
		if atomic.CompareAndSwapUint64(&r.slots[idx], old, next) {
			return
		}
		runtime.Gosched()
	}
}

// Generation returns the current ABA generation tag of seq's slot, for
// tests asserting no stale claim survives a recycle.
func (r *RingShredder) Generation(seq uint64) uint64 {
	gen, _ := unpack(atomic.LoadUint64(&r.slots[r.index(seq)]))
	return gen
}
