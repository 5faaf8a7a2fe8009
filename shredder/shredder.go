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
// Package shredder implements the sequence shredder: shared, ordered
// bookkeeping that decides, per incoming raw buffer, which set of
// adjacent buffers together carry a complete tuple that straddles
// buffer boundaries.
//
// Grounded on sorting/thread_pool.go for the mutex+condition-variable
// discipline used to serialize state updates: the sequence shredder is
// a single shared mutex-guarded structure.
package shredder

import (
	"fmt"
	"sync"
)

// StagedBuffer is a raw buffer plus indexing metadata: size in bytes,
// offset of the first and last tuple delimiter (both -1 if the buffer
// has no delimiter at all).
type StagedBuffer struct {
	Sequence        uint64
	Size            int
	OffsetFirstDelim int
	OffsetLastDelim  int
	Payload          any // opaque to the shredder; carried through to the caller's chain result
}

// HasDelimiter reports whether this buffer contains at least one
// tuple delimiter.
func (s StagedBuffer) HasDelimiter() bool { return s.OffsetFirstDelim >= 0 }

// needsTrailingBridge is true when this buffer's bytes after its last
// delimiter are non-empty (or it has no delimiter at all), meaning its
// tail continues a tuple into the next buffer.
func (s StagedBuffer) needsTrailingBridge() bool {
	if !s.HasDelimiter() {
		return true
	}
	return s.OffsetLastDelim < s.Size-1
}

// needsLeadingBridge is true when this buffer's bytes before its first
// delimiter are non-empty (or it has no delimiter at all), meaning its
// head continues a tuple from the previous buffer.
func (s StagedBuffer) needsLeadingBridge() bool {
	if !s.HasDelimiter() {
		return true
	}
	return s.OffsetFirstDelim > 0
}

// SubmitResult is the outcome of Submit: either the caller must
// re-enqueue the buffer (RequiresRepeat), or it receives the (possibly
// empty) chain of staged buffers that together resolve a spanning
// tuple, plus this submitter's own index within that chain.
type SubmitResult struct {
	RequiresRepeat bool
	Chain          []StagedBuffer
	SubmitterIndex int
}

// ErrDoubleRelease is returned by Release when a sequence number has
// already been released or was never staged.
var ErrDoubleRelease = fmt.Errorf("shredder: sequence released more than once")

// Shredder is a mutex-guarded, per-origin ordered structure.
type Shredder struct {
	mu sync.Mutex

	firstSeq uint64 // the lowest sequence number this origin will ever see
	staged   map[uint64]StagedBuffer
	released map[uint64]bool
	windowLo uint64 // sequence numbers below this are no longer "active"
	windowSz uint64
}

// New creates a Shredder for an origin whose first sequence number is
// firstSeq (normally 1) and whose active window holds windowSize
// in-flight sequence numbers at once.
func New(firstSeq uint64, windowSize uint64) *Shredder {
	if windowSize == 0 {
		windowSize = 1 << 20
	}
	return &Shredder{
		firstSeq: firstSeq,
		staged:   make(map[uint64]StagedBuffer),
		released: make(map[uint64]bool),
		windowLo: firstSeq,
		windowSz: windowSize,
	}
}

// FirstSeq reports the lowest sequence number this origin will ever
// see — the stream start, before which no buffer can contribute a
// spanning bridge.
func (s *Shredder) FirstSeq() uint64 { return s.firstSeq }

// Submit registers a newly-arrived raw buffer, implementing a
// four-step contract: index, stage, attempt resolution, report.
func (s *Shredder) Submit(sb StagedBuffer) SubmitResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sb.Sequence < s.windowLo || sb.Sequence >= s.windowLo+s.windowSz {
		return SubmitResult{RequiresRepeat: true}
	}
	s.staged[sb.Sequence] = sb

	lo, ok := s.scanLeft(sb.Sequence)
	if !ok {
		return SubmitResult{}
	}
	hi, ok := s.scanRight(sb.Sequence)
	if !ok {
		return SubmitResult{}
	}
	if lo == hi {
		return SubmitResult{}
	}
	if !s.bridgeNeeded(lo, hi) {
		return SubmitResult{}
	}

	chain := make([]StagedBuffer, 0, hi-lo+1)
	for seq := lo; seq <= hi; seq++ {
		chain = append(chain, s.staged[seq])
	}
	return SubmitResult{
		Chain:          chain,
		SubmitterIndex: int(sb.Sequence - lo),
	}
}

// bridgeNeeded decides whether the delimited boundary buffers lo and
// hi actually straddle a tuple: mandatory whenever at least one
// non-delimited buffer lies strictly between them (it cannot, by
// definition, contain a delimiter to close a record on its own), or
// when the adjacent pair's own trailing/leading bytes are non-empty.
func (s *Shredder) bridgeNeeded(lo, hi uint64) bool {
	if hi > lo+1 {
		return true
	}
	l := s.staged[lo]
	h := s.staged[hi]
	return l.needsTrailingBridge() || h.needsLeadingBridge()
}

// scanLeft resolves the left boundary of any run seq participates in.
// If seq's own head is not a partial tuple (needsLeadingBridge is
// false) seq is its own left boundary — there is nothing to its left
// to bridge with. Otherwise it walks backward from seq-1 to the
// nearest delimiter-bearing buffer (which terminates the run
// regardless of that buffer's own bridge state — a delimiter always
// closes off whatever continuation preceded it) or to firstSeq. ok is
// false if a required predecessor has not arrived yet (the chain is
// not yet resolvable) or on an internal inconsistency.
func (s *Shredder) scanLeft(seq uint64) (uint64, bool) {
	sb, present := s.staged[seq]
	if !present {
		return 0, false
	}
	if !sb.needsLeadingBridge() {
		return seq, true
	}
	if seq == s.firstSeq {
		// nothing precedes the stream start to bridge with.
		return seq, true
	}
	cur := seq - 1
	for {
		csb, present := s.staged[cur]
		if !present {
			return 0, false
		}
		if csb.HasDelimiter() {
			return cur, true
		}
		if cur == s.firstSeq {
			return cur, true
		}
		cur--
	}
}

// scanRight is scanLeft's mirror image: seq is its own right boundary
// unless its tail is a partial tuple (needsTrailingBridge), in which
// case it walks forward from seq+1 to the nearest delimiter-bearing
// buffer.
func (s *Shredder) scanRight(seq uint64) (uint64, bool) {
	sb, present := s.staged[seq]
	if !present {
		return 0, false
	}
	if !sb.needsTrailingBridge() {
		return seq, true
	}
	cur := seq + 1
	for {
		csb, present := s.staged[cur]
		if !present {
			return 0, false
		}
		if csb.HasDelimiter() {
			return cur, true
		}
		cur++
	}
}

// Release drops the shredder's references to a staged buffer once its
// owning task has consumed it: the sequence shredder owns references
// to staged buffers until spanning-tuple resolution drops them.
func (s *Shredder) Release(seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, present := s.staged[seq]; !present || s.released[seq] {
		return ErrDoubleRelease
	}
	delete(s.staged, seq)
	s.released[seq] = true
	return nil
}

// AdvanceWindow moves the active window forward so that sequence
// numbers below newLo are no longer accepted — they instead trigger
// RequiresRepeat, since they fall outside the active window.
func (s *Shredder) AdvanceWindow(newLo uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if newLo > s.windowLo {
		s.windowLo = newLo
	}
}

// Violation describes one inconsistency found by ValidateState.
type Violation struct {
	Sequence uint64
	Reason   string
}

// ValidateState reports violations of the shredder's validity
// invariant: "when a source completes, all staged buffers are
// released." Call after a source's EndOfStream has been fully
// processed.
func (s *Shredder) ValidateState() []Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Violation
	for seq := range s.staged {
		out = append(out, Violation{Sequence: seq, Reason: "buffer still staged after source completion"})
	}
	return out
}
