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

package inputformat

import (
	"errors"
	"fmt"

	"github.com/nebulastream-go/corestream/shredder"
)

// ErrRequiresRepeat mirrors the shredder's REQUIRES_REPEAT signal at
// this layer: the caller should re-enqueue the same raw buffer as a
// RepeatTask.
var ErrRequiresRepeat = errors.New("inputformat: sequence outside active window, requires repeat")

// Scanner is the input-format scan task: it indexes each raw buffer,
// registers it with the sequence shredder on the with/without-delimiter
// path, and reconstructs any resolvable spanning record from a
// per-task arena.
type Scanner struct {
	indexer  Indexer
	shredder *shredder.Shredder
}

// NewScanner builds a scanner backed by the given shredder and
// indexer (the registration path — with or without a delimiter — is
// decided per buffer from the indexer's own result, not configured
// here).
func NewScanner(s *shredder.Shredder, indexer Indexer) *Scanner {
	return &Scanner{indexer: indexer, shredder: s}
}

// ScanResult is the ordered output of one Submit call: any leading
// spanning record this call resolved, then every complete in-buffer
// record, in emission order.
type ScanResult struct {
	Spanning []byte
	Complete [][]byte
}

// Submit processes one arriving raw buffer. raw is retained by
// reference in the shredder's staged-buffer bookkeeping (Payload)
// until Release is called for every buffer in a resolved chain.
func (s *Scanner) Submit(sequence uint64, raw []byte) (ScanResult, error) {
	idx := s.indexer.Index(raw)

	sb := shredder.StagedBuffer{
		Sequence:         sequence,
		Size:             len(raw),
		OffsetFirstDelim: idx.FirstDelim,
		OffsetLastDelim:  idx.LastDelim,
		Payload:          raw,
	}

	res := s.shredder.Submit(sb)
	if res.RequiresRepeat {
		return ScanResult{}, ErrRequiresRepeat
	}

	var out ScanResult
	if len(res.Chain) > 0 {
		spanning, err := reconstructSpanning(res.Chain)
		if err != nil {
			return ScanResult{}, err
		}
		out.Spanning = spanning
		for _, sb := range res.Chain {
			// Release succeeds only once per sequence (a second call
			// returns ErrDoubleRelease); every chain member was staged by its own Submit call, and
			// this resolving call is the one that consumes all of them.
			_ = s.shredder.Release(sb.Sequence)
		}
	}

	// The head segment [0, FirstDelim) is a complete record only at
	// the very start of the stream: for any later buffer, a non-empty
	// head is by construction a partial tuple bridging to an earlier
	// buffer (resolved above via res.Chain, now or on a later Submit),
	// never a bare in-buffer record.
	if idx.FirstDelim > 0 && sequence == s.shredder.FirstSeq() {
		out.Complete = append(out.Complete, raw[:idx.FirstDelim])
	}

	// Complete in-buffer records: segments strictly between two
	// delimiters found within this same buffer never need bridging.
	for i := 0; i+1 < len(idx.Delimiters); i++ {
		start := idx.Delimiters[i] + 1
		end := idx.Delimiters[i+1]
		out.Complete = append(out.Complete, raw[start:end])
	}

	return out, nil
}

// reconstructSpanning concatenates [lo.tail, middles..., hi.head],
// matching the arena layout
// "[delimiter‖firstBuffer.tail‖middleBuffers…‖lastBuffer.head‖delimiter]"
// (the delimiters themselves are not included in the returned record
// bytes — callers index fields from the record, not the framing).
func reconstructSpanning(chain []shredder.StagedBuffer) ([]byte, error) {
	if len(chain) < 2 {
		return nil, fmt.Errorf("inputformat: spanning chain too short (%d)", len(chain))
	}
	lo, hi := chain[0], chain[len(chain)-1]
	loRaw, ok := lo.Payload.([]byte)
	if !ok {
		return nil, fmt.Errorf("inputformat: staged buffer %d missing raw payload", lo.Sequence)
	}
	hiRaw, ok := hi.Payload.([]byte)
	if !ok {
		return nil, fmt.Errorf("inputformat: staged buffer %d missing raw payload", hi.Sequence)
	}

	var arena []byte
	if lo.OffsetLastDelim >= 0 {
		arena = append(arena, loRaw[lo.OffsetLastDelim+1:]...)
	} else {
		arena = append(arena, loRaw...)
	}
	for _, mid := range chain[1 : len(chain)-1] {
		midRaw, ok := mid.Payload.([]byte)
		if !ok {
			return nil, fmt.Errorf("inputformat: staged buffer %d missing raw payload", mid.Sequence)
		}
		arena = append(arena, midRaw...)
	}
	if hi.OffsetFirstDelim >= 0 {
		arena = append(arena, hiRaw[:hi.OffsetFirstDelim]...)
	} else {
		arena = append(arena, hiRaw...)
	}
	return arena, nil
}
