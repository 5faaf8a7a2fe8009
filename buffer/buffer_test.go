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

package buffer

import (
	"sync"
	"testing"
)

func TestAcquireRelease(t *testing.T) {
	p := NewPool(2, 64)
	b1 := p.Acquire()
	b2 := p.Acquire()
	if p.NumFree() != 0 {
		t.Fatalf("expected pool exhausted, got %d free", p.NumFree())
	}
	if err := b1.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if p.NumFree() != 1 {
		t.Fatalf("expected 1 free, got %d", p.NumFree())
	}
	if err := b2.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestDoubleReleaseErrors(t *testing.T) {
	p := NewPool(1, 16)
	b := p.Acquire()
	if err := b.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := b.Release(); err != ErrDoubleRelease {
		t.Fatalf("expected ErrDoubleRelease, got %v", err)
	}
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	p := NewPool(1, 16)
	b := p.Acquire()

	var wg sync.WaitGroup
	wg.Add(1)
	got := make(chan *TupleBuffer, 1)
	go func() {
		defer wg.Done()
		got <- p.Acquire()
	}()

	b.Release()
	wg.Wait()
	if <-got == nil {
		t.Fatal("expected a buffer after release")
	}
}

func TestRetainRefcount(t *testing.T) {
	p := NewPool(1, 16)
	b := p.Acquire().Retain()
	if err := b.Release(); err != nil {
		t.Fatalf("release 1: %v", err)
	}
	if p.NumFree() != 0 {
		t.Fatalf("buffer should still be held by second ref")
	}
	if err := b.Release(); err != nil {
		t.Fatalf("release 2: %v", err)
	}
	if p.NumFree() != 1 {
		t.Fatalf("expected buffer back in pool")
	}
}

func TestHeaderFields(t *testing.T) {
	p := NewPool(1, 128)
	b := p.Acquire()
	b.SetOrigin(OriginID(7))
	b.SetSequence(42)
	b.SetChunk(1)
	b.SetLastChunk(true)
	b.SetWatermark(1000)
	b.SetTupleWidth(8)
	b.SetNumberOfTuples(4)

	if b.Origin() != 7 || b.Sequence() != 42 || b.Chunk() != 1 ||
		!b.LastChunk() || b.Watermark() != 1000 ||
		b.TupleWidth() != 8 || b.NumberOfTuples() != 4 {
		t.Fatalf("header round-trip mismatch: %+v", b)
	}
	if b.NumberOfTuples()*b.TupleWidth() > b.Size() {
		t.Fatalf("invariant violated: tupleCount*tupleWidth > size")
	}
}

func TestPoolCloseUnblocks(t *testing.T) {
	p := NewPool(1, 16)
	p.Acquire()
	done := make(chan struct{})
	go func() {
		if b := p.Acquire(); b != nil {
			t.Error("expected nil after close with no free buffers")
		}
		close(done)
	}()
	p.Close()
	<-done
}
