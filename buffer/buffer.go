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
// Package buffer implements the fixed-size, reference-counted tuple
// buffers that carry all data between components of the engine, and
// the pool that owns their backing storage.
package buffer

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// OriginID identifies a source instance. Every buffer it produces
// carries this tag, and sequence numbers are monotonic per origin.
type OriginID uint64

// NewOriginID returns a fresh, process-unique origin id.
func NewOriginID() OriginID {
	return OriginID(uuid.New().ID())
}

// ErrDoubleRelease is returned when a buffer is released to its pool
// more times than it was acquired.
var ErrDoubleRelease = errors.New("buffer: released more times than acquired")

// noCopy causes `go vet`'s copylocks check to flag accidental copies
// of a TupleBuffer by value.
//
// Grounded on vm/slab.go's noCopy marker.
type noCopy struct{}

func (noCopy) Lock()   {}
func (noCopy) Unlock() {}

// TupleBuffer is a reference-counted slab of bytes of a single fixed
// capacity, plus the header metadata threaded through the pipeline
// with it.
type TupleBuffer struct {
	_ noCopy

	pool *Pool
	data []byte

	refs int32

	tupleCount uint32
	tupleWidth uint32

	origin       OriginID
	sequence     uint64
	chunk        uint32
	lastChunk    bool
	watermark    int64
	creationTime time.Time
}

// Bytes returns the full backing slice (capacity, not the populated
// prefix); callers typically limit access with Layout.
func (b *TupleBuffer) Bytes() []byte { return b.data }

// Size is the capacity of the buffer in bytes.
func (b *TupleBuffer) Size() int { return len(b.data) }

// NumberOfTuples returns the number of valid tuples currently stored.
func (b *TupleBuffer) NumberOfTuples() int { return int(b.tupleCount) }

// SetNumberOfTuples records how many tuples are populated in the
// buffer. It is the caller's responsibility to ensure
// tupleCount*tupleWidth <= Size().
func (b *TupleBuffer) SetNumberOfTuples(n int) {
	b.tupleCount = uint32(n)
}

// TupleWidth is the fixed per-tuple byte width for row-layout use, or
// zero for column-major buffers with heterogeneous field widths.
func (b *TupleBuffer) TupleWidth() int { return int(b.tupleWidth) }

// SetTupleWidth sets the fixed row width.
func (b *TupleBuffer) SetTupleWidth(w int) { b.tupleWidth = uint32(w) }

func (b *TupleBuffer) Origin() OriginID    { return b.origin }
func (b *TupleBuffer) Sequence() uint64    { return b.sequence }
func (b *TupleBuffer) Chunk() uint32       { return b.chunk }
func (b *TupleBuffer) LastChunk() bool     { return b.lastChunk }
func (b *TupleBuffer) Watermark() int64    { return b.watermark }
func (b *TupleBuffer) CreatedAt() time.Time { return b.creationTime }

func (b *TupleBuffer) SetOrigin(o OriginID)      { b.origin = o }
func (b *TupleBuffer) SetSequence(seq uint64)    { b.sequence = seq }
func (b *TupleBuffer) SetChunk(c uint32)         { b.chunk = c }
func (b *TupleBuffer) SetLastChunk(last bool)    { b.lastChunk = last }
func (b *TupleBuffer) SetWatermark(wm int64)     { b.watermark = wm }

// Retain increments the reference count and returns the buffer for
// convenient chaining.
func (b *TupleBuffer) Retain() *TupleBuffer {
	atomic.AddInt32(&b.refs, 1)
	return b
}

// Release decrements the reference count. When it reaches zero the
// buffer is returned to its pool for reuse; it is an error to release
// a buffer more times than it has been retained/acquired.
func (b *TupleBuffer) Release() error {
	n := atomic.AddInt32(&b.refs, -1)
	if n < 0 {
		atomic.StoreInt32(&b.refs, 0)
		return ErrDoubleRelease
	}
	if n == 0 {
		b.pool.reclaim(b)
	}
	return nil
}

func (b *TupleBuffer) reset() {
	b.tupleCount = 0
	b.tupleWidth = 0
	b.origin = 0
	b.sequence = 0
	b.chunk = 0
	b.lastChunk = false
	b.watermark = 0
	b.creationTime = time.Time{}
	b.refs = 1
}

// Pool is a fixed-size pool of pooled byte regions. All data movement
// between components is buffer-based; acquiring from an exhausted
// pool blocks until a buffer is released.
//
// Grounded on vm/slab.go's page-drop/reuse discipline, generalized
// from a per-task slab to a shared bounded pool.
type Pool struct {
	bufSize int

	mu       sync.Mutex
	cond     *sync.Cond
	free     []*TupleBuffer
	closed   bool
	numTotal int
}

// NewPool creates a pool of `count` buffers each of `bufSize` bytes.
func NewPool(count, bufSize int) *Pool {
	p := &Pool{bufSize: bufSize, numTotal: count}
	p.cond = sync.NewCond(&p.mu)
	p.free = make([]*TupleBuffer, 0, count)
	for i := 0; i < count; i++ {
		p.free = append(p.free, &TupleBuffer{
			pool: p,
			data: make([]byte, bufSize),
		})
	}
	return p
}

// BufferSize returns the fixed capacity of every buffer in the pool.
func (p *Pool) BufferSize() int { return p.bufSize }

// Capacity returns the total number of buffers owned by the pool.
func (p *Pool) Capacity() int { return p.numTotal }

// Acquire blocks until a buffer is available, then returns it with a
// single reference held by the caller.
func (p *Pool) Acquire() *TupleBuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.free) == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.closed && len(p.free) == 0 {
		return nil
	}
	n := len(p.free) - 1
	b := p.free[n]
	p.free = p.free[:n]
	b.reset()
	return b
}

// TryAcquire attempts a non-blocking acquire; ok is false if the pool
// is currently exhausted.
func (p *Pool) TryAcquire() (b *TupleBuffer, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) == 0 {
		return nil, false
	}
	n := len(p.free) - 1
	b = p.free[n]
	p.free = p.free[:n]
	b.reset()
	return b, true
}

func (p *Pool) reclaim(b *TupleBuffer) {
	p.mu.Lock()
	p.free = append(p.free, b)
	p.mu.Unlock()
	p.cond.Signal()
}

// NumFree reports how many buffers are currently available, for
// diagnostics and tests.
func (p *Pool) NumFree() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Close wakes any blocked Acquire callers; a subsequent Acquire on an
// exhausted, closed pool returns nil instead of blocking forever.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
}
