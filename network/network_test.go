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

package network

import (
	"sync"
	"testing"
	"time"
)

func testPartition() NesPartition {
	return NesPartition{QueryID: 1, OperatorID: 2, PartitionID: 3, SubpartitionID: 0}
}

// pausedDialer returns a dialer that fails until its gate channel is
// closed, simulating the "400 buffers arrive before the channel is
// up" scenario S5.
func pausedDialer(target *MemTransport, gate chan struct{}) TransportDialer {
	return func(TargetLocation, NesPartition) (Transport, error) {
		select {
		case <-gate:
			return target, nil
		default:
			return nil, ErrTransportDown
		}
	}
}

// TestAsyncConnectBuffersThenFlushesInOrder checks that writes queued
// while disconnected flush in order once the target comes up.
func TestAsyncConnectBuffersThenFlushesInOrder(t *testing.T) {
	target := NewMemTransport()
	gate := make(chan struct{})
	sink := NewSink(testPartition(), TargetLocation{Host: "a"}, pausedDialer(target, gate), 500, time.Millisecond, 5*time.Millisecond)
	sink.Start()

	const nBuffers = 400
	for i := 0; i < nBuffers; i++ {
		sink.Write(DataMessage{
			Partition: testPartition(),
			Header:    DataHeader{SequenceNumber: uint64(i + 1)},
			Payload:   []byte{byte(i)},
		})
	}

	close(gate) // let the connector succeed now

	deadline := time.Now().Add(2 * time.Second)
	for len(target.Received) < nBuffers && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if len(target.Received) != nBuffers {
		t.Fatalf("expected %d buffers delivered, got %d", nBuffers, len(target.Received))
	}
	for i, msg := range target.Received {
		if msg.Header.SequenceNumber != uint64(i+1) {
			t.Fatalf("out of order delivery at index %d: seq %d", i, msg.Header.SequenceNumber)
		}
	}
	sink.Stop()
}

// TestReconfigureSplitsStream checks that a live reconfigure splits
// delivered buffers between the old and new targets without loss or
// duplication.
func TestReconfigureSplitsStream(t *testing.T) {
	targetA := NewMemTransport()
	targetB := NewMemTransport()

	var mu sync.Mutex
	current := targetA
	dial := func(TargetLocation, NesPartition) (Transport, error) {
		mu.Lock()
		defer mu.Unlock()
		return current, nil
	}

	sink := NewSink(testPartition(), TargetLocation{Host: "a"}, dial, 200, time.Millisecond, 5*time.Millisecond)
	sink.Start()

	waitRunning := func() {
		deadline := time.Now().Add(time.Second)
		for sink.State() != StateRunning && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}
	waitRunning()

	for i := 1; i <= 40; i++ {
		sink.Write(DataMessage{Header: DataHeader{SequenceNumber: uint64(i)}, Payload: []byte{byte(i)}})
	}
	deadline := time.Now().Add(time.Second)
	for len(targetA.Received) < 40 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	current = targetB
	mu.Unlock()
	sink.Reconfigure(TargetLocation{Host: "b"}, testPartition())
	waitRunning()

	for i := 41; i <= 80; i++ {
		sink.Write(DataMessage{Header: DataHeader{SequenceNumber: uint64(i)}, Payload: []byte{byte(i)}})
	}
	deadline = time.Now().Add(time.Second)
	for len(targetB.Received) < 40 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if len(targetA.Received) != 40 {
		t.Fatalf("target A: expected 40 buffers, got %d", len(targetA.Received))
	}
	if len(targetB.Received) != 40 {
		t.Fatalf("target B: expected 40 buffers, got %d", len(targetB.Received))
	}
	for i, msg := range targetA.Received {
		if msg.Header.SequenceNumber != uint64(i+1) {
			t.Fatalf("target A out of order at %d: %d", i, msg.Header.SequenceNumber)
		}
	}
	for i, msg := range targetB.Received {
		if msg.Header.SequenceNumber != uint64(i+41) {
			t.Fatalf("target B out of order at %d: %d", i, msg.Header.SequenceNumber)
		}
	}
	sink.Stop()
}

type recordingHandler struct {
	mu   sync.Mutex
	data []DataMessage
	eos  []EOSMessage
}

func (r *recordingHandler) OnData(m DataMessage) { r.mu.Lock(); r.data = append(r.data, m); r.mu.Unlock() }
func (r *recordingHandler) OnEOS(m EOSMessage)    { r.mu.Lock(); r.eos = append(r.eos, m); r.mu.Unlock() }
func (r *recordingHandler) OnQueryReconfig(QueryReconfigMessage) {}
func (r *recordingHandler) OnError(ErrorMessage)                 {}

func TestSourceRoutesToRegisteredPartitionOnly(t *testing.T) {
	src := NewSource()
	p := testPartition()
	h := &recordingHandler{}
	src.RegisterPartition(p, h)

	if err := src.Deliver(DataMessage{Partition: p}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other := NesPartition{QueryID: 99}
	if err := src.Deliver(DataMessage{Partition: other}); err != ErrPartitionNotRegistered {
		t.Fatalf("expected ErrPartitionNotRegistered, got %v", err)
	}
	if len(h.data) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(h.data))
	}
}

func TestSourceEOSPropagation(t *testing.T) {
	src := NewSource()
	p := testPartition()
	h := &recordingHandler{}
	src.RegisterPartition(p, h)
	if err := src.DeliverEOS(EOSMessage{Partition: p, Graceful: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.eos) != 1 || !h.eos[0].Graceful {
		t.Fatalf("expected one graceful EOS, got %v", h.eos)
	}
}
