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
	"time"

	"github.com/klauspost/compress/s2"
)

// State is one of NetworkSink's lifecycle states.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateRunning
	StateBuffering
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateRunning:
		return "running"
	case StateBuffering:
		return "buffering"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TransportDialer opens a Transport to a target location, registering
// the given partition.
type TransportDialer func(TargetLocation, NesPartition) (Transport, error)

type queued struct {
	msg        DataMessage
	compressed []byte
}

// Sink is a NetworkSink: async-connect, bounded FIFO buffering while
// disconnected, and live reconfigure to a new target without losing
// or duplicating in-flight buffers.
type Sink struct {
	partition NesPartition
	dial      TransportDialer

	backoffMin time.Duration
	backoffMax time.Duration

	mu         sync.Mutex
	cond       *sync.Cond
	state      State
	target     TargetLocation
	transport  Transport
	generation uint64 // bumped on every (re)connect attempt / reconfigure; cancels stale connectors
	fifo       []queued
	fifoCap    int
	stopped    bool
}

// NewSink builds a sink addressing partition at target, with a bounded
// FIFO of fifoCap buffers. Connecting is always asynchronous: Write
// never blocks on the channel being established, only on the FIFO
// bound.
func NewSink(partition NesPartition, target TargetLocation, dial TransportDialer, fifoCap int, backoffMin, backoffMax time.Duration) *Sink {
	s := &Sink{
		partition:  partition,
		dial:       dial,
		target:     target,
		fifoCap:    fifoCap,
		backoffMin: backoffMin,
		backoffMax: backoffMax,
		state:      StateDisconnected,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start transitions disconnected -> connecting and launches the
// background connector plus the delivery pump.
func (s *Sink) Start() {
	s.mu.Lock()
	s.state = StateConnecting
	gen := s.generation
	s.mu.Unlock()

	go s.connect(gen)
	go s.pump()
}

// State returns the sink's current lifecycle state.
func (s *Sink) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// connect retries the dial with capped exponential back-off until it
// succeeds or gen is superseded by a newer reconfigure/restart.
func (s *Sink) connect(gen uint64) {
	backoff := s.backoffMin
	for {
		s.mu.Lock()
		if s.stopped || s.generation != gen {
			s.mu.Unlock()
			return
		}
		target := s.target
		s.mu.Unlock()

		tr, err := s.dial(target, s.partition)

		s.mu.Lock()
		if s.stopped || s.generation != gen {
			s.mu.Unlock()
			if tr != nil {
				tr.Close()
			}
			return
		}
		if err == nil {
			s.transport = tr
			s.state = StateRunning
			s.cond.Broadcast()
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		time.Sleep(backoff)
		backoff *= 2
		if backoff > s.backoffMax {
			backoff = s.backoffMax
		}
	}
}

// Write enqueues a buffer for delivery, blocking only when the FIFO
// is at capacity — the sink's back-pressure mechanism.
func (s *Sink) Write(msg DataMessage) {
	s.mu.Lock()
	for len(s.fifo) >= s.fifoCap && !s.stopped {
		s.cond.Wait()
	}
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.fifo = append(s.fifo, queued{msg: msg, compressed: s2.Encode(nil, msg.Payload)})
	s.cond.Broadcast()
	s.mu.Unlock()
}

// pump is the single delivery loop: it drains the FIFO in order,
// blocking on the front entry until it can be sent. A failed send
// moves the sink to buffering and retries the same entry (after the
// connector re-establishes a transport) rather than dropping it.
func (s *Sink) pump() {
	for {
		s.mu.Lock()
		for len(s.fifo) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped && len(s.fifo) == 0 {
			s.mu.Unlock()
			return
		}
		for s.state != StateRunning && !s.stopped {
			s.cond.Wait()
		}
		if s.stopped {
			s.mu.Unlock()
			return
		}
		front := s.fifo[0]
		transport := s.transport
		s.mu.Unlock()

		payload, err := s2.Decode(nil, front.compressed)
		if err == nil {
			front.msg.Payload = payload
		}
		sendErr := transport.SendData(front.msg)

		s.mu.Lock()
		if sendErr != nil {
			s.state = StateBuffering
			s.generation++
			gen := s.generation
			s.mu.Unlock()
			go s.connect(gen)
			continue
		}
		// only dequeue on success; acknowledged buffers are never
		// re-sent even across a later reconfigure.
		s.fifo = s.fifo[1:]
		s.cond.Broadcast()
		s.mu.Unlock()
	}
}

// Reconfigure implements reconfigureNetworkSink: atomically rebinds
// the target and transitions to buffering. In-flight buffers remain
// ordered in the FIFO; already-acknowledged buffers are never
// re-sent. If the sink is still `connecting` when this is called, the
// in-flight connect attempt is cancelled and a fresh one starts
// against the new target: most recent target wins.
func (s *Sink) Reconfigure(target TargetLocation, partition NesPartition) {
	s.mu.Lock()
	s.target = target
	s.partition = partition
	s.state = StateBuffering
	s.generation++
	gen := s.generation
	if s.transport != nil {
		s.transport.Close()
		s.transport = nil
	}
	s.cond.Broadcast()
	s.mu.Unlock()

	go s.connect(gen)
}

// Stop transitions the sink to stopped, waking any blocked writer or
// pump goroutine. Pending FIFO entries are dropped — a hard stop; the
// sink has no notion of a graceful drain deadline at this layer, that
// is the engine's responsibility.
func (s *Sink) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.state = StateStopped
	s.generation++
	if s.transport != nil {
		s.transport.Close()
	}
	s.cond.Broadcast()
	s.mu.Unlock()
}
