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
	"errors"
	"sync"
)

// ErrPartitionNotRegistered is returned by Deliver/DeliverEOS when no
// handler has registered for the message's partition.
var ErrPartitionNotRegistered = errors.New("network: partition not registered")

// Handler receives the decoded contents NetworkSource routes to it:
// data buffers, EOS tokens, and reconfiguration/error notices.
type Handler interface {
	OnData(DataMessage)
	OnEOS(EOSMessage)
	OnQueryReconfig(QueryReconfigMessage)
	OnError(ErrorMessage)
}

// Source is a NetworkSource: it registers partitions with a partition
// manager and routes incoming control messages to the query manager's
// operator for that partition.
type Source struct {
	mu       sync.Mutex
	handlers map[NesPartition]Handler
}

// NewSource creates an empty partition registry.
func NewSource() *Source {
	return &Source{handlers: make(map[NesPartition]Handler)}
}

// RegisterPartition associates partition with the operator handler
// that should receive its traffic.
func (s *Source) RegisterPartition(partition NesPartition, h Handler) {
	s.mu.Lock()
	s.handlers[partition] = h
	s.mu.Unlock()
}

// UnregisterPartition removes a partition's handler, e.g. on
// redeployment — the old pipeline is always unregistered before a
// replacement is registered so no record is delivered to both.
func (s *Source) UnregisterPartition(partition NesPartition) {
	s.mu.Lock()
	delete(s.handlers, partition)
	s.mu.Unlock()
}

func (s *Source) lookup(partition NesPartition) (Handler, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.handlers[partition]
	return h, ok
}

// Deliver routes an incoming DATA message to its partition's handler.
func (s *Source) Deliver(msg DataMessage) error {
	h, ok := s.lookup(msg.Partition)
	if !ok {
		return ErrPartitionNotRegistered
	}
	h.OnData(msg)
	return nil
}

// DeliverEOS routes an EOS token to its partition's handler by calling
// OnEOS directly; it does not enqueue anything on an engine task queue.
func (s *Source) DeliverEOS(msg EOSMessage) error {
	h, ok := s.lookup(msg.Partition)
	if !ok {
		return ErrPartitionNotRegistered
	}
	h.OnEOS(msg)
	return nil
}

// DeliverQueryReconfig routes a live-redeployment notice.
func (s *Source) DeliverQueryReconfig(msg QueryReconfigMessage) error {
	h, ok := s.lookup(msg.Partition)
	if !ok {
		return ErrPartitionNotRegistered
	}
	h.OnQueryReconfig(msg)
	return nil
}

// DeliverError routes a channel-level error notice to the handler, if
// still registered (an unregistered partition simply drops it — the
// sink that sent it will see ErrTransportDown on its own next write).
func (s *Source) DeliverError(msg ErrorMessage) {
	if h, ok := s.lookup(msg.Partition); ok {
		h.OnError(msg)
	}
}
