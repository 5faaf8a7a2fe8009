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

// ErrTransportDown simulates an unreachable target, driving the sink
// into buffering for tests.
var ErrTransportDown = errors.New("network: transport unreachable")

// MemTransport is an in-process Transport test double for a Sink: it
// records every accepted message in Received and EOS and forwards
// nothing to a Source — grounded on usock's role as an
// in-process/loopback transport for its RPC layer.
type MemTransport struct {
	mu       sync.Mutex
	down     bool
	Received []DataMessage
	EOS      []EOSMessage
}

// NewMemTransport creates a transport that is up by default.
func NewMemTransport() *MemTransport { return &MemTransport{} }

// SetDown flips whether this transport accepts writes, simulating a
// target going unreachable or coming back.
func (m *MemTransport) SetDown(down bool) {
	m.mu.Lock()
	m.down = down
	m.mu.Unlock()
}

func (m *MemTransport) Register(RegisterPartition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrTransportDown
	}
	return nil
}

func (m *MemTransport) SendData(msg DataMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrTransportDown
	}
	m.Received = append(m.Received, msg)
	return nil
}

func (m *MemTransport) SendEOS(msg EOSMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.down {
		return ErrTransportDown
	}
	m.EOS = append(m.EOS, msg)
	return nil
}

func (m *MemTransport) Close() error { return nil }
