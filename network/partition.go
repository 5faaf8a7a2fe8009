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
// Package network implements the transport that carries tuple buffers
// between workers: NetworkSink's asynchronous-connect state machine,
// NetworkSource's partition registration, and the wire protocol
// messages exchanged between them.
package network

import "fmt"

// NesPartition identifies one channel endpoint.
type NesPartition struct {
	QueryID       uint64
	OperatorID    uint64
	PartitionID   uint64
	SubpartitionID uint64
}

func (p NesPartition) String() string {
	return fmt.Sprintf("q%d/op%d/p%d/sp%d", p.QueryID, p.OperatorID, p.PartitionID, p.SubpartitionID)
}

// TargetLocation addresses where a sink delivers a partition.
type TargetLocation struct {
	WorkerID uint64
	Host     string
	Port     int
}
