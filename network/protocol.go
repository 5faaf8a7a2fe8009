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

import "time"

// MessageType tags a wire-protocol message's kind.
type MessageType int

const (
	MsgRegisterPartition MessageType = iota
	MsgData
	MsgEOS
	MsgQueryReconfig
	MsgError
)

// DataHeader is DATA's fixed header: (sequenceNumber, chunkNumber,
// originId, tupleCount, tupleWidth, watermark, creationTs,
// lastChunkFlag).
type DataHeader struct {
	SequenceNumber uint64
	ChunkNumber    uint32
	OriginID       uint64
	TupleCount     uint32
	TupleWidth     uint32
	Watermark      int64
	CreationTS     time.Time
	LastChunk      bool
}

// RegisterPartition establishes a subscription; the server replies ok
// or ErrorPartitionNotRegistered.
type RegisterPartition struct {
	Partition NesPartition
}

// DataMessage carries one tuple buffer's bytes in the buffer's own
// row/column layout. The sink keeps an s2-compressed copy while the
// message waits in its FIFO, in every state, and sends the payload
// uncompressed (see sink.go).
type DataMessage struct {
	Partition NesPartition
	Header    DataHeader
	Payload   []byte
}

// EOSMessage signals end of stream for a partition, gracefully or
// as a hard stop.
type EOSMessage struct {
	Partition NesPartition
	Graceful  bool
}

// QueryReconfigMessage carries a live redeployment's sub-plan
// remapping.
type QueryReconfigMessage struct {
	Partition NesPartition
	ToReplace map[uint64]uint64
	ToStart   []uint64
	ToStop    []uint64
}

// ErrorType enumerates the ERROR message kinds.
type ErrorType int

const (
	ErrorPartitionNotRegistered ErrorType = iota
	ErrorDecode
	ErrorInternal
)

// ErrorMessage is sent back to a sink on a channel-level failure.
type ErrorMessage struct {
	Partition NesPartition
	Type      ErrorType
	Details   string
}

// Transport is the channel a NetworkSink writes to and a
// NetworkSource reads from; a real deployment backs this with a TCP
// connection and a framed codec (out of scope: security/TLS of the
// transport). Tests and in-process wiring use an in-memory
// implementation (see memtransport.go).
type Transport interface {
	Register(RegisterPartition) error
	SendData(DataMessage) error
	SendEOS(EOSMessage) error
	Close() error
}
