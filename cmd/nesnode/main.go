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

// Command nesnode runs a single worker node: it loads the worker and
// query-compiler configuration, brings up the buffer pool, the node
// engine and its fatal-signal handler, and wires one demo pipeline —
// CSV ingestion through the sequence shredder, row-layout packing,
// network transport, and a tumbling-window keyed sum — end to end.
package main

import (
	"bufio"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/nebulastream-go/corestream/agg"
	"github.com/nebulastream-go/corestream/buffer"
	"github.com/nebulastream-go/corestream/codegen"
	"github.com/nebulastream-go/corestream/config"
	"github.com/nebulastream-go/corestream/engine"
	"github.com/nebulastream-go/corestream/inputformat"
	"github.com/nebulastream-go/corestream/layout"
	"github.com/nebulastream-go/corestream/network"
	"github.com/nebulastream-go/corestream/shredder"
	"github.com/nebulastream-go/corestream/ssa"
	"github.com/nebulastream-go/corestream/trace"
	"github.com/nebulastream-go/corestream/window"
)

func main() {
	workerConfigPath := flag.String("workerConfig", "", "path to a WorkerConfig YAML file (defaults used if empty)")
	queryCompilerConfigPath := flag.String("queryCompilerConfig", "", "path to a QueryCompilerConfig YAML file (defaults used if empty)")
	inputPath := flag.String("input", "", "path to a CSV file of key,value records (a small built-in sample is used if empty)")
	windowSizeMs := flag.Int64("windowSizeMs", 10000, "tumbling window size in milliseconds")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	workerCfg, err := loadWorkerConfig(*workerConfigPath)
	if err != nil {
		logger.Error("load worker config", "err", err)
		os.Exit(1)
	}
	queryCompilerCfg, err := loadQueryCompilerConfig(*queryCompilerConfigPath)
	if err != nil {
		logger.Error("load query compiler config", "err", err)
		os.Exit(1)
	}

	bufPool := buffer.NewPool(workerCfg.BufferPoolSize, workerCfg.BufferSizeBytes)
	defer bufPool.Close()

	eng := engine.NewNodeEngine(workerCfg.NumWorkerThreads)
	fatal := engine.InstallFatalHandler(eng, logger)
	defer fatal.Remove()

	runLateToleranceDemo(logger, queryCompilerCfg, workerCfg.WindowAllowedLateness)

	const queryID, pipelineID = 1, 1
	if err := eng.RegisterQuery(queryID, []uint64{pipelineID}); err != nil {
		logger.Error("register query", "err", err)
		os.Exit(1)
	}
	if err := eng.StartQuery(queryID); err != nil {
		logger.Error("start query", "err", err)
		os.Exit(1)
	}

	schema := layout.NewSchema([]layout.Field{
		{Name: "key", Type: layout.Int64},
		{Name: "value", Type: layout.Int64},
	})
	rowLayout := layout.NewLayout(schema, layout.RowLayout, workerCfg.BufferSizeBytes)

	allowedLateness := int64(workerCfg.WindowAllowedLateness / time.Millisecond)
	windowHandler := window.NewHandler[int64, int64](agg.Sum[int64]{}, window.Tumbling{Size: *windowSizeMs}, true, 16, allowedLateness)

	src := network.NewSource()
	partition := network.NesPartition{QueryID: queryID, OperatorID: pipelineID, PartitionID: 0, SubpartitionID: 0}
	handler := &pipelineHandler{logger: logger, eng: eng, queryID: queryID, pipelineID: pipelineID, schema: schema, rowLayout: rowLayout, window: windowHandler}
	src.RegisterPartition(partition, handler)

	dial := func(target network.TargetLocation, p network.NesPartition) (network.Transport, error) {
		return &loopbackTransport{source: src}, nil
	}
	sink := network.NewSink(partition, network.TargetLocation{WorkerID: 1, Host: "localhost", Port: 0}, dial, workerCfg.SinkFIFOCapacity, workerCfg.ReconnectBackoffMin, workerCfg.ReconnectBackoffMax)
	sink.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	eng.SubmitPipelineTask(pipelineID, func() {
		defer close(done)
		ingest(logger, *inputPath, bufPool, schema, rowLayout, sink, partition)
	})

	select {
	case <-done:
	case <-sigCh:
		logger.Info("shutdown requested")
	}

	if err := eng.StopQuery(queryID); err != nil {
		logger.Error("stop query", "err", err)
	}
	for _, ts := range windowHandler.GlobalSlices() {
		for key, sum := range ts.Keyed.Entries() {
			logger.Info("final window total", "sliceStart", ts.Slice.Start, "key", key, "sum", sum)
		}
	}
	stats, err := eng.GetQueryStatistics(queryID)
	if err == nil {
		for _, st := range stats {
			logger.Info("sub-plan statistics", "subPlanID", st.SubPlanID, "tuplesIn", st.TuplesIn, "buffersIn", st.BuffersIn)
		}
	}

	sink.Stop()
	eng.Shutdown()
}

func loadWorkerConfig(path string) (config.WorkerConfig, error) {
	if path == "" {
		return config.DefaultWorkerConfig(), nil
	}
	return config.LoadWorkerConfig(path)
}

func loadQueryCompilerConfig(path string) (config.QueryCompilerConfig, error) {
	if path == "" {
		return config.DefaultQueryCompilerConfig(), nil
	}
	return config.LoadQueryCompilerConfig(path)
}

// runLateToleranceDemo compiles a tiny traced expression — the
// allowed-lateness horizon in whole seconds, rounded up — and runs it
// through whichever back end queryCompilerCfg selects, falling back to
// the interpreter when native lowering isn't available (it never is
// today; see codegen.LowerNative).
func runLateToleranceDemo(logger *slog.Logger, queryCompilerCfg config.QueryCompilerConfig, allowedLateness time.Duration) {
	ctx := trace.NewContext()
	ms := trace.ConstInt(ctx, allowedLateness.Milliseconds())
	thousand := trace.ConstInt(ctx, 1000)
	one := trace.ConstInt(ctx, 1)
	sum, err := ms.Add(thousand)
	if err != nil {
		logger.Error("trace lateness expr", "err", err)
		return
	}
	sum, err = sum.Sub(one)
	if err != nil {
		logger.Error("trace lateness expr", "err", err)
		return
	}
	seconds, err := sum.Div(thousand)
	if err != nil {
		logger.Error("trace lateness expr", "err", err)
		return
	}
	tr, err := ctx.Finish(seconds)
	if err != nil {
		logger.Error("finish trace", "err", err)
		return
	}
	tr, err = ssa.Build(tr)
	if err != nil {
		logger.Error("ssa build", "err", err)
		return
	}
	prog := codegen.Compile(tr)

	backend := "interpreter"
	if queryCompilerCfg.UseNativeBackend {
		if err := codegen.LowerNative(prog); err != nil {
			logger.Warn("native lowering unavailable, falling back to interpreter", "err", err)
		} else {
			backend = "native"
		}
	}
	result, err := prog.RunInt64NoArgs()
	if err != nil {
		logger.Error("run lateness expr", "err", err)
		return
	}
	logger.Info("compiled lateness horizon", "backend", backend, "seconds", result)
}

// pipelineHandler adapts incoming DATA/EOS/control messages into the
// window handler's Lift/AdvanceWatermark/Trigger calls.
type pipelineHandler struct {
	logger     *slog.Logger
	eng        *engine.NodeEngine
	queryID    uint64
	pipelineID uint64
	schema     *layout.Schema
	rowLayout  *layout.Layout
	window     *window.Handler[int64, int64]
}

func (h *pipelineHandler) OnData(msg network.DataMessage) {
	bb := h.rowLayout.Bind(msg.Payload, false)
	for row := 0; row < int(msg.Header.TupleCount); row++ {
		values, err := bb.Read(row)
		if err != nil {
			h.logger.Error("decode row", "err", err)
			continue
		}
		key := values[0].I64
		value := values[1].I64
		h.window.LiftKeyed(0, strconv.FormatInt(key, 10), value, msg.Header.Watermark)
	}
	h.window.AdvanceWatermark(0, msg.Header.Watermark)
	h.eng.RecordTuplesIn(h.queryID, h.pipelineID, uint64(msg.Header.TupleCount))
	h.eng.RecordBufferIn(h.queryID, h.pipelineID)

	for _, triggered := range h.window.Trigger() {
		for key, sum := range triggered.Keyed.Entries() {
			h.logger.Info("window triggered", "sliceStart", triggered.Slice.Start, "key", key, "sum", sum)
		}
	}
}

func (h *pipelineHandler) OnEOS(msg network.EOSMessage) {
	h.logger.Info("end of stream", "partition", msg.Partition.String(), "graceful", msg.Graceful)
}

func (h *pipelineHandler) OnQueryReconfig(msg network.QueryReconfigMessage) {
	h.logger.Info("query reconfig", "partition", msg.Partition.String())
}

func (h *pipelineHandler) OnError(msg network.ErrorMessage) {
	h.logger.Error("network error", "partition", msg.Partition.String(), "details", msg.Details)
}

// loopbackTransport delivers a sink's writes straight into this
// process's own Source, the in-process counterpart of dialing a real
// socket — the single-node analogue of memtransport.go's role, here
// wired as the Sink's live dial target instead of a test double.
type loopbackTransport struct {
	source *network.Source
}

func (t *loopbackTransport) Register(network.RegisterPartition) error { return nil }

func (t *loopbackTransport) SendData(msg network.DataMessage) error {
	return t.source.Deliver(msg)
}

func (t *loopbackTransport) SendEOS(msg network.EOSMessage) error {
	return t.source.DeliverEOS(msg)
}

func (t *loopbackTransport) Close() error { return nil }

// sampleCSV is used when --input is not given: four records whose
// event times (1000..4000 ms) all fall in the first window.
const sampleCSV = `1,307
4,6
11,30
1,870
`

// ingest reads raw CSV bytes in fixed-size chunks (simulating network
// arrival), resolves tuple boundaries through the sequence shredder
// and reconstructs spanning records, splits each resolved record's
// fields, packs them into a buffer-pool buffer via the row layout, and
// writes the result to sink.
func ingest(logger *slog.Logger, inputPath string, bufPool *buffer.Pool, schema *layout.Schema, rowLayout *layout.Layout, sink *network.Sink, partition network.NesPartition) {
	data, err := readInput(inputPath)
	if err != nil {
		logger.Error("read input", "err", err)
		return
	}

	const chunkSize = 24
	shred := shredder.New(1, 64)
	scanner := inputformat.NewScanner(shred, inputformat.NewCSVIndexer())

	var sequence uint64
	var recordNum int64
	for off := 0; off < len(data); off += chunkSize {
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		sequence++
		res, err := scanner.Submit(sequence, data[off:end])
		if err != nil {
			logger.Error("scan chunk", "err", err, "sequence", sequence)
			continue
		}
		if res.Spanning != nil {
			emitRecord(logger, bufPool, schema, rowLayout, sink, partition, res.Spanning, &recordNum)
		}
		for _, rec := range res.Complete {
			emitRecord(logger, bufPool, schema, rowLayout, sink, partition, rec, &recordNum)
		}
	}

	if violations := shred.ValidateState(); len(violations) > 0 {
		logger.Warn("unreleased staged buffers at shutdown", "count", len(violations))
	}
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		return []byte(sampleCSV), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []byte
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		out = append(out, sc.Bytes()...)
		out = append(out, '\n')
	}
	return out, sc.Err()
}

func emitRecord(logger *slog.Logger, bufPool *buffer.Pool, schema *layout.Schema, rowLayout *layout.Layout, sink *network.Sink, partition network.NesPartition, record []byte, recordNum *int64) {
	fields := inputformat.IndexCSVRecord(record, ',')
	if fields.NumFields() < 2 {
		logger.Warn("malformed record, skipping", "record", string(record))
		return
	}
	keyBytes, err := fields.Field(record, 0)
	if err != nil {
		logger.Warn("field index", "err", err)
		return
	}
	valueBytes, err := fields.Field(record, 1)
	if err != nil {
		logger.Warn("field index", "err", err)
		return
	}
	key, err := strconv.ParseInt(strings.TrimSpace(string(keyBytes)), 10, 64)
	if err != nil {
		logger.Warn("parse key", "err", err)
		return
	}
	value, err := strconv.ParseInt(strings.TrimSpace(string(valueBytes)), 10, 64)
	if err != nil {
		logger.Warn("parse value", "err", err)
		return
	}

	buf := bufPool.Acquire()
	bound := rowLayout.Bind(buf.Bytes(), true)
	ok, err := bound.Push([]layout.Value{
		{Type: layout.Int64, I64: key},
		{Type: layout.Int64, I64: value},
	})
	if err != nil || !ok {
		logger.Error("pack row", "err", err, "ok", ok)
		buf.Release()
		return
	}
	buf.SetNumberOfTuples(bound.NumRows())

	*recordNum++
	eventTime := *recordNum * 1000

	msg := network.DataMessage{
		Partition: partition,
		Header: network.DataHeader{
			SequenceNumber: uint64(*recordNum),
			OriginID:       uint64(buf.Origin()),
			TupleCount:     uint32(bound.NumRows()),
			TupleWidth:     uint32(schema.TupleWidthBytes()),
			Watermark:      eventTime,
			CreationTS:     time.Now(),
			LastChunk:      true,
		},
		Payload: append([]byte(nil), buf.Bytes()[:bound.NumRows()*schema.TupleWidthBytes()]...),
	}
	sink.Write(msg)
	if err := buf.Release(); err != nil {
		logger.Error("release buffer", "err", err)
	}
}
