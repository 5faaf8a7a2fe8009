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
// Package config loads the engine's YAML-configured knobs, mirroring
// the CLI's --workerConfig/--queryCompilerConfig flags.
package config

import (
	"fmt"
	"os"
	"time"

	"sigs.k8s.io/yaml"
)

// WorkerConfig configures the buffer pool, thread pool, network sink
// FIFO, and reconnect back-off bounds for one worker process.
type WorkerConfig struct {
	BufferPoolSize      int           `json:"bufferPoolSize"`
	BufferSizeBytes     int           `json:"bufferSizeBytes"`
	NumWorkerThreads    int           `json:"numWorkerThreads"`
	WindowAllowedLateness time.Duration `json:"windowAllowedLateness"`
	SinkFIFOCapacity    int           `json:"sinkFifoCapacity"`
	ReconnectBackoffMin time.Duration `json:"reconnectBackoffMin"`
	ReconnectBackoffMax time.Duration `json:"reconnectBackoffMax"`
}

// DefaultWorkerConfig returns reasonable defaults, used when no
// --workerConfig flag is supplied.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BufferPoolSize:        1024,
		BufferSizeBytes:       4096,
		NumWorkerThreads:      8,
		WindowAllowedLateness: 0,
		SinkFIFOCapacity:      1024,
		ReconnectBackoffMin:   10 * time.Millisecond,
		ReconnectBackoffMax:   5 * time.Second,
	}
}

// QueryCompilerConfig configures the trace/SSA/codegen pipeline.
type QueryCompilerConfig struct {
	UseNativeBackend bool `json:"useNativeBackend"`
}

// DefaultQueryCompilerConfig mirrors this module's documented
// default: the interpreter, since native lowering is a stub (see
// codegen.LowerNative).
func DefaultQueryCompilerConfig() QueryCompilerConfig {
	return QueryCompilerConfig{UseNativeBackend: false}
}

// LoadWorkerConfig reads a WorkerConfig from a YAML file at path,
// round-tripping through encoding/json the way sigs.k8s.io/yaml
// always does.
func LoadWorkerConfig(path string) (WorkerConfig, error) {
	cfg := DefaultWorkerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read worker config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse worker config: %w", err)
	}
	return cfg, nil
}

// LoadQueryCompilerConfig reads a QueryCompilerConfig from a YAML file
// at path.
func LoadQueryCompilerConfig(path string) (QueryCompilerConfig, error) {
	cfg := DefaultQueryCompilerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read query compiler config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse query compiler config: %w", err)
	}
	return cfg, nil
}
