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

package engine

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
)

// FatalHandler is a process-wide fatal-signal handler: a per-process
// singleton registered at engine construction, removed at engine
// teardown. It reads the engine's state under a try-lock, so it never
// blocks in a signal context and is strictly best-effort.
type FatalHandler struct {
	logger *slog.Logger
	engine *NodeEngine
	ch     chan os.Signal
	done   chan struct{}
}

// InstallFatalHandler registers signal.Notify for SIGSEGV-class fatal
// signals (approximated here with SIGTERM/SIGINT, the two os/signal
// can portably observe outside syscall-specific build tags). On the
// first such signal it logs a callstack plus a best-effort snapshot of
// engine state and stops watching; it does not itself end the process.
// logger defaults to slog.Default() if nil.
func InstallFatalHandler(e *NodeEngine, logger *slog.Logger) *FatalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &FatalHandler{
		logger: logger,
		engine: e,
		ch:     make(chan os.Signal, 1),
		done:   make(chan struct{}),
	}
	signal.Notify(h.ch, syscall.SIGTERM, syscall.SIGINT)
	go h.run()
	return h
}

func (h *FatalHandler) run() {
	for {
		select {
		case sig := <-h.ch:
			buf := make([]byte, 1<<16)
			n := runtime.Stack(buf, true)
			h.logger.Error("fatal signal received",
				"signal", sig.String(),
				"stack", string(buf[:n]),
				"queries", h.bestEffortQuerySnapshot(),
			)
			return
		case <-h.done:
			return
		}
	}
}

// bestEffortQuerySnapshot reads engine.queries under a try-lock so the
// signal-handling goroutine never blocks behind a busy engine; it
// reports "unavailable" rather than waiting.
func (h *FatalHandler) bestEffortQuerySnapshot() string {
	if !tryLock(&h.engine.mu) {
		return "unavailable (engine busy)"
	}
	defer h.engine.mu.Unlock()
	return fmt.Sprintf("%d active queries", len(h.engine.queries))
}

// tryLock wraps sync.Mutex.TryLock for readability at call sites.
func tryLock(mu *sync.Mutex) bool { return mu.TryLock() }

// Remove deregisters the handler at engine teardown.
func (h *FatalHandler) Remove() {
	signal.Stop(h.ch)
	close(h.done)
}
