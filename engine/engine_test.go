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
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterStartStopLifecycle(t *testing.T) {
	e := NewNodeEngine(2)
	defer e.Shutdown()

	if err := e.RegisterQuery(1, []uint64{10, 11}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := e.RegisterQuery(1, []uint64{10}); err != ErrAlreadyRegistered {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	if err := e.StartQuery(1); err != nil {
		t.Fatalf("start: %v", err)
	}
	state, err := e.QueryStateOf(1)
	if err != nil || state != QueryRunning {
		t.Fatalf("expected running, got %v (%v)", state, err)
	}
	if err := e.StopQuery(1); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := e.StopQuery(1); err != nil {
		t.Fatalf("expected stop to be idempotent, got %v", err)
	}
	state, _ = e.QueryStateOf(1)
	if state != QueryStopped {
		t.Fatalf("expected stopped, got %v", state)
	}
}

func TestFailQueryRetainsStatistics(t *testing.T) {
	e := NewNodeEngine(1)
	defer e.Shutdown()
	e.RegisterQuery(2, []uint64{20})
	e.StartQuery(2)
	e.RecordTuplesIn(2, 20, 5)
	e.FailQuery(&QueryError{QueryID: 2, Kind: ErrorDecode, Cause: errTest})

	state, _ := e.QueryStateOf(2)
	if state != QueryFailed {
		t.Fatalf("expected failed, got %v", state)
	}
	stats, err := e.GetQueryStatistics(2)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 1 || stats[0].TuplesIn != 5 {
		t.Fatalf("expected retained statistics after failure, got %v", stats)
	}
}

var errTest = &testErr{}

type testErr struct{}

func (*testErr) Error() string { return "boom" }

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := NewPool(4)
	defer func() { p.Close(); p.Wait() }()

	var counter int64
	const n = 200
	for i := 0; i < n; i++ {
		p.Submit(Task{Run: func() { atomic.AddInt64(&counter, 1) }})
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&counter) < n && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt64(&counter); got != n {
		t.Fatalf("expected %d tasks run, got %d", n, got)
	}
}

func TestRepeatTaskRequeuesAfterDelay(t *testing.T) {
	e := NewNodeEngine(1)
	defer e.Shutdown()

	var ran int64
	e.SubmitRepeatTask(1, 10*time.Millisecond, func() { atomic.AddInt64(&ran, 1) })

	time.Sleep(5 * time.Millisecond)
	if atomic.LoadInt64(&ran) != 0 {
		t.Fatal("expected repeat task not to have run yet")
	}
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatalf("expected repeat task to have run once, got %d", atomic.LoadInt64(&ran))
	}
}

func TestUnknownQueryOperationsError(t *testing.T) {
	e := NewNodeEngine(1)
	defer e.Shutdown()
	if err := e.StartQuery(999); err != ErrUnknownQuery {
		t.Fatalf("expected ErrUnknownQuery, got %v", err)
	}
}
