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

package window

import (
	"testing"

	"github.com/nebulastream-go/corestream/agg"
)

func TestTumblingAssign(t *testing.T) {
	tw := Tumbling{Size: 10000}
	got := tw.Assign(12345)
	if len(got) != 1 || got[0].Start != 10000 || got[0].End != 20000 {
		t.Fatalf("got %v", got)
	}
}

func TestSlidingAssignFanout(t *testing.T) {
	sw := Sliding{Size: 10000, Step: 5000}
	got := sw.Assign(12000)
	want := map[Slice]bool{
		{Start: 5000, End: 15000}:  true,
		{Start: 10000, End: 20000}: true,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d slices, got %d: %v", len(want), len(got), got)
	}
	for _, sl := range got {
		if !want[sl] {
			t.Fatalf("unexpected slice %v", sl)
		}
	}
}

// TestTumblingKeyedSum checks per-key sums across tumbling slices,
// including a record that lands in the next window.
func TestTumblingKeyedSum(t *testing.T) {
	var sumFn agg.Sum[int64]
	h := NewHandler[int64, int64](sumFn, Tumbling{Size: 10000}, true, 16, 0)

	type rec struct {
		id    string
		value int64
		ts    int64
	}
	records := []rec{
		{"1", 307, 1000},
		{"1", 870, 10500},
		{"4", 6, 2000},
		{"11", 30, 3000},
		{"12", 7, 4000},
		{"16", 12, 5000},
	}
	for _, r := range records {
		h.LiftKeyed(0, r.id, r.value, r.ts)
	}
	h.AdvanceWatermark(0, 20000)
	h.Trigger()

	want := map[int64]map[string]int64{
		0:     {"1": 307, "4": 6, "11": 30, "12": 7, "16": 12},
		10000: {"1": 870},
	}
	for _, ts := range h.GlobalSlices() {
		wantKeys, ok := want[ts.Slice.Start]
		if !ok {
			t.Fatalf("unexpected triggered slice at %d", ts.Slice.Start)
		}
		entries := ts.Keyed.Entries()
		for k, wv := range wantKeys {
			sv, ok := entries[k]
			if !ok {
				t.Fatalf("slice %d missing key %s", ts.Slice.Start, k)
			}
			if sv != wv {
				t.Fatalf("slice %d key %s: got %d, want %d", ts.Slice.Start, k, sv, wv)
			}
		}
	}
}

// TestTumblingNonKeyedCount checks a non-keyed count over a single
// window (collapsed to tumbling, since 100 records land in a single
// 10s window).
func TestTumblingNonKeyedCount(t *testing.T) {
	var countFn agg.Count[int64]
	h := NewHandler[int64, int64](countFn, Tumbling{Size: 10000}, false, 0, 0)
	for i := 0; i < 100; i++ {
		h.LiftNonKeyed(0, 1, int64(i*10))
	}
	h.AdvanceWatermark(0, 10000)
	h.Trigger()

	slices := h.GlobalSlices()
	if len(slices) != 1 {
		t.Fatalf("expected exactly one triggered slice, got %d", len(slices))
	}
	if got := countFn.Lower(slices[0].NonKd.State()); got != 100 {
		t.Fatalf("got count %d, want 100", got)
	}
}

func TestTriggerIsIdempotent(t *testing.T) {
	var countFn agg.Count[int64]
	h := NewHandler[int64, int64](countFn, Tumbling{Size: 10000}, false, 0, 0)
	h.LiftNonKeyed(0, 1, 100)
	h.AdvanceWatermark(0, 10000)
	first := h.Trigger()
	second := h.Trigger()
	if len(first) != 1 {
		t.Fatalf("expected one slice triggered, got %d", len(first))
	}
	if len(second) != 0 {
		t.Fatalf("expected no duplicate trigger, got %d", len(second))
	}
}

func TestDeleteSlicesRemovesPastLateness(t *testing.T) {
	var countFn agg.Count[int64]
	h := NewHandler[int64, int64](countFn, Tumbling{Size: 10000}, false, 0, 1000)
	h.LiftNonKeyed(0, 1, 100)
	h.AdvanceWatermark(0, 10000)
	h.Trigger()
	if len(h.GlobalSlices()) != 1 {
		t.Fatal("expected the slice to be present before deletion")
	}
	h.DeleteSlices(12000, 0, 0)
	if len(h.GlobalSlices()) != 0 {
		t.Fatal("expected the slice to be deleted once past sliceEnd+allowedLateness")
	}
}
