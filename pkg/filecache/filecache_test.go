// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package filecache

import (
	"testing"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Name:           "default",
		ArchiveList:    []schema.ArchiveSpec{{SecondsPerPoint: 1, Count: 60}},
		CacheRetention: 10,
		MetricsMaxNum:  4,
		CacheRatio:     1.2,
	}
}

func TestAllocSlotMonotonic(t *testing.T) {
	fc := New(testSchema())
	for i := 0; i < 4; i++ {
		slot, ok := fc.AllocSlot()
		if !ok || slot != i {
			t.Fatalf("AllocSlot() #%d = (%d, %v), want (%d, true)", i, slot, ok, i)
		}
	}
	if _, ok := fc.AllocSlot(); ok {
		t.Fatal("expected AllocSlot to fail once full")
	}
	if !fc.IsMetricFull() {
		t.Fatal("expected IsMetricFull() true")
	}
}

func TestPutThenGet(t *testing.T) {
	fc := New(testSchema())
	slot, _ := fc.AllocSlot()

	fc.Put(slot, 1000, 42)
	fc.Put(slot, 1001, 43)

	rows := fc.Get(nil, false)
	if len(rows) == 0 {
		t.Fatal("expected non-empty rows")
	}
	if rows[0].Values[slot] != 42 {
		t.Errorf("rows[0].Values[%d] = %v, want 42", slot, rows[0].Values[slot])
	}
}

func TestE5FlushBoundary(t *testing.T) {
	fc := New(testSchema())
	slot, _ := fc.AllocSlot()
	fc.Put(slot, 1000, 1)

	if fc.CanWrite(1020) {
		t.Fatal("CanWrite(1020) should be false, still inside the wait-time grace")
	}
	if !fc.CanWrite(1021) {
		t.Fatal("CanWrite(1021) should be true")
	}

	rows := fc.Get(nil, true)
	if len(rows) == 0 || rows[0].Values[slot] != 1 {
		t.Fatalf("expected the single point back, got %+v", rows)
	}
	if !fc.IsEmpty() {
		t.Fatal("expected ring to reset to empty after draining with nothing newer written")
	}
}

func TestGetIdempotentWithoutClear(t *testing.T) {
	fc := New(testSchema())
	slot, _ := fc.AllocSlot()
	fc.Put(slot, 1000, 7)

	a := fc.Get(nil, false)
	b := fc.Get(nil, false)
	if len(a) != len(b) {
		t.Fatalf("length mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Timestamp != b[i].Timestamp || a[i].Values[slot] != b[i].Values[slot] {
			t.Errorf("row %d differs between calls: %+v vs %+v", i, a[i], b[i])
		}
	}
}
