// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schemacache

import (
	"testing"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

func testSchema() *schema.Schema {
	return &schema.Schema{
		Name:           "default",
		ArchiveList:    []schema.ArchiveSpec{{SecondsPerPoint: 1, Count: 60}},
		CacheRetention: 10,
		MetricsMaxNum:  2,
		CacheRatio:     1.0,
	}
}

func TestAllocFileGrowsWhenFull(t *testing.T) {
	sc := New(testSchema())

	idx0, fc0 := sc.AllocFile()
	if idx0 != 0 {
		t.Fatalf("first AllocFile index = %d, want 0", idx0)
	}
	fc0.AllocSlot()
	fc0.AllocSlot()
	if !fc0.IsMetricFull() {
		t.Fatal("expected file 0 full after allocating both slots")
	}

	idx1, fc1 := sc.AllocFile()
	if idx1 != 1 {
		t.Fatalf("second AllocFile index = %d, want 1 (a new file)", idx1)
	}
	if fc1 == fc0 {
		t.Fatal("expected a distinct FileCache once the first filled up")
	}
	if sc.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", sc.Size())
	}
}

func TestAddGrowsListForReplay(t *testing.T) {
	sc := New(testSchema())
	fc := sc.Add(3)
	if sc.Size() != 4 {
		t.Fatalf("Size() = %d, want 4 after Add(3)", sc.Size())
	}
	if sc.Get(3) != fc {
		t.Fatal("Get(3) did not return the same FileCache Add(3) returned")
	}
}
