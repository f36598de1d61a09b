// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metriccache

import (
	"path/filepath"
	"testing"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

type fixedMatcher struct{ s *schema.Schema }

func (m fixedMatcher) Match(metric string) *schema.Schema        { return m.s }
func (m fixedMatcher) SchemaByName(name string) *schema.Schema   { return m.s }

func testSchema() *schema.Schema {
	return &schema.Schema{
		Name:              "default",
		ArchiveList:       []schema.ArchiveSpec{{SecondsPerPoint: 1, Count: 60}},
		XFilesFactor:      1.0,
		AggregationMethod: schema.Average,
		CacheRetention:    10,
		MetricsMaxNum:     4,
		CacheRatio:        1.2,
	}
}

func newTestCache(t *testing.T) *MetricCache {
	t.Helper()
	dir := t.TempDir()
	mc := New(Options{
		DataDir:             filepath.Join(dir, "data"),
		LinkDir:             filepath.Join(dir, "links"),
		Instance:            "test",
		IndexPath:           filepath.Join(dir, "test.idx"),
		MaxCreatesPerMinute: 600,
		Schemas:             fixedMatcher{testSchema()},
	})
	if err := mc.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return mc
}

func TestPutThenGetRoundTrip(t *testing.T) {
	mc := newTestCache(t)
	mc.Put("cpu.load", 1000, 42)
	mc.Put("cpu.load", 1001, 43)

	rows, ok := mc.Get("cpu.load")
	if !ok {
		t.Fatal("expected metric to be known after Put")
	}
	if len(rows) == 0 {
		t.Fatal("expected at least one buffered point")
	}
}

func TestStatsReflectsAllocation(t *testing.T) {
	mc := newTestCache(t)
	mc.Put("cpu.load", 1000, 1)
	mc.Put("mem.used", 1000, 2)

	stats := mc.Stats()
	if stats.MetricsKnown != 2 {
		t.Errorf("MetricsKnown = %d, want 2", stats.MetricsKnown)
	}
	if stats.Schemas != 1 {
		t.Errorf("Schemas = %d, want 1", stats.Schemas)
	}
}

func TestUnknownMetricGetFails(t *testing.T) {
	mc := newTestCache(t)
	if _, ok := mc.Get("never.seen"); ok {
		t.Fatal("expected ok=false for an unknown metric")
	}
}
