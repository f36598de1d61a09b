// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package writer

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kenshin-db/kenshin/pkg/archive"
	"github.com/kenshin-db/kenshin/pkg/filecache"
	"github.com/kenshin-db/kenshin/pkg/metriccache"
	"github.com/kenshin-db/kenshin/pkg/schema"
)

type fixedMatcher struct{ s *schema.Schema }

func (m fixedMatcher) Match(metric string) *schema.Schema      { return m.s }
func (m fixedMatcher) SchemaByName(name string) *schema.Schema { return m.s }

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

func TestRowsToPoints(t *testing.T) {
	rows := []filecache.Row{
		{Timestamp: 100, Values: []schema.Float{1, 2}},
		{Timestamp: 101, Values: []schema.Float{3, schema.NullValue}},
	}
	points := rowsToPoints(rows)
	if len(points) != 2 {
		t.Fatalf("len = %d, want 2", len(points))
	}
	if points[0].Timestamp != 100 || points[1].Timestamp != 101 {
		t.Errorf("timestamps not preserved: %+v", points)
	}
}

func TestStopFlushesBufferedPoints(t *testing.T) {
	dir := t.TempDir()
	mc := metriccache.New(metriccache.Options{
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

	now := uint32(time.Now().Unix())
	mc.Put("cpu.load", now, 42)

	w := New(mc, nil, false)
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	rows, ok := mc.Get("cpu.load")
	if !ok {
		t.Fatal("expected metric to remain known")
	}
	if len(rows) != 1 || rows[0].Values[0] != 42 {
		t.Errorf("expected Stop to leave the ring unchanged (one point, 42), got %+v", rows)
	}

	path := mc.FilePath(metriccache.FileRef{SchemaName: "default", FileIdx: 0})
	res, err := archive.Fetch(path, now-59, now+1, now+1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := res.Values[len(res.Values)-1][0]; got != 42 {
		t.Errorf("archive value at ts=%d = %v, want 42 flushed by Stop", now, got)
	}
}
