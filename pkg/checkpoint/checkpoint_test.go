// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package checkpoint

import (
	"path/filepath"
	"testing"

	"github.com/kenshin-db/kenshin/pkg/filecache"
	"github.com/kenshin-db/kenshin/pkg/schema"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	rows := []filecache.Row{
		{Timestamp: 1000, Values: []schema.Float{1, 2, schema.NullValue}},
		{Timestamp: 1001, Values: []schema.Float{3, schema.NullValue, 6}},
	}

	path := filepath.Join(t.TempDir(), "0.avro")
	if err := Save(path, rows); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(rows))
	}
	for i, row := range rows {
		if got[i].Timestamp != row.Timestamp {
			t.Errorf("row %d timestamp = %d, want %d", i, got[i].Timestamp, row.Timestamp)
		}
		for j, v := range row.Values {
			if got[i].Values[j] != v {
				t.Errorf("row %d value %d = %v, want %v", i, j, got[i].Values[j], v)
			}
		}
	}
}

func TestLoadMissingFileReturnsNoRows(t *testing.T) {
	rows, err := Load(filepath.Join(t.TempDir(), "missing.avro"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rows != nil {
		t.Errorf("expected nil rows for a missing checkpoint, got %v", rows)
	}
}

func TestRestoreSkipsNullValues(t *testing.T) {
	s := &schema.Schema{
		Name:              "default",
		ArchiveList:       []schema.ArchiveSpec{{SecondsPerPoint: 1, Count: 60}},
		XFilesFactor:      1.0,
		AggregationMethod: schema.Average,
		CacheRetention:    10,
		MetricsMaxNum:     2,
		CacheRatio:        1.2,
	}
	fc := filecache.New(s)

	rows := []filecache.Row{
		{Timestamp: 1000, Values: []schema.Float{1, schema.NullValue}},
	}
	Restore(fc, rows)

	if fc.IsEmpty() {
		t.Fatal("expected Restore to have written into the ring")
	}
}
