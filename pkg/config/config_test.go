// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

const storageDoc = `{
  "schemas": [
    {
      "name": "cpu",
      "pattern": "^cpu\\.",
      "xFilesFactor": 0.5,
      "aggregationMethod": "average",
      "retentions": ["1s:1h", "1m:7d"],
      "cacheRetention": "10m",
      "metricsPerFile": 40,
      "cacheRatio": 1.2
    }
  ]
}`

const instanceDoc = `{
  "instance": "a",
  "dataDir": "/var/kenshin/data",
  "linkDir": "/var/kenshin/links",
  "indexFile": "/var/kenshin/index/a.idx",
  "maxCreatesPerMinute": 100,
  "waitTime": 10
}`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadStorageSchemasMatchesAndFallsBack(t *testing.T) {
	path := writeFile(t, storageDoc)
	ss, err := LoadStorageSchemas(path)
	if err != nil {
		t.Fatalf("LoadStorageSchemas: %v", err)
	}

	got := ss.Match("cpu.load")
	if got.Name != "cpu" {
		t.Errorf("Match(cpu.load).Name = %q, want %q", got.Name, "cpu")
	}
	if len(got.ArchiveList) != 2 {
		t.Errorf("ArchiveList len = %d, want 2", len(got.ArchiveList))
	}

	fallback := ss.Match("mem.used")
	if fallback != DefaultSchema {
		t.Errorf("Match(mem.used) did not fall back to DefaultSchema")
	}
}

func TestLoadStorageSchemasRejectsInvalidDocument(t *testing.T) {
	path := writeFile(t, `{"schemas": [{"name": "bad"}]}`)
	if _, err := LoadStorageSchemas(path); err == nil {
		t.Fatal("expected validation error for missing required fields")
	}
}

func TestSchemaByName(t *testing.T) {
	path := writeFile(t, storageDoc)
	ss, err := LoadStorageSchemas(path)
	if err != nil {
		t.Fatalf("LoadStorageSchemas: %v", err)
	}
	if s := ss.SchemaByName("cpu"); s == nil || s.AggregationMethod != schema.Average {
		t.Errorf("SchemaByName(cpu) = %+v", s)
	}
	if ss.SchemaByName("default") != DefaultSchema {
		t.Error("SchemaByName(default) should return DefaultSchema")
	}
	if ss.SchemaByName("nope") != nil {
		t.Error("SchemaByName(nope) should return nil")
	}
}

func TestLoadInstance(t *testing.T) {
	path := writeFile(t, instanceDoc)
	inst, err := LoadInstance(path)
	if err != nil {
		t.Fatalf("LoadInstance: %v", err)
	}
	if inst.Name != "a" || inst.MaxCreatesPerMinute != 100 || inst.WaitTime != 10 {
		t.Errorf("unexpected instance: %+v", inst)
	}
}

func TestLoadInstanceRejectsMissingRequiredField(t *testing.T) {
	path := writeFile(t, `{"instance": "a"}`)
	if _, err := LoadInstance(path); err == nil {
		t.Fatal("expected validation error for missing dataDir/linkDir/indexFile")
	}
}
