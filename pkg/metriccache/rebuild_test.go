// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metriccache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kenshin-db/kenshin/pkg/archive"
	"github.com/kenshin-db/kenshin/pkg/schema"
)

func TestDefaultRebuildIndexWritesKnownMetrics(t *testing.T) {
	dataDir := t.TempDir()
	schemaDir := filepath.Join(dataDir, "default")
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		t.Fatal(err)
	}

	fp := filepath.Join(schemaDir, "0.hs")
	tagList := make([]string, 4)
	tagList[1] = "cpu.load"
	archives := []schema.ArchiveSpec{{SecondsPerPoint: 1, Count: 60}}
	if err := archive.Create(fp, tagList, archives, 1.0, schema.Average); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := archive.AddTag(fp, "cpu.load", 1); err != nil {
		t.Fatalf("AddTag: %v", err)
	}

	indexPath := filepath.Join(dataDir, "index.idx")
	if err := DefaultRebuildIndex(dataDir, indexPath); err != nil {
		t.Fatalf("DefaultRebuildIndex: %v", err)
	}

	content, err := os.ReadFile(indexPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := string(content); got != "cpu.load default 0 1\n" {
		t.Errorf("index content = %q", got)
	}
}

func TestDefaultRebuildIndexRemovesEmptyFiles(t *testing.T) {
	dataDir := t.TempDir()
	schemaDir := filepath.Join(dataDir, "default")
	if err := os.MkdirAll(schemaDir, 0o755); err != nil {
		t.Fatal(err)
	}

	fp := filepath.Join(schemaDir, "0.hs")
	archives := []schema.ArchiveSpec{{SecondsPerPoint: 1, Count: 60}}
	if err := archive.Create(fp, make([]string, 4), archives, 1.0, schema.Average); err != nil {
		t.Fatalf("Create: %v", err)
	}

	indexPath := filepath.Join(dataDir, "index.idx")
	if err := DefaultRebuildIndex(dataDir, indexPath); err != nil {
		t.Fatalf("DefaultRebuildIndex: %v", err)
	}

	if _, err := os.Stat(fp); !os.IsNotExist(err) {
		t.Error("expected the fully-empty archive file to be removed")
	}
}
