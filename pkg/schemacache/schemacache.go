// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package schemacache holds the ordered list of FileCaches belonging to
// one schema and the cursor used to allocate new metric slots across
// them.
package schemacache

import (
	"sync"

	"github.com/kenshin-db/kenshin/pkg/filecache"
	"github.com/kenshin-db/kenshin/pkg/schema"
)

// SchemaCache is an ordered, append-only list of FileCaches: files are
// created lazily as earlier ones fill up and are never removed.
type SchemaCache struct {
	mu      sync.Mutex
	schema  *schema.Schema
	files   []*filecache.FileCache
	currIdx int
}

// New creates an empty SchemaCache for s. Its first FileCache is
// created lazily on the first AllocFile call, not eagerly here.
func New(s *schema.Schema) *SchemaCache {
	return &SchemaCache{schema: s}
}

// AllocFile returns the index and FileCache to allocate the next metric
// slot into, advancing past any FileCache that has filled up and
// appending a new one if none remain with room.
func (sc *SchemaCache) AllocFile() (int, *filecache.FileCache) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for sc.currIdx < len(sc.files) && sc.files[sc.currIdx].IsMetricFull() {
		sc.currIdx++
	}
	if sc.currIdx >= len(sc.files) {
		sc.files = append(sc.files, filecache.New(sc.schema))
	}
	return sc.currIdx, sc.files[sc.currIdx]
}

// Add grows the file list as needed and returns the FileCache at
// fileIdx, used while replaying the index file at bootstrap: the caller
// still has to mark the specific slot used on the returned FileCache.
func (sc *SchemaCache) Add(fileIdx int) *filecache.FileCache {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	for len(sc.files) <= fileIdx {
		sc.files = append(sc.files, filecache.New(sc.schema))
	}
	return sc.files[fileIdx]
}

// Size returns the number of FileCaches currently in the list.
func (sc *SchemaCache) Size() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.files)
}

// Get returns the FileCache at fileIdx, or nil if out of range.
func (sc *SchemaCache) Get(fileIdx int) *filecache.FileCache {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if fileIdx < 0 || fileIdx >= len(sc.files) {
		return nil
	}
	return sc.files[fileIdx]
}

// All returns a snapshot slice of every FileCache currently tracked,
// used by the writer to enumerate files without holding this lock for
// the whole drain loop.
func (sc *SchemaCache) All() []*filecache.FileCache {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]*filecache.FileCache, len(sc.files))
	copy(out, sc.files)
	return out
}
