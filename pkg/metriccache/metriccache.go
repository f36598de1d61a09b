// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metriccache implements the global metric-to-slot index: the
// single process-wide map from metric name to (schema, file, slot),
// the append-only index file that makes that map durable, and the
// token-bucket rate limit on how fast new metrics may be admitted.
package metriccache

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/kenshin-db/kenshin/pkg/archive"
	"github.com/kenshin-db/kenshin/pkg/filecache"
	"github.com/kenshin-db/kenshin/pkg/log"
	"github.com/kenshin-db/kenshin/pkg/schema"
	"github.com/kenshin-db/kenshin/pkg/schemacache"
	"github.com/kenshin-db/kenshin/pkg/tokenbucket"
)

// ErrTokenBucketFull is returned by Put's internal slot-allocation path
// when the create-rate limit rejects a brand new metric. Callers drop
// the point silently and count it; this error never reaches Put's
// caller.
var ErrTokenBucketFull = errors.New("metriccache: token bucket empty, metric creation rejected")

// SchemaMatcher is the external collaborator that maps a metric name to
// its immutable Schema (first pattern match, else a default schema).
// Configuration loading and schema matching are deliberately outside
// this package's responsibility; this interface is the boundary.
type SchemaMatcher interface {
	Match(metric string) *schema.Schema
	SchemaByName(name string) *schema.Schema
}

// MetricLocation is where a metric's points live: which schema's
// FileCache list, which file within it, and which slot within that
// file.
type MetricLocation struct {
	SchemaName string
	FileIdx    int
	Slot       int
}

// FileRef names one (schema, file_idx) pair, as returned by
// WritableFileCaches and GetAllFileCaches.
type FileRef struct {
	SchemaName string
	FileIdx    int
}

// DropRecorder receives a tick every time a point is dropped for a
// reason other than malformed input — currently only rate-limit
// rejection. A nil DropRecorder is valid; ticks are simply discarded.
type DropRecorder interface {
	IncDropped()
}

// Options configures a MetricCache.
type Options struct {
	DataDir  string
	LinkDir  string
	Instance string

	// IndexPath is the append-only index file's path.
	IndexPath string

	// MaxCreatesPerMinute bounds new-metric slot allocation; the token
	// bucket's capacity equals this value and its fill rate is
	// capacity/60.
	MaxCreatesPerMinute float64

	Schemas SchemaMatcher

	// RebuildIndex scans existing archive files under DataDir and
	// (re)writes IndexPath. Called only when DataDir exists but
	// IndexPath does not.
	RebuildIndex func(dataDir, indexPath string) error

	// RebuildLink recreates the link-dir symlink mirror from the
	// archive files' tag lists. Called only when LinkDir is missing.
	RebuildLink func(dataDir, linkDir string) error

	// CreateLink creates the per-metric symlink on first allocation.
	// Defaults to DefaultCreateLink if nil.
	CreateLink CreateLinkFunc

	Drops DropRecorder
}

// MetricCache is the process-wide metric index. Its lock guards
// metricIdxs, the schemaCaches map, the token bucket, and the index
// file append — per the core's lock-ordering contract, MetricCache's
// lock is always acquired before any FileCache's.
type MetricCache struct {
	mu sync.Mutex

	opts Options

	metricIdxs   map[string]MetricLocation
	schemaCaches map[string]*schemacache.SchemaCache

	bucket *tokenbucket.Bucket

	indexFile *os.File
	indexW    *bufio.Writer
}

// New allocates a MetricCache. Call Init before using it.
func New(opts Options) *MetricCache {
	if opts.CreateLink == nil {
		opts.CreateLink = DefaultCreateLink
	}
	if opts.RebuildIndex == nil {
		opts.RebuildIndex = DefaultRebuildIndex
	}
	if opts.RebuildLink == nil {
		opts.RebuildLink = DefaultRebuildLink
	}
	return &MetricCache{
		opts:         opts,
		metricIdxs:   make(map[string]MetricLocation),
		schemaCaches: make(map[string]*schemacache.SchemaCache),
	}
}

// Init performs the bootstrap sequence: rebuild the index file from
// disk if missing, rebuild the link-dir mirror if missing, create the
// token bucket, and replay the index file into memory. It must be
// called exactly once before Put/Get/WritableFileCaches are used.
func (mc *MetricCache) Init() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	instanceDataDir := filepath.Join(mc.opts.DataDir, mc.opts.Instance)
	instanceLinkDir := filepath.Join(mc.opts.LinkDir, mc.opts.Instance)

	if _, err := os.Stat(instanceDataDir); err == nil {
		if _, err := os.Stat(mc.opts.IndexPath); os.IsNotExist(err) {
			if mc.opts.RebuildIndex != nil {
				log.Infof("metriccache: rebuilding missing index file %s", mc.opts.IndexPath)
				if err := mc.opts.RebuildIndex(instanceDataDir, mc.opts.IndexPath); err != nil {
					return fmt.Errorf("metriccache: rebuild_index hook: %w", err)
				}
			}
		}
	}
	if _, err := os.Stat(instanceLinkDir); os.IsNotExist(err) {
		if mc.opts.RebuildLink != nil {
			log.Infof("metriccache: rebuilding missing link directory %s", instanceLinkDir)
			if err := mc.opts.RebuildLink(instanceDataDir, instanceLinkDir); err != nil {
				return fmt.Errorf("metriccache: rebuild_link hook: %w", err)
			}
		}
	}

	capacity := mc.opts.MaxCreatesPerMinute
	mc.bucket = tokenbucket.New(capacity, capacity/60)

	if err := mc.replayIndex(); err != nil {
		return err
	}

	f, err := os.OpenFile(mc.opts.IndexPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("metriccache: opening index file for append: %w", err)
	}
	mc.indexFile = f
	mc.indexW = bufio.NewWriter(f)
	return nil
}

// replayIndex reads every well-formed line of the index file into
// memory. Up to one malformed trailing line (a partial write from a
// crash mid-append) is tolerated; a second malformed line is fatal.
func (mc *MetricCache) replayIndex() error {
	f, err := os.Open(mc.opts.IndexPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("metriccache: opening index file: %w", err)
	}
	defer f.Close()

	malformed := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 4 {
			malformed++
			if malformed > 1 {
				return fmt.Errorf("metriccache: index file has more than one malformed line")
			}
			continue
		}
		fileIdx, err1 := strconv.Atoi(fields[2])
		slot, err2 := strconv.Atoi(fields[3])
		if err1 != nil || err2 != nil {
			malformed++
			if malformed > 1 {
				return fmt.Errorf("metriccache: index file has more than one malformed line")
			}
			continue
		}
		loc := MetricLocation{SchemaName: fields[1], FileIdx: fileIdx, Slot: slot}
		mc.metricIdxs[fields[0]] = loc
		mc.schemaCacheLocked(loc.SchemaName).Add(loc.FileIdx).MarkSlotUsed(loc.Slot)
	}
	return scanner.Err()
}

// schemaCacheLocked returns the SchemaCache for schemaName, creating it
// (and resolving the schema definition itself) on first reference.
// Callers must already hold mc.mu.
func (mc *MetricCache) schemaCacheLocked(schemaName string) *schemacache.SchemaCache {
	sc, ok := mc.schemaCaches[schemaName]
	if !ok {
		s := mc.opts.Schemas.SchemaByName(schemaName)
		sc = schemacache.New(s)
		mc.schemaCaches[schemaName] = sc
	}
	return sc
}

// Put routes one point into the metric's FileCache slot, allocating a
// new slot on first sight of metric. Rate-limit rejections are dropped
// silently, matching the "never fails observably" contract.
func (mc *MetricCache) Put(metric string, ts uint32, value schema.Float) {
	loc, fc, err := mc.locate(metric)
	if err != nil {
		if errors.Is(err, ErrTokenBucketFull) && mc.opts.Drops != nil {
			mc.opts.Drops.IncDropped()
		}
		return
	}
	fc.Put(loc.Slot, ts, value)
}

// locate returns the FileCache a metric's points should be written to,
// allocating a new index entry if this is the first time metric has
// been seen.
func (mc *MetricCache) locate(metric string) (MetricLocation, *filecache.FileCache, error) {
	mc.mu.Lock()
	if loc, ok := mc.metricIdxs[metric]; ok {
		sc := mc.schemaCaches[loc.SchemaName]
		mc.mu.Unlock()
		return loc, sc.Get(loc.FileIdx), nil
	}

	if !mc.bucket.Consume(1) {
		mc.mu.Unlock()
		return MetricLocation{}, nil, ErrTokenBucketFull
	}

	s := mc.opts.Schemas.Match(metric)
	sc := mc.schemaCacheLocked(s.Name)
	fileIdx, fc := sc.AllocFile()
	slot, ok := fc.AllocSlot()
	if !ok {
		mc.mu.Unlock()
		return MetricLocation{}, nil, fmt.Errorf("metriccache: newly allocated file for %s has no free slot", s.Name)
	}
	loc := MetricLocation{SchemaName: s.Name, FileIdx: fileIdx, Slot: slot}
	mc.metricIdxs[metric] = loc

	path := FilePath(mc.opts.DataDir, mc.opts.Instance, s.Name, fileIdx)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		tagList := make([]string, s.MetricsMaxNum)
		if err := archive.Create(path, tagList, s.ArchiveList, s.XFilesFactor, s.AggregationMethod); err != nil {
			mc.mu.Unlock()
			return MetricLocation{}, nil, fmt.Errorf("metriccache: creating archive file: %w", err)
		}
	}
	if err := archive.AddTag(path, metric, slot); err != nil {
		mc.mu.Unlock()
		return MetricLocation{}, nil, fmt.Errorf("metriccache: tagging slot: %w", err)
	}

	linkPath := LinkPath(mc.opts.LinkDir, mc.opts.Instance, metric)
	if err := mc.opts.CreateLink(metric, path, linkPath); err != nil {
		log.Warnf("metriccache: creating link for %s: %v", metric, err)
	}

	if mc.indexW != nil {
		if _, err := mc.indexW.WriteString(indexLine(metric, loc)); err != nil {
			log.Warnf("metriccache: appending index line for %s: %v", metric, err)
		} else {
			_ = mc.indexW.Flush()
		}
	}

	mc.mu.Unlock()
	return loc, fc, nil
}

// Get returns the non-null (timestamp, value) pairs currently buffered
// for metric, or ok=false if metric is unknown.
func (mc *MetricCache) Get(metric string) ([]filecache.Row, bool) {
	mc.mu.Lock()
	loc, ok := mc.metricIdxs[metric]
	if !ok {
		mc.mu.Unlock()
		return nil, false
	}
	fc := mc.schemaCaches[loc.SchemaName].Get(loc.FileIdx)
	mc.mu.Unlock()

	rows := fc.Get(nil, false)
	out := make([]filecache.Row, 0, len(rows))
	for _, r := range rows {
		if !r.Values[loc.Slot].IsNull() {
			out = append(out, filecache.Row{Timestamp: r.Timestamp, Values: []schema.Float{r.Values[loc.Slot]}})
		}
	}
	return out, true
}

// WritableFileCaches lists every (schema, file_idx) pair whose
// FileCache.CanWrite is currently true, for the writer to drain.
func (mc *MetricCache) WritableFileCaches(now uint32) []FileRef {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	var refs []FileRef
	for name, sc := range mc.schemaCaches {
		for idx, fc := range sc.All() {
			if fc.CanWrite(now) {
				refs = append(refs, FileRef{SchemaName: name, FileIdx: idx})
			}
		}
	}
	return refs
}

// GetAllFileCaches lists every (schema, file_idx) pair regardless of
// writability, used by the writer's shutdown flush and by the checkpoint
// package's snapshot and restore.
func (mc *MetricCache) GetAllFileCaches() []FileRef {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	var refs []FileRef
	for name, sc := range mc.schemaCaches {
		for idx := range sc.All() {
			refs = append(refs, FileRef{SchemaName: name, FileIdx: idx})
		}
	}
	return refs
}

// Pop drains the FileCache for (schemaName, fileIdx), proxying to
// FileCache.Get.
func (mc *MetricCache) Pop(schemaName string, fileIdx int, endTs *uint32, clear bool) []filecache.Row {
	mc.mu.Lock()
	sc, ok := mc.schemaCaches[schemaName]
	mc.mu.Unlock()
	if !ok {
		return nil
	}
	fc := sc.Get(fileIdx)
	if fc == nil {
		return nil
	}
	return fc.Get(endTs, clear)
}

// FilePath returns the on-disk archive path for a FileRef, for callers
// (the writer loop) that need to pass it to archive.Update themselves.
func (mc *MetricCache) FilePath(ref FileRef) string {
	return FilePath(mc.opts.DataDir, mc.opts.Instance, ref.SchemaName, ref.FileIdx)
}

// Instance returns the instance name this cache was configured with, for
// callers (the checkpoint worker) that need to build paths of their own.
func (mc *MetricCache) Instance() string {
	return mc.opts.Instance
}

// FileCacheFor returns the underlying FileCache for ref, or nil if it is
// not known. Exposed only for the checkpoint package's warm-restart
// replay, which must call FileCache.Put directly rather than going
// through the index-file/allocation path Put(metric, ...) uses.
func (mc *MetricCache) FileCacheFor(ref FileRef) *filecache.FileCache {
	mc.mu.Lock()
	sc, ok := mc.schemaCaches[ref.SchemaName]
	mc.mu.Unlock()
	if !ok {
		return nil
	}
	return sc.Get(ref.FileIdx)
}

// Stats is a point-in-time snapshot of index size, used by
// introspection tooling (a rurouni-cache-query style surface, not a
// CLI itself).
type Stats struct {
	MetricsKnown int
	Schemas      int
	FilesBySchema map[string]int
}

// Stats reports counts of known metrics, schemas, and files per schema.
func (mc *MetricCache) Stats() Stats {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	s := Stats{
		MetricsKnown:  len(mc.metricIdxs),
		Schemas:       len(mc.schemaCaches),
		FilesBySchema: make(map[string]int, len(mc.schemaCaches)),
	}
	for name, sc := range mc.schemaCaches {
		s.FilesBySchema[name] = sc.Size()
	}
	return s
}

// Close flushes and closes the index file.
func (mc *MetricCache) Close() error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.indexW != nil {
		_ = mc.indexW.Flush()
	}
	if mc.indexFile != nil {
		return mc.indexFile.Close()
	}
	return nil
}
