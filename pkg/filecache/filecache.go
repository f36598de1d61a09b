// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package filecache implements the in-memory ring buffer that absorbs
// recent writes for every metric sharing one archive file, so ingest
// never touches disk directly.
package filecache

import (
	"sync"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

// DefaultWaitTime is the grace period, in seconds, a FileCache must sit
// past its configured retention before it becomes eligible for flush —
// it gives late-arriving points a chance to land before the writer
// drains the ring.
const DefaultWaitTime = 10

// Row is one timestamp and its value for every metric slot, as returned
// by Get.
type Row struct {
	Timestamp uint32
	Values    []schema.Float
}

// FileCache is a flat metricsMaxNum*cacheSize array of values, a bitmap
// of which slots are allocated, and the ring bookkeeping (start
// timestamp, start offset, and the newest timestamp seen) needed to
// address it. One FileCache exists per archive file; many metrics share
// it, one per slot.
type FileCache struct {
	mu sync.Mutex

	metricsMaxNum int
	resolution    uint32
	retention     uint32
	cacheSize     int
	pointsNum     int

	bitmap          uint64
	availablePosIdx int

	points   []schema.Float
	baseIdxs []int

	startTs     *uint32
	maxTs       uint32
	startOffset int
}

// New builds an empty FileCache sized for s: cache_size is
// ⌊cache_retention/resolution⌋+1 slots per metric, overprovisioned by
// s.CacheRatio.
//
// metricsMaxNum is assumed to fit in 64 bits (the bitmap word); every
// schema in the retrieval pack and the defaults in spec.md keep
// metrics_max_num well under that, so a fixed-width bitmap is the
// idiomatic choice over a bit-slice that no configuration here needs.
func New(s *schema.Schema) *FileCache {
	resolution := s.FinestArchive().SecondsPerPoint
	pointsNum := int(s.CacheRetention/resolution) + 1
	cacheSize := int(float64(pointsNum) * s.CacheRatio)

	fc := &FileCache{
		metricsMaxNum: s.MetricsMaxNum,
		resolution:    resolution,
		retention:     s.CacheRetention,
		cacheSize:     cacheSize,
		pointsNum:     pointsNum,
		points:        make([]schema.Float, s.MetricsMaxNum*cacheSize),
		baseIdxs:      make([]int, s.MetricsMaxNum),
	}
	for i := range fc.points {
		fc.points[i] = schema.NullValue
	}
	for i := range fc.baseIdxs {
		fc.baseIdxs[i] = i * cacheSize
	}
	return fc
}

// AllocSlot reserves the next free slot, scanning forward from the
// cursor left by the previous allocation — slots are never freed, so
// the cursor never needs to look behind itself. ok is false once every
// slot is taken.
func (f *FileCache) AllocSlot() (slot int, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.availablePosIdx
	for i < f.metricsMaxNum && f.bitmap&(1<<uint(i)) != 0 {
		i++
	}
	if i >= f.metricsMaxNum {
		return 0, false
	}
	f.bitmap |= 1 << uint(i)
	f.availablePosIdx = i + 1
	return i, true
}

// MarkSlotUsed records an already-allocated slot during index-file
// replay at bootstrap, without touching the allocation cursor logic
// beyond what AllocSlot would have done.
func (f *FileCache) MarkSlotUsed(slot int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bitmap |= 1 << uint(slot)
	if slot >= f.availablePosIdx {
		f.availablePosIdx = slot + 1
	}
}

// IsMetricFull reports whether every slot is allocated.
func (f *FileCache) IsMetricFull() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bitmap+1 == 1<<uint(f.metricsMaxNum)
}

// IsEmpty reports whether the ring has never been written to.
func (f *FileCache) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startTs == nil
}

// CanWrite reports whether the ring has sat past its retention window
// plus DefaultWaitTime, and so is eligible for the writer to drain.
func (f *FileCache) CanWrite(now uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startTs == nil {
		return false
	}
	return int64(now)-int64(*f.startTs)-int64(f.retention) > DefaultWaitTime
}

// Put writes value for slot at timestamp ts. The first point after the
// ring empties establishes start_ts as its anchor; subsequent points
// are addressed by modular offset from that anchor. Timestamps older
// than start_ts, or far enough ahead to wrap past cache_size, silently
// overwrite via the same modular arithmetic — callers are expected to
// have already checked CanWrite before draining, not before writing.
func (f *FileCache) Put(slot int, ts uint32, value schema.Float) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startTs == nil {
		base := ts - ts%f.resolution
		f.startTs = &base
		f.points[f.baseIdxs[slot]] = value
	} else {
		idx := f.baseIdxs[slot] + f.offsetFor(ts)
		f.points[idx] = value
	}
	if ts > f.maxTs {
		f.maxTs = ts
	}
}

func (f *FileCache) offsetFor(ts uint32) int {
	interval := (int64(ts) - int64(*f.startTs)) / int64(f.resolution)
	return int((int64(f.startOffset) + interval) % int64(f.cacheSize))
}

// getOffset is the ring index of the slot for ts (used by Get as an
// exclusive end, so the row for ts itself is not returned), clamped to
// cache_size-1 rather than rejected — a far-future end_ts truncates
// instead of erroring, preserved exactly as the contract specifies.
func (f *FileCache) getOffset(ts uint32) int {
	interval := (int64(ts) - int64(*f.startTs)) / int64(f.resolution)
	if interval >= int64(f.cacheSize)-1 {
		interval = int64(f.cacheSize) - 1
	}
	return int((int64(f.startOffset) + interval) % int64(f.cacheSize))
}

// Get drains the ring into time-ordered rows. With clear set, read
// cells are reset to the null sentinel and the ring's start is advanced
// past them — or, if nothing newer has arrived since, reset to empty
// entirely.
func (f *FileCache) Get(endTs *uint32, clear bool) []Row {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.startTs == nil {
		return nil
	}

	beginOffset := f.startOffset
	var endOffset int
	if endTs != nil {
		endOffset = f.getOffset(*endTs)
	} else {
		endOffset = (f.startOffset + f.pointsNum) % f.cacheSize
	}

	length := endOffset - beginOffset
	if length <= 0 {
		length += f.cacheSize
	}

	rows := make([]Row, length)
	startTs := *f.startTs
	for i := 0; i < length; i++ {
		rows[i] = Row{Timestamp: startTs + uint32(i)*f.resolution, Values: make([]schema.Float, f.metricsMaxNum)}
	}

	for slot := 0; slot < f.metricsMaxNum; slot++ {
		for i := 0; i < length; i++ {
			idx := f.baseIdxs[slot] + (beginOffset+i)%f.cacheSize
			rows[i].Values[slot] = f.points[idx]
			if clear {
				f.points[idx] = schema.NullValue
			}
		}
	}

	if clear {
		nextTs := rows[length-1].Timestamp + f.resolution
		if f.maxTs < nextTs {
			f.startTs = nil
			f.startOffset = 0
		} else {
			f.startTs = &nextTs
			f.startOffset = endOffset
		}
	}

	return rows
}
