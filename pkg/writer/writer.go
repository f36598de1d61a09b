// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package writer drains buffered points out of a MetricCache into their
// archive files on a fixed interval, and performs a final best-effort
// flush of everything on shutdown.
package writer

import (
	"os"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/kenshin-db/kenshin/pkg/archive"
	"github.com/kenshin-db/kenshin/pkg/filecache"
	"github.com/kenshin-db/kenshin/pkg/log"
	"github.com/kenshin-db/kenshin/pkg/metriccache"
	"github.com/kenshin-db/kenshin/pkg/metrics"
)

// FlushInterval is how often the writer checks for writable file caches,
// matching the one-second poll period of the original writeForever loop.
const FlushInterval = time.Second

// Writer periodically pops writable FileCaches out of a MetricCache and
// commits them to their archive files.
type Writer struct {
	cache  *metriccache.MetricCache
	rec    *metrics.Recorder
	sched  gocron.Scheduler
	logAll bool
}

// New builds a Writer over cache. rec may be nil, in which case no
// metrics are recorded. If logAll is true, every successful flush is
// logged at info level, matching the teacher's LOG_UPDATES setting.
func New(cache *metriccache.MetricCache, rec *metrics.Recorder, logAll bool) *Writer {
	return &Writer{cache: cache, rec: rec, logAll: logAll}
}

// Start launches the background flush loop. Call Stop to drain
// remaining buffered points and shut the scheduler down.
func (w *Writer) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	w.sched = sched

	if _, err := w.sched.NewJob(
		gocron.DurationJob(FlushInterval),
		gocron.NewTask(w.tick),
	); err != nil {
		return err
	}

	w.sched.Start()
	return nil
}

// Stop flushes every remaining FileCache (writable or not) and shuts the
// scheduler down, mirroring writeCachedDataPointsWhenStop.
func (w *Writer) Stop() error {
	now := uint32(time.Now().Unix())
	for _, ref := range w.cache.GetAllFileCaches() {
		rows := w.cache.Pop(ref.SchemaName, ref.FileIdx, &now, false)
		if len(rows) == 0 {
			continue
		}
		w.commit(ref, rows, now)
	}

	if w.sched != nil {
		return w.sched.Shutdown()
	}
	return nil
}

// tick is the recurring task: it drains every currently writable
// FileCache once.
func (w *Writer) tick() {
	now := uint32(time.Now().Unix())
	for _, ref := range w.cache.WritableFileCaches(now) {
		rows := w.cache.Pop(ref.SchemaName, ref.FileIdx, nil, true)
		if len(rows) == 0 {
			continue
		}
		w.commit(ref, rows, now)
	}
}

func (w *Writer) commit(ref metriccache.FileRef, rows []filecache.Row, now uint32) {
	path := w.cache.FilePath(ref)
	points := rowsToPoints(rows)

	mtime := now
	if fi, err := os.Stat(path); err == nil {
		mtime = uint32(fi.ModTime().Unix())
	}

	t0 := time.Now()
	err := archive.Update(path, points, now, mtime)
	dur := time.Since(t0).Seconds()

	if err != nil {
		log.Errorf("writer: error writing to %s: %v", path, err)
		if w.rec != nil {
			w.rec.ErrorsTotal.Inc()
		}
		return
	}

	if w.rec != nil {
		w.rec.CommittedPointsTotal.Add(float64(len(points)))
		w.rec.UpdateDuration.Observe(dur)
	}
	if w.logAll {
		log.Infof("writer: wrote %d datapoints for %s in %.5f secs", len(points), ref.SchemaName, dur)
	}
}

func rowsToPoints(rows []filecache.Row) []archive.Point {
	points := make([]archive.Point, len(rows))
	for i, r := range rows {
		points[i] = archive.Point{Timestamp: r.Timestamp, Values: r.Values}
	}
	return points
}
