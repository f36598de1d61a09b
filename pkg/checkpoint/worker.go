// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package checkpoint

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/kenshin-db/kenshin/pkg/log"
	"github.com/kenshin-db/kenshin/pkg/metriccache"
)

// DefaultInterval is how often the Worker snapshots every FileCache.
const DefaultInterval = time.Minute

// Worker periodically snapshots every FileCache known to a MetricCache
// to its checkpoint directory.
type Worker struct {
	cache *metriccache.MetricCache
	dir   string
	sched gocron.Scheduler
}

// NewWorker builds a Worker that writes checkpoints under dir, in the
// same <instance>/<schema>/<file_idx>.avro layout archive files use
// under the data directory.
func NewWorker(cache *metriccache.MetricCache, dir string) *Worker {
	return &Worker{cache: cache, dir: dir}
}

// Start launches the periodic checkpoint job.
func (w *Worker) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	w.sched = sched

	if _, err := w.sched.NewJob(
		gocron.DurationJob(DefaultInterval),
		gocron.NewTask(w.snapshotAll),
	); err != nil {
		return err
	}

	w.sched.Start()
	return nil
}

// Stop takes one final snapshot and shuts the scheduler down.
func (w *Worker) Stop() error {
	w.snapshotAll()
	if w.sched != nil {
		return w.sched.Shutdown()
	}
	return nil
}

// RestoreAll loads every checkpoint file found under dir for cache's
// instance and replays it into the matching FileCache. It must run after
// MetricCache.Init so the index has already allocated the FileCaches a
// checkpoint might target; a checkpoint for a (schema, file_idx) pair
// Init never allocated is simply skipped, stale data left over from a
// schema that no longer has that file.
func RestoreAll(cache *metriccache.MetricCache, dir string) error {
	n := 0
	for _, ref := range cache.GetAllFileCaches() {
		fc := cache.FileCacheFor(ref)
		if fc == nil {
			continue
		}
		path := Path(dir, cache.Instance(), ref.SchemaName, ref.FileIdx)
		rows, err := Load(path)
		if err != nil {
			return fmt.Errorf("checkpoint: restoring %s/%d: %w", ref.SchemaName, ref.FileIdx, err)
		}
		if len(rows) == 0 {
			continue
		}
		Restore(fc, rows)
		n++
	}
	log.Infof("checkpoint: restored %d file caches", n)
	return nil
}

func (w *Worker) snapshotAll() {
	n := 0
	for _, ref := range w.cache.GetAllFileCaches() {
		rows := w.cache.Pop(ref.SchemaName, ref.FileIdx, nil, false)
		if len(rows) == 0 {
			continue
		}
		path := Path(w.dir, w.cache.Instance(), ref.SchemaName, ref.FileIdx)
		if err := Save(path, rows); err != nil {
			log.Errorf("checkpoint: snapshot of %s/%d failed: %v", ref.SchemaName, ref.FileIdx, err)
			continue
		}
		n++
	}
	log.Infof("checkpoint: snapshotted %d file caches", n)
}
