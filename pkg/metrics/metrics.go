// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics holds the in-process counters and histograms the
// writer and the metric cache emit. No HTTP exporter is started here —
// a caller registers these collectors with whatever registry (or none)
// its own process uses.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder bundles the handful of counters the core emits about
// itself. The zero value is not usable; construct one with New.
type Recorder struct {
	ErrorsTotal          prometheus.Counter
	DroppedTotal         prometheus.Counter
	CommittedPointsTotal prometheus.Counter
	UpdateDuration       prometheus.Histogram
}

// New builds a Recorder with fresh, unregistered collectors.
func New() *Recorder {
	return &Recorder{
		ErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kenshin",
			Name:      "errors_total",
			Help:      "Archive writes that failed and were skipped by the writer loop.",
		}),
		DroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kenshin",
			Name:      "dropped_total",
			Help:      "Points dropped because the metric-creation rate limit was exceeded.",
		}),
		CommittedPointsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kenshin",
			Name:      "committed_points_total",
			Help:      "Points successfully written to an archive file.",
		}),
		UpdateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kenshin",
			Name:      "update_duration_seconds",
			Help:      "Time spent in a single archive file update call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Collectors returns every collector in the Recorder, for bulk
// registration with a prometheus.Registerer.
func (r *Recorder) Collectors() []prometheus.Collector {
	return []prometheus.Collector{r.ErrorsTotal, r.DroppedTotal, r.CommittedPointsTotal, r.UpdateDuration}
}

// IncDropped implements metriccache.DropRecorder.
func (r *Recorder) IncDropped() {
	r.DroppedTotal.Inc()
}
