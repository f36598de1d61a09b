// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package schema

import "regexp"

// AggregationMethod names one of the five aggregation functions an
// archive tier may use to downsample into the next coarser tier. The
// numeric id is persisted in every archive file header, so the ordering
// below is part of the on-disk format and must never change.
type AggregationMethod uint32

const (
	Average AggregationMethod = iota
	Sum
	Last
	Max
	Min
)

var aggNames = [...]string{"average", "sum", "last", "max", "min"}

func (m AggregationMethod) String() string {
	if int(m) < len(aggNames) {
		return aggNames[m]
	}
	return "unknown"
}

// AggregationMethodByName looks up the method by its lower-case name,
// the inverse of String. ok is false for anything not in the closed set.
func AggregationMethodByName(name string) (m AggregationMethod, ok bool) {
	for i, n := range aggNames {
		if n == name {
			return AggregationMethod(i), true
		}
	}
	return 0, false
}

// ArchiveSpec describes one retention tier: a point is stored every
// SecondsPerPoint seconds, and Count points are kept before the ring
// wraps, for a total retention of SecondsPerPoint*Count seconds.
type ArchiveSpec struct {
	SecondsPerPoint uint32
	Count           uint32
}

// Retention is the tier's total coverage in seconds.
func (a ArchiveSpec) Retention() uint32 {
	return a.SecondsPerPoint * a.Count
}

// Schema is the immutable, externally-supplied configuration for one
// family of metrics: which metric names it applies to, how many
// retention tiers it keeps and at what resolutions, and how many
// distinct metrics may share one archive file.
//
// Schema values are loaded once at process start and never mutated; the
// cache and archive layers only ever read from them.
type Schema struct {
	Name               string
	Pattern            *regexp.Regexp
	ArchiveList        []ArchiveSpec
	XFilesFactor       float32
	AggregationMethod  AggregationMethod
	CacheRetention     uint32
	MetricsMaxNum      int
	CacheRatio         float64
}

// Matches reports whether metric belongs to this schema.
func (s *Schema) Matches(metric string) bool {
	return s.Pattern != nil && s.Pattern.MatchString(metric)
}

// FinestArchive is the first (smallest-step) retention tier.
func (s *Schema) FinestArchive() ArchiveSpec {
	return s.ArchiveList[0]
}

// MaxRetention is the coverage of the coarsest (last) retention tier,
// persisted verbatim into the archive file header as max_retention.
func (s *Schema) MaxRetention() uint32 {
	last := s.ArchiveList[len(s.ArchiveList)-1]
	return last.Retention()
}
