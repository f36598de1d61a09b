// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package agg implements the closed set of five aggregation functions an
// archive tier may use to downsample into its next coarser neighbour.
package agg

import "github.com/kenshin-db/kenshin/pkg/schema"

// Func reduces a non-empty slice of values to one aggregate value. It is
// only ever called with at least one element; callers are responsible for
// stripping the null sentinel out of vals beforehand.
type Func func(vals []schema.Float) schema.Float

var funcs = [...]Func{
	schema.Average: average,
	schema.Sum:     sum,
	schema.Last:    last,
	schema.Max:     max_,
	schema.Min:     min_,
}

// For selects the aggregation function by id. The id is part of the
// on-disk format, so this lookup must never change ordering.
func For(m schema.AggregationMethod) Func {
	return funcs[m]
}

func average(vals []schema.Float) schema.Float {
	return sum(vals) / schema.Float(len(vals))
}

func sum(vals []schema.Float) schema.Float {
	var s schema.Float
	for _, v := range vals {
		s += v
	}
	return s
}

// last returns the final element by position, not by timestamp; callers
// are expected to hand this function an already time-ordered slice.
func last(vals []schema.Float) schema.Float {
	return vals[len(vals)-1]
}

func max_(vals []schema.Float) schema.Float {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func min_(vals []schema.Float) schema.Float {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
