// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package archive

import (
	"fmt"
	"os"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

// Result is the aligned timeline returned by Fetch.
type Result struct {
	Header *Header
	From   uint32
	Until  uint32
	Step   uint32
	Values [][]schema.Float // one row per time step, one column per metric slot
}

// Fetch reads the aligned timeline for [fromTime, untilTime) from the
// archive file at path, selecting the finest retention tier that still
// covers the requested range. Missing samples are schema.NullValue.
func Fetch(path string, fromTime, untilTime, now uint32) (*Result, error) {
	if fromTime >= untilTime || untilTime > now {
		return nil, fmt.Errorf("%w: from=%d until=%d now=%d", ErrInvalidTime, fromTime, untilTime, now)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	header, err := ReadHeader(f)
	if err != nil {
		return nil, err
	}

	if oldestAllowed := now - header.MaxRetention; fromTime < oldestAllowed {
		fromTime = oldestAllowed
	}

	age := now - fromTime
	var chosen *ArchiveInfo
	for i := range header.Archives {
		if header.Archives[i].Retention() >= age {
			chosen = &header.Archives[i]
			break
		}
	}
	if chosen == nil {
		chosen = &header.Archives[len(header.Archives)-1]
	}
	step := chosen.SecondsPerPoint

	from := ceilDivU32(fromTime, step) * step
	until := ceilDivU32(untilTime, step) * step
	if until <= from {
		until = from + step
	}
	cnt := (until - from) / step

	values := make([][]schema.Float, cnt)
	for i := range values {
		row := make([]schema.Float, header.MetricsMaxNum)
		for j := range row {
			row[j] = schema.NullValue
		}
		values[i] = row
	}

	baseTs, err := readBasePoint(f, *chosen)
	if err != nil {
		return nil, err
	}
	if baseTs == 0 {
		return &Result{Header: header, From: from, Until: until, Step: step, Values: values}, nil
	}

	fromOffset := timestamp2Offset(*chosen, header.PointSize, baseTs, from)
	points, err := readRange(f, *chosen, header.PointSize, header.MetricsMaxNum, fromOffset, cnt)
	if err != nil {
		return nil, err
	}

	for i, p := range points {
		expectedTs := from + uint32(i)*step
		if p.Timestamp != expectedTs || p.Timestamp < from || p.Timestamp >= until {
			continue
		}
		values[i] = p.Values
	}

	return &Result{Header: header, From: from, Until: until, Step: step, Values: values}, nil
}

func ceilDivU32(n, d uint32) uint32 {
	return (n + d - 1) / d
}
