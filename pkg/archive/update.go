// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package archive

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/kenshin-db/kenshin/pkg/agg"
	"github.com/kenshin-db/kenshin/pkg/schema"
)

// Update writes a batch of points to the archive file at path. now is
// used to decide, per retention tier, which points are still within
// that tier's window; mtime (pass 0 to default to now) widens the
// propagated range to account for points written by an earlier, still
// in-flight batch.
func Update(path string, points []Point, now uint32, mtime uint32) error {
	if len(points) == 0 {
		return nil
	}
	if mtime == 0 {
		mtime = now
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	header, err := ReadHeader(f)
	if err != nil {
		return err
	}

	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp > sorted[j].Timestamp })

	remaining := sorted
	for i, a := range header.Archives {
		cutoff := int64(now) - int64(a.Retention())
		idx := sort.Search(len(remaining), func(j int) bool { return int64(remaining[j].Timestamp) < cutoff })
		batch := remaining[:idx]
		remaining = remaining[idx:]
		if len(batch) == 0 {
			continue
		}
		if err := updateArchive(f, header, i, batch, mtime); err != nil {
			return err
		}
	}
	return nil
}

// alignAndDedupe rounds every point's timestamp down to the archive
// step and removes duplicates, keeping the value seen last when walking
// points in the order given (points arrives sorted newest-first, so the
// oldest raw sample in a colliding group is what survives — this
// matches the behaviour of the source this format is grounded on).
func alignAndDedupe(points []Point, step uint32) []Point {
	seen := make(map[uint32]Point, len(points))
	order := make([]uint32, 0, len(points))
	for _, p := range points {
		ts := p.Timestamp - p.Timestamp%step
		if _, ok := seen[ts]; !ok {
			order = append(order, ts)
		}
		seen[ts] = Point{Timestamp: ts, Values: p.Values}
	}
	result := make([]Point, len(order))
	for i, ts := range order {
		result[i] = seen[ts]
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp < result[j].Timestamp })
	return result
}

// groupRuns partitions an ascending, step-aligned point slice into
// maximal runs of consecutive points exactly one step apart, each run
// written to disk as a single contiguous byte range.
func groupRuns(points []Point, step uint32) [][]Point {
	var runs [][]Point
	var cur []Point
	for _, p := range points {
		if len(cur) > 0 && p.Timestamp != cur[len(cur)-1].Timestamp+step {
			runs = append(runs, cur)
			cur = nil
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		runs = append(runs, cur)
	}
	return runs
}

// updateArchive writes batch (already filtered to this tier's retention
// window) into archive index idx, establishing the base point if the
// archive was empty, then propagates the affected range into the next
// coarser tier if one exists.
func updateArchive(f *os.File, header *Header, idx int, batch []Point, mtime uint32) error {
	a := header.Archives[idx]
	aligned := alignAndDedupe(batch, a.SecondsPerPoint)
	if len(aligned) == 0 {
		return nil
	}

	baseTs, err := readBasePoint(f, a)
	if err != nil {
		return err
	}
	if baseTs == 0 {
		baseTs = aligned[0].Timestamp
	}

	runs := groupRuns(aligned, a.SecondsPerPoint)
	for _, run := range runs {
		buf := make([]byte, len(run)*int(header.PointSize))
		for i, p := range run {
			packPoint(buf[i*int(header.PointSize):(i+1)*int(header.PointSize)], p)
		}
		start := timestamp2Offset(a, header.PointSize, baseTs, run[0].Timestamp)
		if err := writeRun(f, a, header.PointSize, start, buf); err != nil {
			return err
		}
	}

	oldestWritten := aligned[0].Timestamp
	newestWritten := aligned[len(aligned)-1].Timestamp

	if idx+1 >= len(header.Archives) {
		return nil
	}
	from := mtime
	if oldestWritten < from {
		from = oldestWritten
	}
	return propagate(f, header, idx, idx+1, from, newestWritten)
}

// propagate downsamples the fine tier at header.Archives[fineIdx] into
// the coarse tier at header.Archives[coarseIdx] for the affected range
// [from, until], recursing into any further tiers via updateArchive.
func propagate(f *os.File, header *Header, fineIdx, coarseIdx int, from, until uint32) error {
	fine := header.Archives[fineIdx]
	coarse := header.Archives[coarseIdx]

	ratio := math.Ceil(float64(coarse.SecondsPerPoint) / float64(fine.SecondsPerPoint) * float64(header.XFilesFactor))
	timeunit := uint32(ratio) * fine.SecondsPerPoint
	if timeunit == 0 {
		timeunit = fine.SecondsPerPoint
	}

	if from/timeunit == until/timeunit && from%timeunit != 0 {
		return nil
	}

	lowerStart := (from / coarse.SecondsPerPoint) * coarse.SecondsPerPoint
	lowerEnd := ((until + coarse.SecondsPerPoint - 1) / coarse.SecondsPerPoint) * coarse.SecondsPerPoint
	if lowerEnd <= lowerStart {
		lowerEnd = lowerStart + coarse.SecondsPerPoint
	}

	baseTs, err := readBasePoint(f, fine)
	if err != nil {
		return err
	}
	if baseTs == 0 {
		return nil
	}

	aggCnt := coarse.SecondsPerPoint / fine.SecondsPerPoint
	numFine := (lowerEnd - lowerStart) / fine.SecondsPerPoint
	numFine -= numFine % aggCnt // only whole coarse chunks are meaningful
	if numFine == 0 {
		return nil
	}

	startOffset := timestamp2Offset(fine, header.PointSize, baseTs, lowerStart)
	finePoints, err := readRange(f, fine, header.PointSize, header.MetricsMaxNum, startOffset, numFine)
	if err != nil {
		return err
	}

	aggFunc := agg.For(header.AggID)
	numCoarse := numFine / aggCnt
	coarsePoints := make([]Point, numCoarse)
	for c := uint32(0); c < numCoarse; c++ {
		coarseTs := lowerStart + c*coarse.SecondsPerPoint
		values := make([]schema.Float, header.MetricsMaxNum)
		for slot := 0; slot < header.MetricsMaxNum; slot++ {
			nonNull := make([]schema.Float, 0, aggCnt)
			for k := uint32(0); k < aggCnt; k++ {
				fp := finePoints[c*aggCnt+k]
				expectedTs := lowerStart + (c*aggCnt+k)*fine.SecondsPerPoint
				if fp.Timestamp != expectedTs {
					continue
				}
				if v := fp.Values[slot]; !v.IsNull() {
					nonNull = append(nonNull, v)
				}
			}
			if len(nonNull) > 0 {
				values[slot] = aggFunc(nonNull)
			} else {
				values[slot] = schema.NullValue
			}
		}
		coarsePoints[c] = Point{Timestamp: coarseTs, Values: values}
	}

	return updateArchive(f, header, coarseIdx, coarsePoints, until)
}
