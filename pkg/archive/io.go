// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package archive

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

// timestamp2Offset computes the byte offset of the point for ts within
// archive a, anchored at baseTs (the archive's base point). It is only
// meaningful once baseTs is non-zero. ts may fall before baseTs (the
// propagation path walks backwards from the fine archive's base), so the
// step and the wrap into [0, count) must both be done with signed
// arithmetic.
func timestamp2Offset(a ArchiveInfo, pointSize, baseTs, ts uint32) uint32 {
	dist := (int64(ts) - int64(baseTs)) / int64(a.SecondsPerPoint)
	count := int64(a.Count)
	step := ((dist % count) + count) % count
	return a.Offset + uint32(step)*pointSize
}

// readBasePoint reads the 4-byte anchor timestamp stored at the start
// of archive a's data region. A value of zero means the archive has
// never been written to.
func readBasePoint(f *os.File, a ArchiveInfo) (uint32, error) {
	var ts uint32
	sr := io.NewSectionReader(f, int64(a.Offset), 4)
	if err := binary.Read(sr, byteOrder, &ts); err != nil {
		return 0, fmt.Errorf("%w: reading base point: %v", ErrIO, err)
	}
	return ts, nil
}

// packPoint encodes one point (timestamp + metricsMaxNum values) in the
// fixed point_size layout.
func packPoint(buf []byte, p Point) {
	byteOrder.PutUint32(buf[0:4], p.Timestamp)
	off := 4
	for _, v := range p.Values {
		byteOrder.PutUint64(buf[off:off+8], ieeeBits(v))
		off += 8
	}
}

func unpackPoint(buf []byte, metricsMaxNum int) Point {
	p := Point{
		Timestamp: byteOrder.Uint32(buf[0:4]),
		Values:    make([]schema.Float, metricsMaxNum),
	}
	off := 4
	for i := range p.Values {
		p.Values[i] = floatFromBits(byteOrder.Uint64(buf[off : off+8]))
		off += 8
	}
	return p
}

// writeRun writes a contiguous, already-packed byte run into archive a
// starting at byte offset start (relative to the file, already wrapped
// into [a.Offset, a.Offset+size)), splitting the write across the ring
// boundary if it would overrun the region.
func writeRun(f *os.File, a ArchiveInfo, pointSize uint32, start uint32, data []byte) error {
	size := a.Size(pointSize)
	regionEnd := a.Offset + size
	if start+uint32(len(data)) <= regionEnd {
		if _, err := f.WriteAt(data, int64(start)); err != nil {
			return fmt.Errorf("%w: writing run: %v", ErrIO, err)
		}
		return nil
	}
	firstLen := regionEnd - start
	if _, err := f.WriteAt(data[:firstLen], int64(start)); err != nil {
		return fmt.Errorf("%w: writing run (head): %v", ErrIO, err)
	}
	if _, err := f.WriteAt(data[firstLen:], int64(a.Offset)); err != nil {
		return fmt.Errorf("%w: writing run (wrapped tail): %v", ErrIO, err)
	}
	return nil
}

// readRange reads count points starting at byte offset start within
// archive a, wrapping around the ring as needed, and returns them
// unpacked in on-disk order.
func readRange(f *os.File, a ArchiveInfo, pointSize uint32, metricsMaxNum int, start uint32, count uint32) ([]Point, error) {
	size := a.Size(pointSize)
	regionEnd := a.Offset + size
	want := count * pointSize

	buf := make([]byte, want)
	if start+want <= regionEnd {
		if _, err := f.ReadAt(buf, int64(start)); err != nil {
			return nil, fmt.Errorf("%w: reading range: %v", ErrIO, err)
		}
	} else {
		firstLen := regionEnd - start
		if _, err := f.ReadAt(buf[:firstLen], int64(start)); err != nil {
			return nil, fmt.Errorf("%w: reading range (head): %v", ErrIO, err)
		}
		if _, err := f.ReadAt(buf[firstLen:], int64(a.Offset)); err != nil {
			return nil, fmt.Errorf("%w: reading range (wrapped tail): %v", ErrIO, err)
		}
	}

	points := make([]Point, count)
	for i := range points {
		points[i] = unpackPoint(buf[i*int(pointSize):(i+1)*int(pointSize)], metricsMaxNum)
	}
	return points, nil
}
