// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

// byteOrder is fixed at big-endian: it is part of the external contract
// in spec §6 and must never change.
var byteOrder = binary.BigEndian

// DefaultTagSlack is the size, in bytes, reserved as the filler entry at
// the end of a freshly created tag block. Growing a tag into this slack
// lets AddTag take the fast, header-only rewrite path instead of
// rebuilding the whole file.
const DefaultTagSlack = 128

// PackHeader builds the wire representation of a header: tagList must
// contain exactly metricsMaxNum+1 entries, the last being the reserved
// filler. It is pure and does not touch the filesystem; it returns the
// encoded bytes and the byte offset at which the first archive's data
// region begins.
func PackHeader(tagList []string, archives []schema.ArchiveSpec, xff float32, aggID schema.AggregationMethod) ([]byte, uint32, error) {
	if len(tagList) < 1 {
		return nil, 0, fmt.Errorf("%w: empty tag list", ErrInvalidConfig)
	}
	if err := validateArchiveList(archives, xff); err != nil {
		return nil, 0, err
	}

	metricsMaxNum := len(tagList) - 1
	pointSize := uint32(4 + 8*metricsMaxNum)
	tagBytes := []byte(strings.Join(tagList, "\t"))
	tagSize := uint32(len(tagBytes))
	archiveCount := uint32(len(archives))
	maxRetention := archives[len(archives)-1].SecondsPerPoint * archives[len(archives)-1].Count

	headerSize := metadataSize + tagSize + archiveCount*archiveInfoSize

	buf := new(bytes.Buffer)
	buf.Grow(int(headerSize))

	write := func(v any) {
		_ = binary.Write(buf, byteOrder, v)
	}
	write(uint32(aggID))
	write(maxRetention)
	write(xff)
	write(archiveCount)
	write(tagSize)
	write(pointSize)
	buf.Write(tagBytes)

	offset := headerSize
	for _, a := range archives {
		write(offset)
		write(a.SecondsPerPoint)
		write(a.Count)
		offset += a.Count * pointSize
	}

	return buf.Bytes(), headerSize, nil
}

// ReadHeader parses the metadata, tag, and archive-info blocks from r. r
// must support Seek so the reader's position can be restored afterwards
// — header is expected to be called often and cheaply, so callers should
// not have to account for cursor movement.
func ReadHeader(r io.ReadSeeker) (*Header, error) {
	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: seeking current offset: %v", ErrIO, err)
	}
	defer r.Seek(start, io.SeekStart)

	var (
		aggID        uint32
		maxRetention uint32
		xff          float32
		archiveCount uint32
		tagSize      uint32
		pointSize    uint32
	)
	for _, v := range []any{&aggID, &maxRetention, &xff, &archiveCount, &tagSize, &pointSize} {
		if err := binary.Read(r, byteOrder, v); err != nil {
			return nil, fmt.Errorf("%w: reading metadata: %v", ErrIO, err)
		}
	}

	tagBytes := make([]byte, tagSize)
	if _, err := io.ReadFull(r, tagBytes); err != nil {
		return nil, fmt.Errorf("%w: reading tag block: %v", ErrIO, err)
	}
	fields := strings.Split(string(tagBytes), "\t")
	if len(fields) < 1 {
		return nil, fmt.Errorf("%w: empty tag block", ErrInvalidConfig)
	}
	reserved := fields[len(fields)-1]
	tagList := fields[:len(fields)-1]

	archives := make([]ArchiveInfo, archiveCount)
	for i := range archives {
		var a ArchiveInfo
		for _, v := range []any{&a.Offset, &a.SecondsPerPoint, &a.Count} {
			if err := binary.Read(r, byteOrder, v); err != nil {
				return nil, fmt.Errorf("%w: reading archive info %d: %v", ErrIO, i, err)
			}
		}
		archives[i] = a
	}

	dataOffset := uint32(metadataSize) + tagSize + archiveCount*archiveInfoSize

	return &Header{
		AggID:         schema.AggregationMethod(aggID),
		MaxRetention:  maxRetention,
		XFilesFactor:  xff,
		TagSize:       tagSize,
		PointSize:     pointSize,
		Archives:      archives,
		TagList:       tagList,
		ReservedSize:  len(reserved),
		MetricsMaxNum: len(tagList),
		DataOffset:    dataOffset,
	}, nil
}

// validateArchiveList checks the invariants every archive_list must
// satisfy: tiers sorted finest-first with no duplicate resolution, each
// step dividing the next, retention strictly increasing, and each tier
// holding enough points to aggregate at least one point of its
// successor given xff.
func validateArchiveList(archives []schema.ArchiveSpec, xff float32) error {
	if len(archives) == 0 {
		return fmt.Errorf("%w: archive list must not be empty", ErrInvalidConfig)
	}
	for i, a := range archives {
		if a.SecondsPerPoint == 0 || a.Count == 0 {
			return fmt.Errorf("%w: archive %d has zero step or count", ErrInvalidConfig, i)
		}
		if i == 0 {
			continue
		}
		prev := archives[i-1]
		if a.SecondsPerPoint == prev.SecondsPerPoint {
			return fmt.Errorf("%w: duplicate resolution %ds", ErrInvalidConfig, a.SecondsPerPoint)
		}
		if a.SecondsPerPoint < prev.SecondsPerPoint {
			return fmt.Errorf("%w: archives must be ordered finest to coarsest", ErrInvalidConfig)
		}
		if a.SecondsPerPoint%prev.SecondsPerPoint != 0 {
			return fmt.Errorf("%w: %ds does not divide into %ds", ErrInvalidConfig, prev.SecondsPerPoint, a.SecondsPerPoint)
		}
		if a.Retention() <= prev.Retention() {
			return fmt.Errorf("%w: retention must strictly increase with each archive", ErrInvalidConfig)
		}
		if xff > 0 {
			pointsPerConsolidation := float64(a.SecondsPerPoint) / float64(prev.SecondsPerPoint)
			if float64(prev.Count)/float64(xff) < pointsPerConsolidation {
				return fmt.Errorf("%w: archive %d does not hold enough points to satisfy xff for archive %d", ErrInvalidConfig, i-1, i)
			}
		}
	}
	return nil
}
