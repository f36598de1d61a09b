// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package archive implements the on-disk multi-resolution archive file:
// a fixed binary layout holding one Round-Robin Archive (RRA) per
// retention tier, written and read by offset arithmetic, with automatic
// downsampling ("propagation") from fine tiers into coarse ones.
//
// The byte layout is part of the external contract and must stay
// bit-exact: big-endian throughout, metadata block, then a tab-separated
// tag block, then an archive-info table, then the data regions
// themselves, one contiguous circular buffer per retention tier.
package archive

import (
	"errors"
	"fmt"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

// Error taxonomy. InvalidConfig and InvalidTime are surfaced to the
// caller and never retried; IOError is logged and counted by callers on
// the write path but does not stop the process.
var (
	ErrInvalidConfig  = errors.New("archive: invalid config")
	ErrInvalidTime    = errors.New("archive: invalid time range")
	ErrIO             = errors.New("archive: io failure")
	ErrUnexpectedTag  = errors.New("archive: unexpected tag at slot")
	ErrAlreadyExists  = errors.New("archive: file already exists")
)

// metadataSize is the byte size of the fixed metadata block:
// agg_id(4) + max_retention(4) + xff(4) + archive_count(4) + tag_size(4) + point_size(4).
const metadataSize = 24

// archiveInfoSize is the byte size of one ArchiveInfo record:
// offset(4) + sec_per_point(4) + count(4).
const archiveInfoSize = 12

// Point is one row of the archive: a timestamp and one value per metric
// slot (slot count equals the schema's metrics_max_num).
type Point struct {
	Timestamp uint32
	Values    []schema.Float
}

// ArchiveInfo is one entry of the on-disk archive-info table: where its
// data region begins, its resolution, and how many points it holds.
type ArchiveInfo struct {
	Offset          uint32
	SecondsPerPoint uint32
	Count           uint32
}

// Size is the byte length of this archive's data region.
func (a ArchiveInfo) Size(pointSize uint32) uint32 {
	return a.Count * pointSize
}

// Retention is this archive's total coverage in seconds.
func (a ArchiveInfo) Retention() uint32 {
	return a.SecondsPerPoint * a.Count
}

// Header is the parsed content of an archive file's metadata, tag, and
// archive-info blocks, without any of the point data.
type Header struct {
	AggID         schema.AggregationMethod
	MaxRetention  uint32
	XFilesFactor  float32
	TagSize       uint32
	PointSize     uint32
	Archives      []ArchiveInfo
	TagList       []string // metrics_max_num entries, empty string = free slot
	ReservedSize  int      // slack available in the filler entry
	MetricsMaxNum int
	DataOffset    uint32 // byte offset of the first archive's data region
}

func (h *Header) String() string {
	return fmt.Sprintf("archive.Header{agg=%s, archives=%d, metrics_max_num=%d}",
		h.AggID, len(h.Archives), h.MetricsMaxNum)
}
