// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package archive

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

// AddTag sets the tag for slotIdx to tag. When the tag grows by no more
// than the file's remaining reserved slack, only the header is
// rewritten in place. Otherwise the whole file is rebuilt at a
// temporary path and renamed over the original — the data region itself
// is copied byte-for-byte, since slot offsets never change.
//
// Slot allocation is expected to hand out only empty slots, so a
// non-empty, different tag already occupying slotIdx means the caller's
// index and the file's own tag list have gone out of sync; AddTag
// refuses to silently overwrite it.
func AddTag(path string, tag string, slotIdx int) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	header, err := ReadHeader(f)
	if err != nil {
		return err
	}
	if slotIdx < 0 || slotIdx >= len(header.TagList) {
		return fmt.Errorf("%w: slot %d out of range", ErrInvalidConfig, slotIdx)
	}

	tagList := append([]string(nil), header.TagList...)
	oldTag := tagList[slotIdx]
	if oldTag != "" && oldTag != tag {
		return fmt.Errorf("%w: slot %d holds %q, refusing to overwrite with %q", ErrUnexpectedTag, slotIdx, oldTag, tag)
	}
	delta := len(tag) - len(oldTag)

	if delta <= header.ReservedSize {
		tagList[slotIdx] = tag
		newReserved := header.ReservedSize - delta
		interTagList := append(append([]string{}, tagList...), strings.Repeat(" ", newReserved))
		archives := archiveSpecs(header)
		headerBytes, _, err := PackHeader(interTagList, archives, header.XFilesFactor, header.AggID)
		if err != nil {
			return err
		}
		if _, err := f.WriteAt(headerBytes, 0); err != nil {
			return fmt.Errorf("%w: rewriting header: %v", ErrIO, err)
		}
		return nil
	}

	return addTagSlow(f, path, header, tagList, slotIdx, tag)
}

// addTagSlow rebuilds the whole file when the grown tag no longer fits
// in the existing slack: a fresh DefaultTagSlack allowance is reserved
// again so future small tag growths can keep taking the fast path.
func addTagSlow(f *os.File, path string, header *Header, tagList []string, slotIdx int, tag string) error {
	tagList[slotIdx] = tag
	interTagList := append(append([]string{}, tagList...), strings.Repeat(" ", DefaultTagSlack))
	archives := archiveSpecs(header)

	headerBytes, dataOffset, err := PackHeader(interTagList, archives, header.XFilesFactor, header.AggID)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", ErrIO, tmpPath, err)
	}
	defer tmp.Close()

	if _, err := tmp.Write(headerBytes); err != nil {
		return fmt.Errorf("%w: writing rebuilt header: %v", ErrIO, err)
	}

	if _, err := f.Seek(int64(header.DataOffset), io.SeekStart); err != nil {
		return fmt.Errorf("%w: seeking old data region: %v", ErrIO, err)
	}
	if _, err := io.Copy(tmp, f); err != nil {
		return fmt.Errorf("%w: copying data region: %v", ErrIO, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: syncing %s: %v", ErrIO, tmpPath, err)
	}
	_ = dataOffset

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: renaming %s over %s: %v", ErrIO, tmpPath, path, err)
	}
	return nil
}

func archiveSpecs(header *Header) []schema.ArchiveSpec {
	specs := make([]schema.ArchiveSpec, len(header.Archives))
	for i, a := range header.Archives {
		specs[i] = schema.ArchiveSpec{SecondsPerPoint: a.SecondsPerPoint, Count: a.Count}
	}
	return specs
}
