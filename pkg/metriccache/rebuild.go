// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metriccache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kenshin-db/kenshin/pkg/archive"
	"github.com/kenshin-db/kenshin/pkg/log"
)

// DefaultRebuildIndex rewrites indexPath from scratch by reading every
// archive file's tag list under dataDir, the same recovery path rurouni
// takes when its index file is lost but the archive files survive.
// Archive files with no non-empty tag at all are removed, matching the
// original's "empty_flag" cleanup.
func DefaultRebuildIndex(dataDir, indexPath string) error {
	if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
		return fmt.Errorf("rebuild_index: mkdir: %w", err)
	}
	out, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("rebuild_index: creating %s: %w", indexPath, err)
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	defer w.Flush()

	schemaDirs, err := os.ReadDir(dataDir)
	if err != nil {
		return fmt.Errorf("rebuild_index: reading %s: %w", dataDir, err)
	}

	for _, sd := range schemaDirs {
		if !sd.IsDir() {
			continue
		}
		schemaName := sd.Name()
		files, err := os.ReadDir(filepath.Join(dataDir, schemaName))
		if err != nil {
			return fmt.Errorf("rebuild_index: reading %s: %w", schemaName, err)
		}

		for _, fe := range files {
			if fe.IsDir() || !strings.HasSuffix(fe.Name(), ".hs") {
				continue
			}
			fp := filepath.Join(dataDir, schemaName, fe.Name())
			fileIdxStr := strings.TrimSuffix(fe.Name(), ".hs")
			fileIdx, err := strconv.Atoi(fileIdxStr)
			if err != nil {
				continue
			}

			tagList, err := readTagList(fp)
			if err != nil {
				log.Warnf("rebuild_index: skipping unreadable %s: %v", fp, err)
				continue
			}

			empty := true
			for slot, metric := range tagList {
				if metric == "" {
					continue
				}
				empty = false
				if _, err := fmt.Fprintf(w, "%s %s %d %d\n", metric, schemaName, fileIdx, slot); err != nil {
					return fmt.Errorf("rebuild_index: writing line: %w", err)
				}
			}
			if empty {
				if err := os.Remove(fp); err != nil {
					log.Warnf("rebuild_index: removing empty archive %s: %v", fp, err)
				}
			}
		}
	}
	return nil
}

// DefaultRebuildLink recreates every metric's symlink under linkDir from
// the tag list of every archive file under dataDir. A missing dataDir
// means there are no archive files yet, so there is nothing to link.
func DefaultRebuildLink(dataDir, linkDir string) error {
	schemaDirs, err := os.ReadDir(dataDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("rebuild_link: reading %s: %w", dataDir, err)
	}

	for _, sd := range schemaDirs {
		if !sd.IsDir() {
			continue
		}
		schemaName := sd.Name()
		files, err := os.ReadDir(filepath.Join(dataDir, schemaName))
		if err != nil {
			return fmt.Errorf("rebuild_link: reading %s: %w", schemaName, err)
		}

		for _, fe := range files {
			if fe.IsDir() || !strings.HasSuffix(fe.Name(), ".hs") {
				continue
			}
			fp := filepath.Join(dataDir, schemaName, fe.Name())
			tagList, err := readTagList(fp)
			if err != nil {
				log.Warnf("rebuild_link: skipping unreadable %s: %v", fp, err)
				continue
			}
			for _, metric := range tagList {
				if metric == "" {
					continue
				}
				linkPath := LinkPath(linkDir, "", metric)
				if err := DefaultCreateLink(metric, fp, linkPath); err != nil {
					log.Warnf("rebuild_link: linking %s: %v", metric, err)
				}
			}
		}
	}
	return nil
}

func readTagList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := archive.ReadHeader(f)
	if err != nil {
		return nil, err
	}
	return header.TagList, nil
}
