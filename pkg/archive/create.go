// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package archive

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kenshin-db/kenshin/pkg/schema"
)

// zeroChunkSize bounds how much zero-fill is buffered per write call
// when creating a new archive file, so a large file does not require an
// equally large in-memory buffer.
const zeroChunkSize = 16 * 1024

// Create writes a brand new archive file at path. tagList must contain
// exactly metricsMaxNum entries (typically all empty strings at
// creation time); a reserved filler entry of DefaultTagSlack bytes is
// appended automatically. Create fails if path already exists.
func Create(path string, tagList []string, archives []schema.ArchiveSpec, xff float32, aggID schema.AggregationMethod) error {
	interTagList := make([]string, len(tagList)+1)
	copy(interTagList, tagList)
	interTagList[len(tagList)] = strings.Repeat(" ", DefaultTagSlack)

	headerBytes, dataOffset, err := PackHeader(interTagList, archives, xff, aggID)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(filepath.Dir(path), 0o755); mkErr != nil {
				return fmt.Errorf("%w: creating parent directory: %v", ErrIO, mkErr)
			}
			f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		}
		if err != nil {
			if os.IsExist(err) {
				return fmt.Errorf("%w: %s", ErrAlreadyExists, path)
			}
			return fmt.Errorf("%w: creating %s: %v", ErrIO, path, err)
		}
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.Write(headerBytes); err != nil {
		return fmt.Errorf("%w: writing header: %v", ErrIO, err)
	}

	pointSize := 4 + 8*uint32(len(tagList))
	zero := make([]byte, zeroChunkSize)
	for _, a := range archives {
		remaining := int64(a.Count) * int64(pointSize)
		for remaining > 0 {
			n := int64(len(zero))
			if remaining < n {
				n = remaining
			}
			if _, err := bw.Write(zero[:n]); err != nil {
				return fmt.Errorf("%w: zero-filling archive at %ds resolution: %v", ErrIO, a.SecondsPerPoint, err)
			}
			remaining -= n
		}
	}

	_ = dataOffset
	return bw.Flush()
}
