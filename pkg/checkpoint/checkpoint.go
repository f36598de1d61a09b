// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package checkpoint periodically snapshots a FileCache's buffered rows
// to an Avro file, and restores them at startup, so a process restart
// does not lose points that were never flushed to an archive file. This
// is a supplemented feature with no analogue in the original
// implementation, which accepted losing the in-memory ring on restart.
package checkpoint

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/linkedin/goavro/v2"

	"github.com/kenshin-db/kenshin/pkg/filecache"
	"github.com/kenshin-db/kenshin/pkg/schema"
)

const rowSchema = `{
  "type": "record",
  "name": "CacheRow",
  "fields": [
    {"name": "timestamp", "type": "long"},
    {"name": "values", "type": {"type": "array", "items": "double"}}
  ]
}`

var codec *goavro.Codec

func init() {
	var err error
	codec, err = goavro.NewCodec(rowSchema)
	if err != nil {
		panic(fmt.Sprintf("checkpoint: invalid embedded schema: %v", err))
	}
}

// Path returns the on-disk location of a FileCache's checkpoint.
func Path(checkpointDir, instance, schemaName string, fileIdx int) string {
	return filepath.Join(checkpointDir, instance, schemaName, strconv.Itoa(fileIdx)+".avro")
}

// Save snapshots rows (as returned by FileCache.Get(nil, false)) to path,
// overwriting any existing checkpoint there.
func Save(path string, rows []filecache.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("checkpoint: mkdir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer f.Close()

	w, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               bufio.NewWriter(f),
		Codec:           codec,
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		return fmt.Errorf("checkpoint: new OCF writer: %w", err)
	}

	records := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		values := make([]interface{}, len(row.Values))
		for i, v := range row.Values {
			values[i] = float64(v)
		}
		records = append(records, map[string]interface{}{
			"timestamp": int64(row.Timestamp),
			"values":    values,
		})
	}

	if err := w.Append(records); err != nil {
		return fmt.Errorf("checkpoint: append records: %w", err)
	}
	return nil
}

// Load reads back the rows a previous Save wrote to path. A missing file
// is not an error: it simply yields no rows, matching a fresh instance
// with nothing to restore.
func Load(path string) ([]filecache.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("checkpoint: open %s: %w", path, err)
	}
	defer f.Close()

	r, err := goavro.NewOCFReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("checkpoint: new OCF reader: %w", err)
	}

	var rows []filecache.Row
	for r.Scan() {
		rec, err := r.Read()
		if err != nil {
			return nil, fmt.Errorf("checkpoint: read record: %w", err)
		}
		m, ok := rec.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("checkpoint: unexpected record shape in %s", path)
		}

		ts, _ := m["timestamp"].(int64)
		rawValues, _ := m["values"].([]interface{})
		values := make([]schema.Float, len(rawValues))
		for i, rv := range rawValues {
			v, _ := rv.(float64)
			values[i] = schema.Float(v)
		}
		rows = append(rows, filecache.Row{Timestamp: uint32(ts), Values: values})
	}
	return rows, nil
}

// Restore replays rows into fc by calling Put for every non-null value,
// reconstructing the ring exactly as the original writes would have left
// it (Put is idempotent under replay: later timestamps simply advance the
// ring the same way live ingestion would).
func Restore(fc *filecache.FileCache, rows []filecache.Row) {
	for _, row := range rows {
		for slot, v := range row.Values {
			if v.IsNull() {
				continue
			}
			fc.Put(slot, row.Timestamp, v)
		}
	}
}
