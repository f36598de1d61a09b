// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metriccache

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// FilePath returns the on-disk path of an archive file, per the
// external file path convention: <data_dir>/<instance>/<schema>/<file_idx>.hs
func FilePath(dataDir, instance, schemaName string, fileIdx int) string {
	return filepath.Join(dataDir, instance, schemaName, strconv.Itoa(fileIdx)+".hs")
}

// LinkPath returns the symlink path that mirrors metric into the link
// directory: dots become path separators and the leaf gets a .hs suffix,
// matching <link_dir>/<instance>/<metric-with-slashes>.hs
func LinkPath(linkDir, instance, metric string) string {
	segments := strings.Split(metric, ".")
	segments[len(segments)-1] += ".hs"
	return filepath.Join(append([]string{linkDir, instance}, segments...)...)
}

func indexLine(metric string, loc MetricLocation) string {
	return fmt.Sprintf("%s %s %d %d\n", metric, loc.SchemaName, loc.FileIdx, loc.Slot)
}
