// Copyright (C) kenshin contributors.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package metriccache

import (
	"os"
	"path/filepath"
)

// CreateLinkFunc creates (or overwrites) the symlink mirroring metric to
// filePath at linkPath. Implementations are expected to rename any
// pre-existing entry at linkPath to "<linkPath>.bak" first, rather than
// fail or silently clobber it — the external link-dir rebuild hook is
// expected to honor the same contract.
type CreateLinkFunc func(metric, filePath, linkPath string) error

// DefaultCreateLink is the bootstrap stub linker used when no
// application-supplied CreateLinkFunc is configured: it implements the
// rename-to-.bak-on-collision contract directly, so tests and small
// deployments that never wire an external link manager still get
// correct symlink semantics.
func DefaultCreateLink(metric, filePath, linkPath string) error {
	if err := os.MkdirAll(filepath.Dir(linkPath), 0o755); err != nil {
		return err
	}
	if _, err := os.Lstat(linkPath); err == nil {
		if err := os.Rename(linkPath, linkPath+".bak"); err != nil {
			return err
		}
	}
	return os.Symlink(filePath, linkPath)
}
