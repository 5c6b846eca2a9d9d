package artifact

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Transfer stages the files of src into dstDir, creating dstDir if absent.
// Files are copied, never moved, so upstream outputs survive for inspection
// after a downstream failure. Overwrite semantics make Transfer idempotent:
// repeating it against an unchanged source yields the same destination set.
//
// When strict is true any per-file copy error aborts the transfer. When
// false, copy errors are logged and skipped; this leniency exists only at
// the sequence-design to validation boundary.
func Transfer(src Set, dstDir string, strict bool, log *zap.Logger) (Set, error) {
	if err := EnsureDir(dstDir); err != nil {
		return Set{}, err
	}

	for _, file := range src.Files {
		dst := filepath.Join(dstDir, filepath.Base(file))
		if err := CopyFile(file, dst); err != nil {
			if strict {
				return Set{}, fmt.Errorf("artifact: transfer %s -> %s: %w", file, dstDir, err)
			}
			log.Warn("skipping artifact during lenient transfer",
				zap.String("file", file),
				zap.String("dst", dstDir),
				zap.Error(err))
		}
	}

	return Glob(dstDir)
}
