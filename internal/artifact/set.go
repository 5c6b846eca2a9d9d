// Package artifact models the file-system hand-off between pipeline stages.
// Structure files are consumed by reference (path), never by value: a stage's
// output directory is owned by exactly that stage, and downstream stages see
// the files only through an explicit Transfer into their own input directory.
package artifact

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// StructureExt is the extension of every structure artifact the pipeline
// produces and consumes.
const StructureExt = ".pdb"

// Set is a resolved directory together with the structure files found in it.
// Passing Sets between stages keeps the data-flow graph explicit instead of
// hiding it in ambient paths.
type Set struct {
	Dir   string
	Files []string // absolute paths, sorted by basename
}

// Len returns the number of structure files in the set.
func (s Set) Len() int { return len(s.Files) }

// Empty reports whether the set holds no structure files.
func (s Set) Empty() bool { return len(s.Files) == 0 }

// Basenames returns the sorted file names without directories.
func (s Set) Basenames() []string {
	names := make([]string, 0, len(s.Files))
	for _, f := range s.Files {
		names = append(names, filepath.Base(f))
	}
	return names
}

// EnsureDir creates dir (and parents) if absent.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("artifact: create dir %s: %w", dir, err)
	}
	return nil
}

// Glob resolves the structure files currently present in dir. The returned
// set is deterministic: files are sorted by basename.
func Glob(dir string) (Set, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+StructureExt))
	if err != nil {
		return Set{}, fmt.Errorf("artifact: glob %s: %w", dir, err)
	}
	sort.Slice(matches, func(i, j int) bool {
		return filepath.Base(matches[i]) < filepath.Base(matches[j])
	})
	return Set{Dir: dir, Files: matches}, nil
}

// CopyFile copies src to dst with overwrite semantics. A partial destination
// is never left behind on error: writes go to a temp file that is renamed
// into place only after a complete copy.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("artifact: open %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".copy-*")
	if err != nil {
		return fmt.Errorf("artifact: temp file for %s: %w", dst, err)
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("artifact: copy %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifact: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("artifact: rename to %s: %w", dst, err)
	}
	return nil
}
