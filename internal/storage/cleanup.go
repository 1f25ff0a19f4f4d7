package storage

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TempPrefix is the name prefix of in-flight files created by AtomicWrite and
// CreateExclusive.
const TempPrefix = ".tmp-"

// Cleanup collects paths to remove when a multi-step operation is rolled back.
type Cleanup struct {
	paths []string
}

// Add registers a path for later cleanup.
func (c *Cleanup) Add(path string) {
	c.paths = append(c.paths, path)
}

// Execute removes all registered paths. It is safe to call multiple times.
// Returns the first non-ignorable error encountered, or nil.
func (c *Cleanup) Execute() error {
	var firstErr error
	for _, p := range c.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	c.paths = nil
	return firstErr
}

// CleanOrphanedTempFiles walks root and removes temp files left behind by an
// interrupted write that are older than maxAge. Only names starting with
// TempPrefix are touched. It returns the number of files removed.
func CleanOrphanedTempFiles(root string, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() || !strings.HasPrefix(d.Name(), TempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
