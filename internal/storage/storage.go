package storage

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Storage is the library root that managed assets live under.
type Storage struct {
	BaseDir string
}

// New creates a new Storage instance with the provided base directory.
func New(baseDir string) *Storage {
	return &Storage{BaseDir: baseDir}
}

// Resolve maps a library-relative path to an absolute one. Absolute inputs are
// returned cleaned.
func (s *Storage) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(s.BaseDir, p)
}

// Contains reports whether p resolves to a location inside BaseDir.
func (s *Storage) Contains(p string) bool {
	rel, err := filepath.Rel(s.BaseDir, s.Resolve(p))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// URL returns the public URL of a library file given the site base URL.
func (s *Storage) URL(baseURL, p string) (string, error) {
	rel, err := filepath.Rel(s.BaseDir, s.Resolve(p))
	if err != nil {
		return "", fmt.Errorf("relative path: %w", err)
	}
	return strings.TrimSuffix(baseURL, "/") + "/" + filepath.ToSlash(rel), nil
}

// UploadsDir is where incoming uploads are placed before conversion.
func (s *Storage) UploadsDir() string {
	return filepath.Join(s.BaseDir, "uploads")
}
