package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrExists is returned by CreateExclusive when the destination is already present.
var ErrExists = errors.New("destination already exists")

// EnsureDir creates directory structure with proper permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

// AtomicWrite writes data to path atomically using a temp file in the same directory.
// An existing file at path is replaced.
func AtomicWrite(path string, data io.Reader) error {
	return writeTemp(path, func(w io.Writer) error {
		_, err := io.Copy(w, data)
		return err
	}, os.Rename)
}

// CreateExclusive streams fill into a temp file next to path and publishes it
// under path only if nothing exists there yet. The temp file is hard-linked into
// place, so a concurrent writer that got there first makes this call fail with
// ErrExists instead of being overwritten. No partial file is ever visible at path.
func CreateExclusive(path string, fill func(w io.Writer) error) error {
	return writeTemp(path, fill, func(tmp, final string) error {
		if err := os.Link(tmp, final); err != nil {
			if errors.Is(err, os.ErrExist) {
				return ErrExists
			}
			return err
		}
		return nil
	})
}

func writeTemp(path string, fill func(w io.Writer) error, publish func(tmp, final string) error) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, TempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	// ensure cleanup of tmp on every path; after a rename the remove is a no-op
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if err := fill(tmp); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := publish(tmpName, path); err != nil {
		if errors.Is(err, ErrExists) {
			return err
		}
		return fmt.Errorf("publish temp to final: %w", err)
	}
	return nil
}
