package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Iron-Ham/kla/internal/errors"
)

// DirSink writes artifacts into one directory.
type DirSink struct {
	dir string
}

// NewDirSink creates dir if needed and returns a sink writing into it.
func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating output directory: %w", errors.ErrSaveFailed, err)
	}
	return &DirSink{dir: dir}, nil
}

// Dir returns the output directory.
func (s *DirSink) Dir() string { return s.dir }

// Save writes data to filename inside the directory and returns the full
// path. Readers never observe a partially written file.
func (s *DirSink) Save(filename string, data []byte) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("%w: invalid artifact name %q", errors.ErrSaveFailed, filename)
	}
	path := filepath.Join(s.dir, filename)
	if err := WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("%w: %w", errors.ErrSaveFailed, err)
	}
	return path, nil
}

// WriteFileAtomic writes data to a temporary file next to path and
// renames it into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
