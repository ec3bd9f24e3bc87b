package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Scratch receives the audio files reconstructed from a container. The
// returned path must stay readable until the caller has exported the library.
type Scratch interface {
	Create(name string) (io.WriteCloser, string, error)
}

// DirScratch stores reconstructed files flat inside one directory.
type DirScratch struct {
	dir string
}

// NewDirScratch uses dir, creating it if needed.
func NewDirScratch(dir string) (*DirScratch, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &DirScratch{dir: dir}, nil
}

// NewTempScratch provisions a fresh temporary directory. The cleanup function
// removes it and everything written into it.
func NewTempScratch(pattern string) (*DirScratch, func() error, error) {
	dir, err := os.MkdirTemp("", pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	cleanup := func() error {
		return os.RemoveAll(dir)
	}
	return &DirScratch{dir: dir}, cleanup, nil
}

// Dir returns the backing directory.
func (s *DirScratch) Dir() string {
	return s.dir
}

// Create opens name for writing inside the scratch directory.
func (s *DirScratch) Create(name string) (io.WriteCloser, string, error) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) {
		return nil, "", fmt.Errorf("scratch: refusing file name %q", name)
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}
