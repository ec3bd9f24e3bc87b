package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Source abstracts ranged reads over a container.
type Source interface {
	Size() int64
	ReadRange(ctx context.Context, offset int64, length int64) (io.ReadCloser, error)
}

// FileSource is a Source backed by a container file on disk.
type FileSource struct {
	file *os.File
	size int64
}

// OpenFile opens path for ranged reads.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FileSource{file: f, size: stat.Size()}, nil
}

// Size returns the container size captured when the file was opened.
func (s *FileSource) Size() int64 {
	return s.size
}

// ReadRange returns a reader over [offset, offset+length).
func (s *FileSource) ReadRange(ctx context.Context, offset int64, length int64) (io.ReadCloser, error) {
	if err := checkRange(offset, length, s.size); err != nil {
		return nil, fmt.Errorf("%s: %w", s.file.Name(), err)
	}
	return io.NopCloser(io.NewSectionReader(s.file, offset, length)), nil
}

// Close releases the underlying file handle.
func (s *FileSource) Close() error {
	return s.file.Close()
}

func checkRange(offset, length, size int64) error {
	if offset < 0 || length < 0 || offset > size || length > size-offset {
		return fmt.Errorf("range [%d, %d) outside of %d bytes: %w", offset, offset+length, size, io.ErrUnexpectedEOF)
	}
	return nil
}
