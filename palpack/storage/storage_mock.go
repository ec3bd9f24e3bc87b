package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// MockSource is a simple in-memory Source implementation for tests.
type MockSource struct {
	mu    sync.RWMutex
	data  []byte
	reads []Range
}

// Range records one ReadRange call.
type Range struct {
	Offset int64
	Length int64
}

// NewMockSource constructs a MockSource over a copy of data.
func NewMockSource(data []byte) *MockSource {
	return &MockSource{data: append([]byte(nil), data...)}
}

// Size returns the number of bytes held.
func (m *MockSource) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data))
}

// ReadRange returns a reader over the requested byte range.
func (m *MockSource) ReadRange(ctx context.Context, offset int64, length int64) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkRange(offset, length, int64(len(m.data))); err != nil {
		return nil, fmt.Errorf("mock source: %w", err)
	}

	m.reads = append(m.reads, Range{Offset: offset, Length: length})
	slice := m.data[offset : offset+length]
	return io.NopCloser(bytes.NewReader(slice)), nil
}

// Reads returns every range requested so far, in call order.
func (m *MockSource) Reads() []Range {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Range(nil), m.reads...)
}
