package palpack

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
)

// spillBudget is the memory shared by every spillBuffer of one write.
type spillBudget struct {
	mu    sync.Mutex
	limit int64
	used  int64
}

func newSpillBudget(limit int64) *spillBudget {
	return &spillBudget{limit: limit}
}

func (b *spillBudget) reserve(n int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used+n > b.limit {
		return false
	}
	b.used += n
	return true
}

func (b *spillBudget) release(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.used -= n
}

func (b *spillBudget) inUse() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

// spillBuffer holds one compressed payload in memory while budget allows,
// then moves it to a temporary file in dir.
type spillBuffer struct {
	dir    string
	budget *spillBudget
	mem    bytes.Buffer
	file   *os.File
	size   int64
}

func newSpillBuffer(dir string, budget *spillBudget) *spillBuffer {
	return &spillBuffer{dir: dir, budget: budget}
}

func (b *spillBuffer) Write(p []byte) (int, error) {
	if b.file == nil && !b.budget.reserve(int64(len(p))) {
		if err := b.spill(); err != nil {
			return 0, err
		}
	}

	var (
		n   int
		err error
	)
	if b.file != nil {
		n, err = b.file.Write(p)
	} else {
		n, err = b.mem.Write(p)
		if short := len(p) - n; short > 0 {
			b.budget.release(int64(short))
		}
	}
	b.size += int64(n)
	return n, err
}

func (b *spillBuffer) spill() error {
	f, err := os.CreateTemp(b.dir, ".palpack-spill-*")
	if err != nil {
		return fmt.Errorf("failed to create spill file: %w", err)
	}
	if _, err := f.Write(b.mem.Bytes()); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	b.budget.release(int64(b.mem.Len()))
	b.mem = bytes.Buffer{}
	b.file = f
	return nil
}

// Len returns the number of bytes written so far.
func (b *spillBuffer) Len() int64 {
	return b.size
}

func (b *spillBuffer) spilled() bool {
	return b.file != nil
}

// WriteTo copies the whole payload to w.
func (b *spillBuffer) WriteTo(w io.Writer) (int64, error) {
	if b.file == nil {
		return io.Copy(w, bytes.NewReader(b.mem.Bytes()))
	}
	return io.Copy(w, io.NewSectionReader(b.file, 0, b.size))
}

// Close drops the payload, returns its memory to the budget and removes any
// spill file.
func (b *spillBuffer) Close() error {
	if b.file == nil {
		b.budget.release(int64(b.mem.Len()))
		b.mem = bytes.Buffer{}
		return nil
	}
	name := b.file.Name()
	closeErr := b.file.Close()
	b.file = nil
	if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
		return err
	}
	return closeErr
}
