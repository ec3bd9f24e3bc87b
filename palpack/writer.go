package palpack

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/flaneur2020/palpack/palpack/compression"
	palerrors "github.com/flaneur2020/palpack/palpack/errors"
	"github.com/flaneur2020/palpack/palpack/logger"
)

var writeLog = logger.Named("write")

// DefaultSpillThreshold is how much compressed data one write keeps in memory
// before further payloads go to temporary files.
const DefaultSpillThreshold int64 = 32 << 20

// WriteOptions tunes the write path. The zero value writes sequentially with
// DefaultSpillThreshold.
type WriteOptions struct {
	// Workers bounds how many entries are compressed at once.
	Workers int
	// SpillThreshold is the in-memory limit for all compressed payloads of
	// one write together.
	SpillThreshold int64
	// StagingDir holds spill files. Defaults to the destination's directory.
	StagingDir string
	Progress   ProgressCallback
}

func (o WriteOptions) withDefaults(path string) WriteOptions {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.SpillThreshold <= 0 {
		o.SpillThreshold = DefaultSpillThreshold
	}
	if o.StagingDir == "" {
		o.StagingDir = filepath.Dir(path)
	}
	return o
}

// WriteFile compresses every entry of meta and writes the container to path.
//
// The Size and SourceSize of each entry in meta are overwritten with the
// stored and uncompressed lengths actually produced. The container is staged
// next to path and renamed into place only once it is complete.
func WriteFile(ctx context.Context, meta *Metadata, path string, opts WriteOptions) error {
	if err := meta.Validate(); err != nil {
		return err
	}
	opts = opts.withDefaults(path)

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock container: %w", err)
	}
	if !locked {
		return palerrors.ErrContainerBusy.WithDetail("path", path)
	}
	// The lock file is left in place so every writer locks the same inode.
	defer lock.Unlock()

	writeLog.Info("Compressing %d entries with %s", len(meta.Entries), meta.Compression)

	payloads, err := compressEntries(ctx, meta, opts)
	defer closePayloads(payloads)
	if err != nil {
		return err
	}

	metadata, err := EncodeMetadata(meta)
	if err != nil {
		return err
	}

	writeLog.Info("Writing container %s (metadata %d bytes, payload %d bytes)", path, len(metadata), meta.StoredSize())

	return stageAndRename(path, func(w io.Writer) error {
		counter := newPhaseCounter(PhaseWrite, len(payloads)+1, opts.Progress)

		var header [HeaderSize]byte
		binary.BigEndian.PutUint64(header[:], uint64(len(metadata)))
		if _, err := w.Write(header[:]); err != nil {
			return err
		}
		if _, err := w.Write(metadata); err != nil {
			return err
		}
		counter.step()

		for i, payload := range payloads {
			if _, err := payload.WriteTo(w); err != nil {
				return fmt.Errorf("failed to write payload %s: %w", meta.Entries[i].Name, err)
			}
			counter.step()
		}
		return nil
	})
}

func compressEntries(ctx context.Context, meta *Metadata, opts WriteOptions) ([]*spillBuffer, error) {
	payloads := make([]*spillBuffer, len(meta.Entries))
	budget := newSpillBudget(opts.SpillThreshold)
	counter := newPhaseCounter(PhaseCompress, len(meta.Entries), opts.Progress)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for i := range meta.Entries {
		entry := &meta.Entries[i]
		payload := newSpillBuffer(opts.StagingDir, budget)
		payloads[i] = payload

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			read, err := compressEntry(meta.Compression, entry, payload)
			if err != nil {
				return err
			}

			entry.SourceSize = uint64(read)
			entry.Size = uint64(payload.Len())
			writeLog.Debug("Compressed %s: %d -> %d bytes (spilled: %v)", entry.Name, read, payload.Len(), payload.spilled())
			counter.step()
			return nil
		})
	}

	return payloads, g.Wait()
}

func compressEntry(d compression.Descriptor, entry *AudioEntry, dst io.Writer) (int64, error) {
	if entry.SourcePath == "" {
		return 0, palerrors.ErrUnresolvedTrack.
			WithMessage("entry has no source file").
			WithDetail("name", entry.Name)
	}

	f, err := os.Open(entry.SourcePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", entry.Name, err)
	}
	defer f.Close()

	src := &countingReader{r: f}
	if err := compression.Compress(d, dst, src); err != nil {
		return 0, fmt.Errorf("failed to compress %s: %w", entry.Name, err)
	}
	return src.n, nil
}

func closePayloads(payloads []*spillBuffer) {
	for _, p := range payloads {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil {
			writeLog.Warn("Failed to remove spill file: %v", err)
		}
	}
}

// stageAndRename writes into a hidden sibling of path and renames it over
// path once write, flush and fsync have all succeeded.
func stageAndRename(path string, write func(w io.Writer) error) error {
	dir, base := filepath.Split(path)
	staged := filepath.Join(dir, "."+base+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(staged, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	abort := func(err error) error {
		f.Close()
		os.Remove(staged)
		return err
	}

	bw := bufio.NewWriterSize(f, 1<<20)
	if err := write(bw); err != nil {
		return abort(err)
	}
	if err := bw.Flush(); err != nil {
		return abort(err)
	}
	if err := f.Sync(); err != nil {
		return abort(err)
	}
	if err := f.Close(); err != nil {
		os.Remove(staged)
		return err
	}
	if err := os.Rename(staged, path); err != nil {
		os.Remove(staged)
		return err
	}
	return nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
