package palpack

import (
	"context"
	"encoding/binary"
	"io"

	"github.com/flaneur2020/palpack/palpack/compression"
	palerrors "github.com/flaneur2020/palpack/palpack/errors"
	"github.com/flaneur2020/palpack/palpack/logger"
	"github.com/flaneur2020/palpack/palpack/storage"
)

var readLog = logger.Named("read")

// Index is the decoded head of a container: everything before the payloads.
type Index struct {
	Metadata       *Metadata
	MetadataLength uint64
	ContainerSize  int64
}

// PayloadStart is the offset of the first payload byte.
func (idx *Index) PayloadStart() int64 {
	return HeaderSize + int64(idx.MetadataLength)
}

// PayloadOffset returns where entry i's payload begins.
func (idx *Index) PayloadOffset(i int) int64 {
	off := idx.PayloadStart()
	for _, e := range idx.Metadata.Entries[:i] {
		off += int64(e.Size)
	}
	return off
}

// ReadIndex reads the length header and metadata block without touching any
// payload.
func ReadIndex(ctx context.Context, src storage.Source) (*Index, error) {
	size := src.Size()
	if size < HeaderSize {
		return nil, palerrors.ErrHeaderTruncated.WithDetail("size", size)
	}

	header, err := readRange(ctx, src, 0, HeaderSize)
	if err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint64(header)
	if length > uint64(size-HeaderSize) {
		return nil, palerrors.ErrHeaderLength.
			WithDetail("metadataLength", length).
			WithDetail("containerSize", size)
	}

	data, err := readRange(ctx, src, HeaderSize, int64(length))
	if err != nil {
		return nil, err
	}
	meta, err := DecodeMetadata(data)
	if err != nil {
		return nil, err
	}

	return &Index{Metadata: meta, MetadataLength: length, ContainerSize: size}, nil
}

// ReadIndexFile is ReadIndex over a container on disk.
func ReadIndexFile(ctx context.Context, path string) (*Index, error) {
	src, err := storage.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return ReadIndex(ctx, src)
}

// ReadOptions tunes the read path.
type ReadOptions struct {
	Progress ProgressCallback
}

// ReadFile is Read over a container on disk.
func ReadFile(ctx context.Context, path string, scratch storage.Scratch, opts ReadOptions) (*Metadata, error) {
	src, err := storage.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return Read(ctx, src, scratch, opts)
}

// Read decodes a container and decompresses every payload into scratch. The
// returned metadata has SourcePath pointing at each reconstructed file.
func Read(ctx context.Context, src storage.Source, scratch storage.Scratch, opts ReadOptions) (*Metadata, error) {
	idx, err := ReadIndex(ctx, src)
	if err != nil {
		return nil, err
	}
	meta := idx.Metadata

	readLog.Info("Reading %d entries (%s) from container", len(meta.Entries), meta.Compression)

	counter := newPhaseCounter(PhaseDecompress, len(meta.Entries), opts.Progress)
	seen := make(map[string]struct{}, len(meta.Entries))
	cursor := idx.PayloadStart()

	for i := range meta.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := &meta.Entries[i]
		if !validEntryName(entry.Name) {
			return nil, palerrors.ErrUnsafeEntryName.WithDetail("name", entry.Name)
		}
		if _, dup := seen[entry.Name]; dup {
			return nil, palerrors.ErrDuplicateEntry.WithDetail("name", entry.Name)
		}
		seen[entry.Name] = struct{}{}

		if entry.Size > uint64(idx.ContainerSize-cursor) {
			return nil, palerrors.ErrPayloadTruncated.
				WithDetail("entry", entry.Name).
				WithDetail("offset", cursor).
				WithDetail("size", entry.Size)
		}

		path, err := extractEntry(ctx, src, scratch, meta.Compression, entry, cursor)
		if err != nil {
			return nil, err
		}
		entry.SourcePath = path
		cursor += int64(entry.Size)

		readLog.Debug("Extracted %s (%d -> %d bytes)", entry.Name, entry.Size, entry.SourceSize)
		counter.step()
	}

	return meta, nil
}

func extractEntry(ctx context.Context, src storage.Source, scratch storage.Scratch, d compression.Descriptor, entry *AudioEntry, offset int64) (string, error) {
	rc, err := src.ReadRange(ctx, offset, int64(entry.Size))
	if err != nil {
		return "", err
	}
	defer rc.Close()

	w, path, err := scratch.Create(entry.Name)
	if err != nil {
		return "", err
	}

	in := &ioTrackingReader{r: rc}
	out := &ioTrackingWriter{w: w}
	err = compression.Decompress(d, out, in)
	closeErr := w.Close()

	if err != nil {
		// Failures of the backing stores are I/O, everything else is the
		// payload itself.
		if out.err != nil {
			return "", out.err
		}
		if in.err != nil {
			return "", in.err
		}
		return "", palerrors.ErrDecompress.
			WithDetail("entry", entry.Name).
			WithDetail("compression", d.String()).
			WithCause(err)
	}
	if closeErr != nil {
		return "", closeErr
	}

	// The stream has to end exactly at the end of the stored range.
	trailing, err := io.Copy(io.Discard, in)
	if err != nil {
		return "", err
	}
	if trailing > 0 {
		return "", palerrors.ErrSizeMismatch.
			WithDetail("entry", entry.Name).
			WithDetail("stored", entry.Size).
			WithDetail("trailing", trailing)
	}

	if uint64(out.n) != entry.SourceSize {
		return "", palerrors.ErrSizeMismatch.
			WithDetail("entry", entry.Name).
			WithDetail("expected", entry.SourceSize).
			WithDetail("actual", out.n)
	}
	return path, nil
}

type ioTrackingReader struct {
	r   io.Reader
	err error
}

func (t *ioTrackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}

type ioTrackingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (t *ioTrackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	t.n += int64(n)
	if err != nil {
		t.err = err
	}
	return n, err
}

func readRange(ctx context.Context, src storage.Source, offset, length int64) ([]byte, error) {
	rc, err := src.ReadRange(ctx, offset, length)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, length)
	if _, err := io.ReadFull(rc, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
