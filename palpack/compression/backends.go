package compression

import (
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/pierrec/lz4/v4"
)

var lz4Levels = [MaxLevel + 1]lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level1, lz4.Level2, lz4.Level3,
	lz4.Level4, lz4.Level5, lz4.Level6,
	lz4.Level7, lz4.Level8, lz4.Level9,
}

// Compress streams src through the backend selected by d into dst.
func Compress(d Descriptor, dst io.Writer, src io.Reader) error {
	w, err := newWriter(d, dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, src); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish %s stream: %w", d, err)
	}
	return nil
}

// Decompress streams src through the decoder selected by d into dst. Input
// that was not produced by the same backend fails instead of decoding to
// garbage.
func Decompress(d Descriptor, dst io.Writer, src io.Reader) error {
	r, err := newReader(d, src)
	if err != nil {
		return err
	}
	defer r.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return err
	}
	return nil
}

func newWriter(d Descriptor, w io.Writer) (io.WriteCloser, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	switch d.kind() {
	case KindGzip:
		return gzip.NewWriterLevel(w, int(d.Level))
	case KindLz4:
		zw := lz4.NewWriter(w)
		if err := zw.Apply(lz4.CompressionLevelOption(lz4Levels[d.Level])); err != nil {
			return nil, fmt.Errorf("configure lz4 writer: %w", err)
		}
		return zw, nil
	case KindSnappy:
		return s2.NewWriter(w, s2.WriterSnappyCompat()), nil
	default:
		return nopWriteCloser{w}, nil
	}
}

func newReader(d Descriptor, r io.Reader) (io.ReadCloser, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	switch d.kind() {
	case KindGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			// An empty payload is never a valid gzip stream.
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return zr, nil
	case KindLz4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case KindSnappy:
		return io.NopCloser(s2.NewReader(r)), nil
	default:
		return io.NopCloser(r), nil
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
