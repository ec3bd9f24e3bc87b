package palpack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/flaneur2020/palpack/palpack/logger"
)

// DefaultPlaylistExt is the list-file extension used when none is configured.
const DefaultPlaylistExt = "m3u"

var errNotRegular = errors.New("not a regular file")

var (
	importLog = logger.Named("import")
	exportLog = logger.Named("export")
)

var (
	_ Importer = (*DirectoryImporter)(nil)
	_ Importer = (*PlaylistImporter)(nil)
	_ Exporter = (*DirectoryExporter)(nil)
	_ Exporter = (*PlaylistExporter)(nil)
)

// Importer builds a fresh Metadata from a directory layout. Compression is
// left as none; the caller picks it before writing.
type Importer interface {
	Import(ctx context.Context, dir string) (*Metadata, error)
}

// Exporter materialises a library whose entries point at readable files.
type Exporter interface {
	Export(ctx context.Context, meta *Metadata, dest string) error
}

// ImportOptions configures both importers.
type ImportOptions struct {
	Collision CollisionPolicy
	// PlaylistExt is the list-file extension, without the dot.
	PlaylistExt string
}

// ExportOptions configures both exporters.
type ExportOptions struct {
	PlaylistExt string
	Progress    ProgressCallback
}

func playlistExt(ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		return DefaultPlaylistExt
	}
	return ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}
