package palpack

import (
	"context"
	"os"
	"path/filepath"

	palerrors "github.com/flaneur2020/palpack/palpack/errors"
)

// DirectoryImporter reads a two-level tree: files at the top are members of
// RootPlaylist, files one directory down belong to a playlist named after
// that directory.
type DirectoryImporter struct {
	opts ImportOptions
}

func NewDirectoryImporter(opts ImportOptions) *DirectoryImporter {
	return &DirectoryImporter{opts: opts}
}

func (im *DirectoryImporter) Import(ctx context.Context, dir string) (*Metadata, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	idx := newEntryIndex(im.opts.Collision)
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(dir, child.Name())
		switch {
		case child.Type().IsRegular():
			if err := addDirEntry(idx, path, child, RootPlaylist); err != nil {
				return nil, err
			}
		case child.IsDir():
			if err := importPlaylistDir(ctx, idx, path, child.Name()); err != nil {
				return nil, err
			}
		default:
			importLog.Debug("Skipping %s (not a regular file or directory)", path)
		}
	}

	meta := idx.metadata()
	importLog.Info("Imported %d tracks from %s", len(meta.Entries), dir)
	return meta, nil
}

func importPlaylistDir(ctx context.Context, idx *entryIndex, dir, playlist string) error {
	children, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, child.Name())
		if !child.Type().IsRegular() {
			importLog.Debug("Skipping %s", path)
			continue
		}
		if err := addDirEntry(idx, path, child, playlist); err != nil {
			return err
		}
	}
	return nil
}

func addDirEntry(idx *entryIndex, path string, child os.DirEntry, playlist string) error {
	info, err := child.Info()
	if err != nil {
		return err
	}
	return idx.add(path, playlist, info.Size())
}

// DirectoryExporter writes one physical copy per playlist membership:
// RootPlaylist members at the top of dest, others under dest/<playlist>/.
type DirectoryExporter struct {
	opts ExportOptions
}

func NewDirectoryExporter(opts ExportOptions) *DirectoryExporter {
	return &DirectoryExporter{opts: opts}
}

func (ex *DirectoryExporter) Export(ctx context.Context, meta *Metadata, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}

	total := 0
	for _, e := range meta.Entries {
		total += len(e.Playlists)
	}
	counter := newPhaseCounter(PhaseExport, total, ex.opts.Progress)

	for _, e := range meta.Entries {
		if !validEntryName(e.Name) {
			return palerrors.ErrInvalidEntryName.WithDetail("name", e.Name)
		}

		for _, playlist := range e.Playlists {
			if err := ctx.Err(); err != nil {
				return err
			}

			dir := dest
			if playlist != RootPlaylist {
				if !validPlaylistName(playlist) {
					return palerrors.ErrInvalidPlaylistName.
						WithDetail("playlist", playlist).
						WithDetail("entry", e.Name)
				}
				dir = filepath.Join(dest, playlist)
				if err := os.MkdirAll(dir, 0755); err != nil {
					return err
				}
			}

			target := filepath.Join(dir, e.Name)
			if err := copyFile(e.SourcePath, target); err != nil {
				return err
			}
			exportLog.Debug("Exported %s", target)
			counter.step()
		}
	}

	exportLog.Info("Exported %d tracks to %s", len(meta.Entries), dest)
	return nil
}
