package palpack

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"

	palerrors "github.com/flaneur2020/palpack/palpack/errors"
)

// maxPlaylistLine bounds a single line of a list file.
const maxPlaylistLine = 1 << 20

// PlaylistImporter reads a directory of list files, one track path per line.
// Each list file becomes a playlist named after its base name.
type PlaylistImporter struct {
	opts ImportOptions
}

func NewPlaylistImporter(opts ImportOptions) *PlaylistImporter {
	return &PlaylistImporter{opts: opts}
}

func (im *PlaylistImporter) Import(ctx context.Context, dir string) (*Metadata, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	ext := "." + playlistExt(im.opts.PlaylistExt)
	idx := newEntryIndex(im.opts.Collision)
	lists := 0

	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if child.IsDir() || !strings.EqualFold(filepath.Ext(child.Name()), ext) {
			continue
		}

		playlist := strings.TrimSuffix(child.Name(), filepath.Ext(child.Name()))
		if !validPlaylistName(playlist) {
			return nil, palerrors.ErrInvalidPlaylistName.WithDetail("file", child.Name())
		}
		if err := importPlaylistFile(idx, filepath.Join(dir, child.Name()), playlist); err != nil {
			return nil, err
		}
		lists++
	}

	meta := idx.metadata()
	importLog.Info("Imported %d tracks from %d playlists in %s", len(meta.Entries), lists, dir)
	return meta, nil
}

func importPlaylistFile(idx *entryIndex, path, playlist string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	base := filepath.Dir(path)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxPlaylistLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		track := line
		if !filepath.IsAbs(track) {
			track = filepath.Join(base, track)
		}

		size, err := statTrack(track)
		if err != nil {
			return palerrors.ErrUnresolvedTrack.
				WithDetail("playlist", playlist).
				WithDetail("line", lineNo).
				WithDetail("path", line).
				WithCause(err)
		}
		if err := idx.add(track, playlist, size); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// statTrack checks that path is a regular file that can be opened.
func statTrack(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, &os.PathError{Op: "open", Path: path, Err: errNotRegular}
	}
	return info.Size(), nil
}

// PlaylistExporter copies every track once into dest and writes one list file
// per playlist referencing the copies by absolute path.
type PlaylistExporter struct {
	opts ExportOptions
}

func NewPlaylistExporter(opts ExportOptions) *PlaylistExporter {
	return &PlaylistExporter{opts: opts}
}

func (ex *PlaylistExporter) Export(ctx context.Context, meta *Metadata, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}

	var order []string
	lists := make(map[string]*strings.Builder)
	counter := newPhaseCounter(PhaseExport, len(meta.Entries), ex.opts.Progress)

	for _, e := range meta.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !validEntryName(e.Name) {
			return palerrors.ErrInvalidEntryName.WithDetail("name", e.Name)
		}

		target := filepath.Join(root, e.Name)
		if err := copyFile(e.SourcePath, target); err != nil {
			return err
		}

		for _, playlist := range e.Playlists {
			if !validPlaylistName(playlist) {
				return palerrors.ErrInvalidPlaylistName.
					WithDetail("playlist", playlist).
					WithDetail("entry", e.Name)
			}
			b, ok := lists[playlist]
			if !ok {
				b = &strings.Builder{}
				lists[playlist] = b
				order = append(order, playlist)
			}
			b.WriteString(target)
			b.WriteByte('\n')
		}
		counter.step()
	}

	ext := playlistExt(ex.opts.PlaylistExt)
	for _, playlist := range order {
		path := filepath.Join(root, playlist+"."+ext)
		if err := os.WriteFile(path, []byte(lists[playlist].String()), 0644); err != nil {
			return err
		}
		exportLog.Debug("Wrote playlist %s", path)
	}

	exportLog.Info("Exported %d tracks and %d playlists to %s", len(meta.Entries), len(order), dest)
	return nil
}
