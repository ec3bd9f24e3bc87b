package palpack

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	palerrors "github.com/flaneur2020/palpack/palpack/errors"
)

func TestDirectoryImporter_Import(t *testing.T) {
	src := t.TempDir()
	writeFixture(t, filepath.Join(src, "b.mp3"), []byte("bb"))
	writeFixture(t, filepath.Join(src, "a.mp3"), []byte("a"))
	writeFixture(t, filepath.Join(src, "jazz", "c.flac"), []byte("ccc"))
	writeFixture(t, filepath.Join(src, "jazz", "a.mp3"), []byte("shadowed"))
	writeFixture(t, filepath.Join(src, "jazz", "deeper", "ignored.mp3"), []byte("x"))
	writeFixture(t, filepath.Join(src, "blues", "b.mp3"), []byte("shadowed too"))
	if err := os.Symlink(filepath.Join(src, "a.mp3"), filepath.Join(src, "link.mp3")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	meta, err := NewDirectoryImporter(ImportOptions{}).Import(context.Background(), src)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	// Lexical walk: a.mp3, b.mp3, blues/, jazz/, link.mp3.
	want := []struct {
		name      string
		size      uint64
		playlists string
	}{
		{name: "a.mp3", size: 1, playlists: "root,jazz"},
		{name: "b.mp3", size: 2, playlists: "root,blues"},
		{name: "c.flac", size: 3, playlists: "jazz"},
	}

	if len(meta.Entries) != len(want) {
		t.Fatalf("got %d entries (%+v), want %d", len(meta.Entries), meta.Entries, len(want))
	}
	for i, w := range want {
		e := meta.Entries[i]
		if e.Name != w.name || e.SourceSize != w.size || strings.Join(e.Playlists, ",") != w.playlists {
			t.Errorf("entry %d = %s/%d/%v, want %s/%d/%s", i, e.Name, e.SourceSize, e.Playlists, w.name, w.size, w.playlists)
		}
	}
	if got := meta.Entries[0].SourcePath; got != filepath.Join(src, "a.mp3") {
		t.Errorf("a.mp3 source = %q, want the top-level file", got)
	}
}

func TestDirectoryImporter_Empty(t *testing.T) {
	meta, err := NewDirectoryImporter(ImportOptions{}).Import(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if meta.Entries == nil || len(meta.Entries) != 0 {
		t.Errorf("Entries = %#v, want empty non-nil", meta.Entries)
	}
}

func TestDirectoryImporter_MissingDir(t *testing.T) {
	_, err := NewDirectoryImporter(ImportOptions{}).Import(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Import() error = %v, want not-exist", err)
	}
}

func TestDirectoryImporter_CollisionError(t *testing.T) {
	src := t.TempDir()
	writeFixture(t, filepath.Join(src, "a.mp3"), []byte("1"))
	writeFixture(t, filepath.Join(src, "p", "a.mp3"), []byte("2"))

	_, err := NewDirectoryImporter(ImportOptions{Collision: CollisionError}).Import(context.Background(), src)
	if !errors.Is(err, palerrors.ErrNameCollision) {
		t.Fatalf("Import() error = %v, want NAME_COLLISION", err)
	}
}

func TestDirectoryExporter_Export(t *testing.T) {
	src := t.TempDir()
	writeFixture(t, filepath.Join(src, "x.ogg"), []byte("xx"))
	meta := &Metadata{Entries: []AudioEntry{
		{Name: "x.ogg", Playlists: []string{"gym", RootPlaylist, "sleep"}, SourcePath: filepath.Join(src, "x.ogg")},
	}}

	var events []int
	progress := func(phase Phase, current, total int) {
		if phase != PhaseExport || total != 3 {
			t.Errorf("progress(%s, %d, %d)", phase, current, total)
		}
		events = append(events, current)
	}

	dest := filepath.Join(t.TempDir(), "out")
	if err := NewDirectoryExporter(ExportOptions{Progress: progress}).Export(context.Background(), meta, dest); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	for _, rel := range []string{"x.ogg", "gym/x.ogg", "sleep/x.ogg"} {
		if got := readFixture(t, filepath.Join(dest, rel)); string(got) != "xx" {
			t.Errorf("%s = %q, want xx", rel, got)
		}
	}
	if len(events) != 4 || events[3] != 3 {
		t.Errorf("progress events = %v, want 0..3", events)
	}
}

func TestDirectoryExporter_RejectsEscapingPlaylist(t *testing.T) {
	src := t.TempDir()
	writeFixture(t, filepath.Join(src, "x.ogg"), []byte("xx"))

	for _, playlist := range []string{"..", "../elsewhere", "a/b", ""} {
		t.Run(playlist, func(t *testing.T) {
			meta := &Metadata{Entries: []AudioEntry{
				{Name: "x.ogg", Playlists: []string{playlist}, SourcePath: filepath.Join(src, "x.ogg")},
			}}
			err := NewDirectoryExporter(ExportOptions{}).Export(context.Background(), meta, t.TempDir())
			if !errors.Is(err, palerrors.ErrInvalidPlaylistName) {
				t.Fatalf("Export() error = %v, want INVALID_PLAYLIST_NAME", err)
			}
		})
	}
}
