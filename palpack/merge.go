package palpack

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/flaneur2020/palpack/palpack/compression"
	palerrors "github.com/flaneur2020/palpack/palpack/errors"
)

// CollisionPolicy decides what an importer does when two different files
// share a file name.
type CollisionPolicy string

const (
	// CollisionMerge keeps the first file and adds the later playlist to it.
	CollisionMerge CollisionPolicy = "merge"
	// CollisionError refuses the import.
	CollisionError CollisionPolicy = "error"
	// CollisionRename keeps both when their content differs, suffixing the
	// later one with a short content digest.
	CollisionRename CollisionPolicy = "rename"
)

// ParseCollisionPolicy accepts merge, error or rename. Empty means merge.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return CollisionMerge, nil
	case CollisionMerge, CollisionError, CollisionRename:
		return p, nil
	default:
		return "", fmt.Errorf("unknown collision policy %q (want merge, error or rename)", s)
	}
}

// digestSuffixLen is how many hex characters of the content digest a renamed
// entry carries.
const digestSuffixLen = 12

// entryIndex accumulates imported files into entries keyed by file name.
type entryIndex struct {
	policy  CollisionPolicy
	entries []AudioEntry
	byName  map[string]int
	digests map[int]digest.Digest
}

func newEntryIndex(policy CollisionPolicy) *entryIndex {
	if policy == "" {
		policy = CollisionMerge
	}
	return &entryIndex{
		policy:  policy,
		byName:  make(map[string]int),
		digests: make(map[int]digest.Digest),
	}
}

// add registers the file at path as a member of playlist.
func (x *entryIndex) add(path, playlist string, size int64) error {
	name := filepath.Base(path)
	if !validEntryName(name) {
		return palerrors.ErrInvalidEntryName.WithDetail("path", path)
	}

	i, ok := x.byName[name]
	if !ok {
		x.insert(name, path, playlist, size)
		return nil
	}

	existing := &x.entries[i]
	if sameFile(existing.SourcePath, path) {
		x.join(i, playlist)
		return nil
	}

	switch x.policy {
	case CollisionError:
		return palerrors.ErrNameCollision.
			WithDetail("name", name).
			WithDetail("first", existing.SourcePath).
			WithDetail("second", path)

	case CollisionRename:
		existingDigest, err := x.digestOf(i)
		if err != nil {
			return err
		}
		d, err := fileDigest(path)
		if err != nil {
			return err
		}
		if d == existingDigest {
			x.join(i, playlist)
			return nil
		}

		renamed := digestName(name, d)
		importLog.Warn("Track %s differs from %s, importing it as %s", path, existing.SourcePath, renamed)
		if j, ok := x.byName[renamed]; ok {
			x.join(j, playlist)
			return nil
		}
		x.insert(renamed, path, playlist, size)
		x.digests[x.byName[renamed]] = d
		return nil

	default:
		x.join(i, playlist)
		return nil
	}
}

func (x *entryIndex) insert(name, path, playlist string, size int64) {
	x.byName[name] = len(x.entries)
	x.entries = append(x.entries, AudioEntry{
		Name:       name,
		SourceSize: uint64(size),
		Playlists:  []string{playlist},
		SourcePath: path,
	})
}

func (x *entryIndex) join(i int, playlist string) {
	e := &x.entries[i]
	importLog.Debug("Merging %s into playlist %s", e.Name, playlist)
	e.Playlists = append(e.Playlists, playlist)
}

func (x *entryIndex) digestOf(i int) (digest.Digest, error) {
	if d, ok := x.digests[i]; ok {
		return d, nil
	}
	d, err := fileDigest(x.entries[i].SourcePath)
	if err != nil {
		return "", err
	}
	x.digests[i] = d
	return d, nil
}

func (x *entryIndex) metadata() *Metadata {
	entries := x.entries
	if entries == nil {
		entries = []AudioEntry{}
	}
	return &Metadata{Compression: compression.None(), Entries: entries}
}

func fileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	d, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to digest %s: %w", path, err)
	}
	return d, nil
}

// digestName turns "song.mp3" into "song-<12 hex>.mp3".
func digestName(name string, d digest.Digest) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	hex := d.Encoded()
	if len(hex) > digestSuffixLen {
		hex = hex[:digestSuffixLen]
	}
	return stem + "-" + hex + ext
}

func sameFile(a, b string) bool {
	if filepath.Clean(a) == filepath.Clean(b) {
		return true
	}
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}
