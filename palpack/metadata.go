package palpack

import (
	"fmt"
	"math"
	"strings"

	"github.com/fxamacker/cbor/v2"

	"github.com/flaneur2020/palpack/palpack/compression"
	palerrors "github.com/flaneur2020/palpack/palpack/errors"
)

// RootPlaylist is the membership of files found at the top level of a
// directory tree rather than inside a named playlist directory.
const RootPlaylist = "root"

const (
	// HeaderSize is the length of the big-endian metadata length prefix.
	HeaderSize = 8
	// FormatVersion is the metadata envelope version written by this package.
	FormatVersion = 1

	formatName = "pal"
)

// Metadata is the index of an audio library: its label, the compression
// applied to every payload and the ordered list of tracks.
type Metadata struct {
	Name        string
	Compression compression.Descriptor
	Entries     []AudioEntry
}

// AudioEntry describes one track. Name is unique within a Metadata.
type AudioEntry struct {
	Name string
	// Size is the stored (compressed) payload length. WriteFile overwrites it;
	// after a read it is the number of bytes consumed from the container.
	Size uint64
	// SourceSize is the uncompressed length.
	SourceSize uint64
	Playlists  []string
	// SourcePath is never persisted. Importers point it at the original file,
	// Read points it into the scratch store.
	SourcePath string
}

// Entry looks up an entry by name.
func (m *Metadata) Entry(name string) (*AudioEntry, bool) {
	for i := range m.Entries {
		if m.Entries[i].Name == name {
			return &m.Entries[i], true
		}
	}
	return nil, false
}

// StoredSize is the total length of the payload region.
func (m *Metadata) StoredSize() uint64 {
	var total uint64
	for _, e := range m.Entries {
		total += e.Size
	}
	return total
}

// SourceSize is the total uncompressed length of all tracks.
func (m *Metadata) SourceSize() uint64 {
	var total uint64
	for _, e := range m.Entries {
		total += e.SourceSize
	}
	return total
}

// Validate checks the invariants a writer relies on.
func (m *Metadata) Validate() error {
	if err := m.Compression.Validate(); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(m.Entries))
	for _, e := range m.Entries {
		if !validEntryName(e.Name) {
			return palerrors.ErrInvalidEntryName.WithDetail("name", e.Name)
		}
		if _, dup := seen[e.Name]; dup {
			return palerrors.ErrNameCollision.WithDetail("name", e.Name)
		}
		seen[e.Name] = struct{}{}

		for _, p := range e.Playlists {
			if !validPlaylistName(p) {
				return palerrors.ErrInvalidPlaylistName.
					WithDetail("name", e.Name).
					WithDetail("playlist", p)
			}
		}
	}
	return nil
}

type wireMetadata struct {
	Format      string                 `cbor:"format"`
	Version     uint32                 `cbor:"version"`
	Name        string                 `cbor:"name"`
	Compression compression.Descriptor `cbor:"compression"`
	Entries     []wireEntry            `cbor:"entries"`
}

type wireEntry struct {
	Name       string   `cbor:"name"`
	Size       uint64   `cbor:"size"`
	SourceSize uint64   `cbor:"source_size"`
	Playlists  []string `cbor:"playlists"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("palpack: cbor encoder options: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		MaxArrayElements:  math.MaxInt32,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("palpack: cbor decoder options: %v", err))
	}
}

// EncodeMetadata serializes m without any SourcePath.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	w := wireMetadata{
		Format:      formatName,
		Version:     FormatVersion,
		Name:        m.Name,
		Compression: m.Compression,
		Entries:     make([]wireEntry, len(m.Entries)),
	}
	if w.Compression.Kind == "" {
		w.Compression = compression.None()
	}
	for i, e := range m.Entries {
		w.Entries[i] = wireEntry{
			Name:       e.Name,
			Size:       e.Size,
			SourceSize: e.SourceSize,
			Playlists:  e.Playlists,
		}
	}

	data, err := encMode.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return data, nil
}

// DecodeMetadata parses a metadata block produced by EncodeMetadata.
func DecodeMetadata(data []byte) (*Metadata, error) {
	var w wireMetadata
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, palerrors.ErrMetadataDecode.WithCause(err)
	}

	if w.Format != formatName {
		return nil, palerrors.ErrMetadataDecode.
			WithMessage("metadata is not a pal index").
			WithDetail("format", w.Format)
	}
	if w.Version == 0 || w.Version > FormatVersion {
		return nil, palerrors.ErrUnsupportedVersion.WithDetail("version", w.Version)
	}
	if err := w.Compression.Validate(); err != nil {
		return nil, palerrors.ErrMetadataDecode.WithCause(err)
	}

	m := &Metadata{
		Name:        w.Name,
		Compression: w.Compression,
		Entries:     make([]AudioEntry, len(w.Entries)),
	}
	for i, e := range w.Entries {
		m.Entries[i] = AudioEntry{
			Name:       e.Name,
			Size:       e.Size,
			SourceSize: e.SourceSize,
			Playlists:  e.Playlists,
		}
	}
	return m, nil
}

func validEntryName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// validPlaylistName reports whether name can be used as a directory or file
// name directly under an export destination.
func validPlaylistName(name string) bool {
	return validEntryName(name)
}
