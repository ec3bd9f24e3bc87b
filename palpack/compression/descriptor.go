// Package compression holds the payload compression backends of a .pal
// container. A Descriptor is persisted in the container metadata and is the
// only thing that selects a backend; there is no registration mechanism.
package compression

import (
	"fmt"
	"strings"

	palerrors "github.com/flaneur2020/palpack/palpack/errors"
)

// Kind names a compression backend as it is persisted.
type Kind string

const (
	KindNone   Kind = "none"
	KindGzip   Kind = "gzip"
	KindLz4    Kind = "lz4"
	KindSnappy Kind = "snappy"
)

// MaxLevel is the highest level accepted by the levelled backends.
const MaxLevel = 9

// Descriptor selects a backend and, for gzip and lz4, its level.
// The zero value means no compression.
type Descriptor struct {
	Kind  Kind   `cbor:"kind"`
	Level uint32 `cbor:"level,omitempty"`
}

func None() Descriptor { return Descriptor{Kind: KindNone} }

func Gzip(level uint32) Descriptor { return Descriptor{Kind: KindGzip, Level: level} }

func Lz4(level uint32) Descriptor { return Descriptor{Kind: KindLz4, Level: level} }

func Snappy() Descriptor { return Descriptor{Kind: KindSnappy} }

// Levelled reports whether Level is meaningful for this backend.
func (d Descriptor) Levelled() bool {
	return d.Kind == KindGzip || d.Kind == KindLz4
}

// Parse maps a user-facing backend name to a Descriptor. The level is ignored
// by backends that have none.
func Parse(name string, level uint32) (Descriptor, error) {
	var d Descriptor
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		d = None()
	case "gzip", "gz":
		d = Gzip(level)
	case "lz4":
		d = Lz4(level)
	case "snappy", "snap":
		d = Snappy()
	default:
		return Descriptor{}, palerrors.ErrInvalidCompression.WithDetail("type", name)
	}
	return d, d.Validate()
}

// Validate rejects unknown kinds and out-of-range levels.
func (d Descriptor) Validate() error {
	switch d.kind() {
	case KindNone, KindSnappy:
		return nil
	case KindGzip, KindLz4:
		if d.Level > MaxLevel {
			return palerrors.ErrInvalidCompression.
				WithDetail("type", string(d.Kind)).
				WithDetail("level", d.Level).
				WithMessage(fmt.Sprintf("compression level must be between 0 and %d", MaxLevel))
		}
		return nil
	default:
		return palerrors.ErrInvalidCompression.WithDetail("type", string(d.Kind))
	}
}

func (d Descriptor) String() string {
	if d.Levelled() {
		return fmt.Sprintf("%s(%d)", d.Kind, d.Level)
	}
	return string(d.kind())
}

func (d Descriptor) kind() Kind {
	if d.Kind == "" {
		return KindNone
	}
	return d.Kind
}
