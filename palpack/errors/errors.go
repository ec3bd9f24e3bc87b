package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind separates a bad container from a bad input tree.
type Kind int

const (
	// KindFormat marks a container that cannot be decoded.
	KindFormat Kind = iota + 1
	// KindPrecondition marks input that an importer, exporter or writer refuses.
	KindPrecondition
)

func (k Kind) String() string {
	switch k {
	case KindFormat:
		return "format"
	case KindPrecondition:
		return "precondition"
	default:
		return "unknown"
	}
}

// Format errors: the container itself is malformed or foreign.
var (
	// ErrHeaderTruncated is returned when the file is shorter than the length header
	ErrHeaderTruncated = &PalError{Code: "HEADER_TRUNCATED", Kind: KindFormat, Message: "container shorter than its length header"}

	// ErrHeaderLength is returned when the declared metadata length exceeds the file
	ErrHeaderLength = &PalError{Code: "HEADER_LENGTH", Kind: KindFormat, Message: "metadata length exceeds container size"}

	// ErrMetadataDecode is returned when the metadata block does not decode
	ErrMetadataDecode = &PalError{Code: "METADATA_DECODE", Kind: KindFormat, Message: "failed to decode metadata"}

	// ErrUnsupportedVersion is returned for a metadata envelope written by a newer format
	ErrUnsupportedVersion = &PalError{Code: "UNSUPPORTED_VERSION", Kind: KindFormat, Message: "unsupported container version"}

	// ErrPayloadTruncated is returned when an entry's declared size runs past the end of the container
	ErrPayloadTruncated = &PalError{Code: "PAYLOAD_TRUNCATED", Kind: KindFormat, Message: "payload extends past end of container"}

	// ErrDecompress is returned when a payload fails its declared compression backend
	ErrDecompress = &PalError{Code: "DECOMPRESS_FAILED", Kind: KindFormat, Message: "payload failed to decompress"}

	// ErrSizeMismatch is returned when a decompressed payload has the wrong length
	ErrSizeMismatch = &PalError{Code: "SIZE_MISMATCH", Kind: KindFormat, Message: "decompressed size does not match metadata"}

	// ErrUnsafeEntryName is returned when a container names an entry with a path
	// separator or an empty name. It shares its code with ErrInvalidEntryName.
	ErrUnsafeEntryName = &PalError{Code: "INVALID_ENTRY_NAME", Kind: KindFormat, Message: "container entry has no usable file name"}

	// ErrDuplicateEntry is returned when a container lists the same entry name twice
	ErrDuplicateEntry = &PalError{Code: "DUPLICATE_ENTRY", Kind: KindFormat, Message: "duplicate entry name in container"}
)

// Precondition errors: the caller's input cannot be packed or unpacked.
var (
	// ErrUnresolvedTrack is returned when a playlist line does not name a readable file
	ErrUnresolvedTrack = &PalError{Code: "UNRESOLVED_TRACK", Kind: KindPrecondition, Message: "playlist entry does not resolve to a readable file"}

	// ErrInvalidEntryName is returned when an entry has no usable file name
	ErrInvalidEntryName = &PalError{Code: "INVALID_ENTRY_NAME", Kind: KindPrecondition, Message: "entry has no usable file name"}

	// ErrNameCollision is returned by the error collision policy
	ErrNameCollision = &PalError{Code: "NAME_COLLISION", Kind: KindPrecondition, Message: "two tracks share a file name"}

	// ErrInvalidPlaylistName is returned when a playlist name cannot be used as a path element
	ErrInvalidPlaylistName = &PalError{Code: "INVALID_PLAYLIST_NAME", Kind: KindPrecondition, Message: "playlist name is not a usable path element"}

	// ErrInvalidCompression is returned for an unknown backend or an out-of-range level
	ErrInvalidCompression = &PalError{Code: "INVALID_COMPRESSION", Kind: KindPrecondition, Message: "invalid compression descriptor"}

	// ErrContainerBusy is returned when another writer holds the container lock
	ErrContainerBusy = &PalError{Code: "CONTAINER_BUSY", Kind: KindPrecondition, Message: "container is locked by another writer"}
)

// PalError represents a structured error in palpack operations
type PalError struct {
	Code    string                 // Error code for programmatic handling
	Kind    Kind                   // Format or precondition
	Message string                 // Human-readable error message
	Cause   error                  // Underlying error, if any
	Details map[string]interface{} // Additional context
}

// Error implements the error interface
func (e *PalError) Error() string {
	if e.Cause != nil {
		if len(e.Details) > 0 {
			return fmt.Sprintf("[%s] %s (details: %v): %v", e.Code, e.Message, e.Details, e.Cause)
		}
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	if len(e.Details) > 0 {
		return fmt.Sprintf("[%s] %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *PalError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a PalError with the same code, so derived
// errors still match their sentinel.
func (e *PalError) Is(target error) bool {
	t, ok := target.(*PalError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds a cause to the error
func (e *PalError) WithCause(cause error) *PalError {
	return &PalError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: e.Message,
		Cause:   cause,
		Details: e.Details,
	}
}

// WithDetail adds a detail key-value pair to the error
func (e *PalError) WithDetail(key string, value interface{}) *PalError {
	details := make(map[string]interface{})
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &PalError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: e.Message,
		Cause:   e.Cause,
		Details: details,
	}
}

// WithMessage overrides the error message
func (e *PalError) WithMessage(message string) *PalError {
	return &PalError{
		Code:    e.Code,
		Kind:    e.Kind,
		Message: message,
		Cause:   e.Cause,
		Details: e.Details,
	}
}

// IsPalError checks if an error chain contains a PalError
func IsPalError(err error) bool {
	var palErr *PalError
	return stderrors.As(err, &palErr)
}

// IsFormatError reports whether err means the container could not be decoded.
func IsFormatError(err error) bool {
	return kindOf(err) == KindFormat
}

// IsPreconditionError reports whether err means the input was refused.
func IsPreconditionError(err error) bool {
	return kindOf(err) == KindPrecondition
}

// GetErrorCode extracts the error code from a PalError
func GetErrorCode(err error) string {
	var palErr *PalError
	if stderrors.As(err, &palErr) {
		return palErr.Code
	}
	return ""
}

func kindOf(err error) Kind {
	var palErr *PalError
	if stderrors.As(err, &palErr) {
		return palErr.Kind
	}
	return 0
}
