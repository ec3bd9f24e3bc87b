package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

func TestPalError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *PalError
		wantStr string
	}{
		{
			name: "basic error",
			err: &PalError{
				Code:    "TEST_ERROR",
				Message: "test message",
			},
			wantStr: "[TEST_ERROR] test message",
		},
		{
			name: "error with cause",
			err: &PalError{
				Code:    "TEST_ERROR",
				Message: "test message",
				Cause:   errors.New("underlying error"),
			},
			wantStr: "[TEST_ERROR] test message: underlying error",
		},
		{
			name: "error with details",
			err: &PalError{
				Code:    "TEST_ERROR",
				Message: "test message",
				Details: map[string]interface{}{"key": "value"},
			},
			wantStr: "details",
		},
		{
			name:    "error with details and cause",
			err:     ErrDecompress.WithDetail("entry", "a.mp3").WithCause(errors.New("gzip: invalid header")),
			wantStr: "gzip: invalid header",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if !strings.Contains(got, tt.wantStr) {
				t.Errorf("Error() = %q, want to contain %q", got, tt.wantStr)
			}
		})
	}
}

func TestPalError_WithCause(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrDecompress.WithCause(cause)

	if err.Cause != cause {
		t.Errorf("WithCause() cause = %v, want %v", err.Cause, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("WithCause() should allow errors.Is to work")
	}

	if err.Kind != KindFormat {
		t.Errorf("WithCause() kind = %v, want %v", err.Kind, KindFormat)
	}
}

func TestPalError_WithDetail(t *testing.T) {
	err := ErrUnresolvedTrack.WithDetail("path", "/music/a.mp3")

	if err.Details["path"] != "/music/a.mp3" {
		t.Errorf("WithDetail() path = %v, want /music/a.mp3", err.Details["path"])
	}

	if _, exists := ErrUnresolvedTrack.Details["path"]; exists {
		t.Error("WithDetail() must not mutate the sentinel")
	}
}

func TestPalError_WithMessage(t *testing.T) {
	err := ErrHeaderLength.WithMessage("custom message")

	if err.Message != "custom message" {
		t.Errorf("WithMessage() message = %q, want 'custom message'", err.Message)
	}
}

func TestPalError_IsMatchesSentinelByCode(t *testing.T) {
	err := fmt.Errorf("read container: %w", ErrPayloadTruncated.WithDetail("entry", "b.mp3"))

	if !errors.Is(err, ErrPayloadTruncated) {
		t.Error("errors.Is should match the sentinel through wrapping and details")
	}
	if errors.Is(err, ErrHeaderLength) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestIsPalError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "PalError",
			err:  ErrNameCollision,
			want: true,
		},
		{
			name: "wrapped PalError",
			err:  fmt.Errorf("import: %w", ErrNameCollision.WithCause(errors.New("test"))),
			want: true,
		},
		{
			name: "standard error",
			err:  errors.New("test"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPalError(tt.err); got != tt.want {
				t.Errorf("IsPalError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name             string
		err              error
		wantFormat       bool
		wantPrecondition bool
	}{
		{name: "header length", err: ErrHeaderLength, wantFormat: true},
		{name: "decompress", err: ErrDecompress.WithCause(errors.New("bad")), wantFormat: true},
		{name: "unresolved track", err: ErrUnresolvedTrack, wantPrecondition: true},
		{name: "busy", err: fmt.Errorf("write: %w", ErrContainerBusy), wantPrecondition: true},
		{name: "io error", err: &fs.PathError{Op: "open", Path: "x", Err: fs.ErrNotExist}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFormatError(tt.err); got != tt.wantFormat {
				t.Errorf("IsFormatError() = %v, want %v", got, tt.wantFormat)
			}
			if got := IsPreconditionError(tt.err); got != tt.wantPrecondition {
				t.Errorf("IsPreconditionError() = %v, want %v", got, tt.wantPrecondition)
			}
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "PalError",
			err:  ErrMetadataDecode,
			want: "METADATA_DECODE",
		},
		{
			name: "PalError with modifications",
			err:  ErrSizeMismatch.WithDetail("entry", "a.mp3"),
			want: "SIZE_MISMATCH",
		},
		{
			name: "standard error",
			err:  errors.New("test"),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetErrorCode(tt.err); got != tt.want {
				t.Errorf("GetErrorCode() = %q, want %q", got, tt.want)
			}
		})
	}
}
