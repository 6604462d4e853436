// Package capture produces screen frames at the device's native cadence and
// feeds them into a bounded queue for the pacer to resample.
package capture

import (
	"errors"
	"fmt"
)

// ScreenCapturer is the device-facing capture contract. Capture blocks until
// the next image is available. Implementations fill Width/Height/Stride/
// Format/Pix; the Source wrapper assigns timestamps and sequence numbers.
type ScreenCapturer interface {
	Capture() (*Frame, error)

	// Bounds returns the capture dimensions.
	Bounds() (width, height int, err error)

	// Close releases any resources held by the capturer.
	Close() error
}

// Config holds configuration for screen capture.
type Config struct {
	// DisplayIndex specifies which display to capture (0 = primary).
	DisplayIndex int

	// Width and Height request a capture resolution. Zero means native.
	Width  int
	Height int

	// FPS hints the device-side cadence for backends that pace themselves
	// (the pacer downstream enforces the real output rate).
	FPS int
}

// ErrNotSupported is returned when screen capture is not supported on the platform.
var ErrNotSupported = errors.New("screen capture not supported on this platform")

// ErrPermissionDenied is returned when screen capture permissions are not granted.
var ErrPermissionDenied = errors.New("screen capture permission denied")

// ErrDisplayNotFound is returned when the specified display is not found.
var ErrDisplayNotFound = errors.New("display not found")

// Error wraps a capture failure and records whether it is worth retrying.
// Transient failures (display mode change, fleeting access loss) are retried
// with backoff by the Source; persistent ones end the session.
type Error struct {
	Err       error
	Transient bool
}

func (e *Error) Error() string {
	if e.Transient {
		return fmt.Sprintf("transient capture error: %v", e.Err)
	}
	return fmt.Sprintf("capture error: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable capture error.
func Transient(err error) error { return &Error{Err: err, Transient: true} }

// Fatal wraps err as a non-retryable capture error.
func Fatal(err error) error { return &Error{Err: err, Transient: false} }

// IsTransient reports whether err is a retryable capture error.
func IsTransient(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Transient
}

// NewScreenCapturer creates a platform-specific screen capturer.
func NewScreenCapturer(cfg Config) (ScreenCapturer, error) {
	return newPlatformCapturer(cfg)
}
