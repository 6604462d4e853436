package capture

import "time"

// PixelFormat identifies the byte order of a frame's pixel buffer.
type PixelFormat string

const (
	PixelFormatRGBA PixelFormat = "rgba"
	PixelFormatBGRA PixelFormat = "bgra"
)

// Frame is one captured screen image. Frames are immutable once produced:
// the pixel buffer is written exactly once by the capturer and then handed
// down the pipeline, so later stages may retain references without copying.
type Frame struct {
	Pix    []byte
	Width  int
	Height int
	Stride int
	Format PixelFormat

	// CaptureTS is the session-relative timestamp assigned when the frame
	// left the capturer. Strictly increasing per source.
	CaptureTS time.Duration

	// Sequence is the per-source capture counter, strictly increasing.
	Sequence uint64
}
