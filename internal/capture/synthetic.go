package capture

import (
	"sync"
	"time"
)

// SyntheticCapturer renders a scrolling gradient at a fixed cadence. It
// stands in for a real display backend in tests and --synthetic diagnostic
// runs, and exercises the full pipeline including capture jitter handling.
type SyntheticCapturer struct {
	width    int
	height   int
	interval time.Duration
	frame    uint64

	mu     sync.Mutex
	closed bool

	// FailAfter, when > 0, makes every Capture call past that frame count
	// return FailWith. Tests use it to drive the retry/escalation paths.
	FailAfter uint64
	FailWith  error
}

// NewSyntheticCapturer creates a synthetic source producing width×height RGBA
// frames at roughly the given rate.
func NewSyntheticCapturer(width, height, fps int) *SyntheticCapturer {
	if fps <= 0 {
		fps = 30
	}
	return &SyntheticCapturer{
		width:    width,
		height:   height,
		interval: time.Second / time.Duration(fps),
	}
}

func (s *SyntheticCapturer) Capture() (*Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, Fatal(ErrNotSupported)
	}
	n := s.frame
	s.frame++
	failAfter, failWith := s.FailAfter, s.FailWith
	s.mu.Unlock()

	if failAfter > 0 && n >= failAfter && failWith != nil {
		return nil, failWith
	}

	time.Sleep(s.interval)

	stride := s.width * 4
	pix := make([]byte, stride*s.height)
	shift := byte(n) // scroll one step per frame so consecutive frames differ
	for y := 0; y < s.height; y++ {
		row := pix[y*stride : (y+1)*stride]
		for x := 0; x < s.width; x++ {
			row[x*4+0] = byte(x) + shift
			row[x*4+1] = byte(y)
			row[x*4+2] = shift
			row[x*4+3] = 0xFF
		}
	}

	return &Frame{
		Pix:    pix,
		Width:  s.width,
		Height: s.height,
		Stride: stride,
		Format: PixelFormatRGBA,
	}, nil
}

func (s *SyntheticCapturer) Bounds() (int, int, error) {
	return s.width, s.height, nil
}

func (s *SyntheticCapturer) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
