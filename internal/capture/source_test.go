package capture

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/reelworks/reel/internal/timeline"
)

// scriptedCapturer returns canned results in order, then blocks on done.
type scriptedCapturer struct {
	mu      sync.Mutex
	results []error // nil entry = successful frame
	done    chan struct{}
}

func newScriptedCapturer(results ...error) *scriptedCapturer {
	return &scriptedCapturer{results: results, done: make(chan struct{})}
}

func (c *scriptedCapturer) Capture() (*Frame, error) {
	c.mu.Lock()
	if len(c.results) == 0 {
		c.mu.Unlock()
		<-c.done
		return nil, Fatal(errors.New("closed"))
	}
	r := c.results[0]
	c.results = c.results[1:]
	c.mu.Unlock()

	if r != nil {
		return nil, r
	}
	return &Frame{Pix: make([]byte, 16), Width: 2, Height: 2, Stride: 8, Format: PixelFormatRGBA}, nil
}

func (c *scriptedCapturer) Bounds() (int, int, error) { return 2, 2, nil }
func (c *scriptedCapturer) Close() error              { close(c.done); return nil }

func TestSourceTagsStrictlyIncreasing(t *testing.T) {
	capturer := newScriptedCapturer(nil, nil, nil, nil)
	defer capturer.Close()

	src := NewSource(capturer, timeline.Start(), 8)
	src.Start(func(err error) { t.Errorf("unexpected fatal: %v", err) })
	defer src.Stop()

	var lastTS time.Duration
	var lastSeq uint64
	for i := 0; i < 4; i++ {
		f, ok := src.Frames().PopWait(time.Second)
		if !ok {
			t.Fatalf("frame %d never arrived", i)
		}
		if f.CaptureTS <= lastTS && i > 0 {
			t.Fatalf("timestamp not strictly increasing: %v after %v", f.CaptureTS, lastTS)
		}
		if f.Sequence != lastSeq+1 {
			t.Fatalf("sequence gap: %d after %d", f.Sequence, lastSeq)
		}
		lastTS, lastSeq = f.CaptureTS, f.Sequence
	}
}

func TestSourceRetriesTransientErrors(t *testing.T) {
	capturer := newScriptedCapturer(
		Transient(errors.New("display mode change")),
		Transient(errors.New("display mode change")),
		nil,
	)
	defer capturer.Close()

	src := NewSource(capturer, timeline.Start(), 8)
	src.Start(func(err error) { t.Errorf("unexpected fatal: %v", err) })
	defer src.Stop()

	if _, ok := src.Frames().PopWait(2 * time.Second); !ok {
		t.Fatal("frame never arrived after transient errors")
	}
}

func TestSourceEscalatesAfterRetryBudget(t *testing.T) {
	var results []error
	for i := 0; i < maxRetries+1; i++ {
		results = append(results, Transient(errors.New("still broken")))
	}
	capturer := newScriptedCapturer(results...)
	defer capturer.Close()

	fatal := make(chan error, 1)
	src := NewSource(capturer, timeline.Start(), 8)
	src.Start(func(err error) { fatal <- err })

	select {
	case err := <-fatal:
		if !IsTransient(err) {
			t.Fatalf("escalated error lost its type: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("fatal callback never fired")
	}
	src.Stop()
}

func TestSourceEscalatesFatalImmediately(t *testing.T) {
	capturer := newScriptedCapturer(Fatal(errors.New("device gone")))
	defer capturer.Close()

	fatal := make(chan error, 1)
	src := NewSource(capturer, timeline.Start(), 8)
	src.Start(func(err error) { fatal <- err })

	select {
	case <-fatal:
	case <-time.After(time.Second):
		t.Fatal("fatal callback never fired")
	}
	src.Stop()
}

func TestSourceDiscardsWhilePaused(t *testing.T) {
	clock := timeline.Start()
	clock.Pause()

	capturer := NewSyntheticCapturer(4, 4, 240)
	defer capturer.Close()

	src := NewSource(capturer, clock, 8)
	src.Start(func(err error) { t.Errorf("unexpected fatal: %v", err) })

	time.Sleep(50 * time.Millisecond)
	if n := src.Frames().Len(); n != 0 {
		t.Fatalf("paused source queued %d frames", n)
	}
	src.Stop()
}

func TestSyntheticFramesDiffer(t *testing.T) {
	capturer := NewSyntheticCapturer(8, 8, 240)
	defer capturer.Close()

	a, err := capturer.Capture()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	b, err := capturer.Capture()
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	same := true
	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("consecutive synthetic frames are identical")
	}
}
