package capture

import (
	"sync"
	"time"

	"github.com/reelworks/reel/internal/logging"
	"github.com/reelworks/reel/internal/queue"
	"github.com/reelworks/reel/internal/timeline"
)

var log = logging.L("capture")

const (
	// DefaultQueueCap bounds the frame queue. Small on purpose: the pacer
	// fills holes by duplication, so stale frames are worth less than memory.
	DefaultQueueCap = 8

	maxRetries     = 5
	initialBackoff = 50 * time.Millisecond
	maxBackoff     = time.Second
)

// Source runs the capture loop on its own goroutine: it calls the capturer
// at the device's maximum achievable rate, tags each frame with a timeline
// timestamp and sequence number, and pushes it into a bounded drop-oldest
// queue. Transient errors are retried with backoff up to a bounded count
// before escalating through the fatal callback.
type Source struct {
	capturer ScreenCapturer
	clock    *timeline.Clock
	out      *queue.Queue[*Frame]

	seq    uint64
	lastTS time.Duration

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSource wraps a capturer. queueCap <= 0 selects DefaultQueueCap.
func NewSource(capturer ScreenCapturer, clock *timeline.Clock, queueCap int) *Source {
	if queueCap <= 0 {
		queueCap = DefaultQueueCap
	}
	return &Source{
		capturer: capturer,
		clock:    clock,
		out:      queue.New[*Frame](queueCap, queue.DropOldest),
		done:     make(chan struct{}),
	}
}

// Frames returns the queue the pacer consumes from.
func (s *Source) Frames() *queue.Queue[*Frame] { return s.out }

// Dropped returns how many frames were lost to queue overflow.
func (s *Source) Dropped() uint64 { return s.out.Dropped() }

// Captured returns how many frames were produced so far.
func (s *Source) Captured() uint64 { return s.out.Pushed() }

// Start launches the capture loop. onFatal is invoked at most once, after
// retries are exhausted or a non-transient error occurs; the loop exits
// immediately afterwards.
func (s *Source) Start(onFatal func(error)) {
	s.wg.Add(1)
	go s.loop(onFatal)
}

// Stop signals the loop to exit and waits for it. The capturer itself is not
// closed here; ownership stays with the caller that created it.
func (s *Source) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *Source) loop(onFatal func(error)) {
	defer s.wg.Done()

	retries := 0
	backoff := initialBackoff

	for {
		select {
		case <-s.done:
			return
		default:
		}

		frame, err := s.capturer.Capture()
		if err != nil {
			if !IsTransient(err) {
				log.Error("capture failed", logging.KeyError, err)
				onFatal(err)
				return
			}
			retries++
			if retries > maxRetries {
				log.Error("capture retries exhausted", "retries", maxRetries, logging.KeyError, err)
				onFatal(err)
				return
			}
			log.Warn("transient capture error, retrying", "attempt", retries, "backoff", backoff, logging.KeyError, err)
			select {
			case <-s.done:
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		retries = 0
		backoff = initialBackoff

		if frame == nil {
			continue // backend had no new image
		}

		// Paused sessions discard output instead of queueing stale frames.
		if s.clock.Paused() {
			continue
		}

		ts := s.clock.Now()
		if ts <= s.lastTS {
			ts = s.lastTS + time.Nanosecond
		}
		s.lastTS = ts
		s.seq++
		frame.CaptureTS = ts
		frame.Sequence = s.seq

		s.out.Push(frame)
	}
}
