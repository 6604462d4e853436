package audio

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/reelworks/reel/internal/logging"
	"github.com/reelworks/reel/internal/queue"
	"github.com/reelworks/reel/internal/timeline"
)

var log = logging.L("audio")

// DefaultQueueCap bounds each audio queue. Larger than the frame queue:
// 32 chunks of 20ms buffers well over half a second of device jitter.
const DefaultQueueCap = 32

// Source wraps one audio device. The device callback tags each chunk with a
// timeline timestamp and pushes it drop-newest into a bounded queue; if the
// device disconnects mid-session the source marks itself silent and the mixer
// substitutes zero-filled blocks, so losing either device degrades the
// recording instead of failing it.
type Source struct {
	kind     Kind
	capturer Capturer
	clock    *timeline.Clock
	out      *queue.Queue[Block]

	silent  atomic.Bool
	gaps    atomic.Uint64
	started bool
	mu      sync.Mutex
	lastTS  atomic.Int64 // time.Duration of the last delivered chunk
}

// NewSource wraps a capturer. capturer may be nil (device unavailable), in which
// case the source starts silent. queueCap <= 0 selects DefaultQueueCap.
func NewSource(kind Kind, capturer Capturer, clock *timeline.Clock, queueCap int) *Source {
	if queueCap <= 0 {
		queueCap = DefaultQueueCap
	}
	s := &Source{
		kind:     kind,
		capturer: capturer,
		clock:    clock,
		out:      queue.New[Block](queueCap, queue.DropNewest),
	}
	if capturer == nil {
		s.silent.Store(true)
	}
	return s
}

// Blocks returns the queue the mixer consumes from.
func (s *Source) Blocks() *queue.Queue[Block] { return s.out }

// Kind returns the source name ("system" or "mic").
func (s *Source) Kind() Kind { return s.kind }

// Silent reports whether this source contributes only zeros (device missing,
// disconnected, or disabled by config).
func (s *Source) Silent() bool { return s.silent.Load() }

// Gaps returns the number of chunks lost to queue overflow or disconnect.
func (s *Source) Gaps() uint64 { return s.gaps.Load() + s.out.Dropped() }

// Start begins device delivery. A start failure downgrades the source to
// silent rather than failing the session.
func (s *Source) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.capturer == nil {
		return
	}
	s.started = true

	if err := s.capturer.Start(s.onChunk); err != nil {
		log.Warn("audio device failed to start, continuing silent",
			"source", string(s.kind), logging.KeyError, err)
		s.silent.Store(true)
	}
}

// Stop halts device delivery.
func (s *Source) Stop() {
	s.mu.Lock()
	started := s.started
	s.started = false
	s.mu.Unlock()
	if started && s.capturer != nil {
		s.capturer.Stop()
	}
}

// onChunk runs in the device callback context. It must not block: the push
// is O(1) and a full queue drops the incoming chunk.
func (s *Source) onChunk(samples []int16, channels, sampleRate int) {
	if samples == nil {
		// Device disconnected. Degrade to silence, session continues.
		if s.silent.CompareAndSwap(false, true) {
			s.gaps.Add(1)
			log.Warn("audio device disconnected, substituting silence", "source", string(s.kind))
		}
		return
	}
	if s.clock.Paused() {
		return
	}

	ts := s.clock.Now()
	if last := time.Duration(s.lastTS.Load()); ts <= last {
		ts = last + time.Nanosecond
	}
	s.lastTS.Store(int64(ts))

	s.out.Push(Block{
		Samples:    samples,
		Channels:   channels,
		SampleRate: sampleRate,
		StartTS:    ts,
		Duration:   BlockDuration(len(samples), channels, sampleRate),
	})
}
