// Package session owns the recording lifecycle: it wires capture sources,
// the pacer, the mixer, and the sink together, drives them from a single
// coordinator goroutine, and exposes the control surface (start, pause,
// resume, stop, status).
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelworks/reel/internal/audio"
	"github.com/reelworks/reel/internal/capture"
	"github.com/reelworks/reel/internal/config"
	"github.com/reelworks/reel/internal/health"
	"github.com/reelworks/reel/internal/logging"
	"github.com/reelworks/reel/internal/mixer"
	"github.com/reelworks/reel/internal/pacer"
	"github.com/reelworks/reel/internal/sink"
	"github.com/reelworks/reel/internal/timeline"
)

var (
	// ErrInvalidTransition is returned for control calls that the current
	// state does not allow.
	ErrInvalidTransition = errors.New("session: invalid state transition")

	// ErrAlreadyStarted is returned by Start after the first call.
	ErrAlreadyStarted = errors.New("session: already started")
)

// Options supplies the session's dependencies. Zero-value fields fall back
// to platform implementations built from the config.
type Options struct {
	Config *config.Config

	// Capturer overrides the platform screen capturer.
	Capturer capture.ScreenCapturer
	// SystemAudio and MicAudio override the platform audio capturers. They
	// are only consulted when the matching config flag is enabled.
	SystemAudio audio.Capturer
	MicAudio    audio.Capturer
	// Sink overrides the ffmpeg sink.
	Sink sink.Sink

	// Health receives per-component checks while the session runs: capture
	// and pacing drop rates, audio silence flags, and sink failures. Nil
	// disables reporting.
	Health *health.Monitor

	// OnCountdown is called once per remaining second during the countdown.
	OnCountdown func(remaining int)

	// Output is the container path handed to the ffmpeg sink. Ignored when
	// Sink is set.
	Output string
}

// Session is a single recording from countdown to finalized output.
type Session struct {
	id  string
	cfg *config.Config
	log *slog.Logger

	clock *timeline.Clock
	video *capture.Source
	audio []*audio.Source
	mix   *mixer.Mixer
	pace  *pacer.Pacer
	out   sink.Sink

	metrics     *Metrics
	hm          *health.Monitor
	onCountdown func(remaining int)
	countdown   int
	output      string

	mu      sync.RWMutex
	state   State
	failure error
	partial bool

	startOnce sync.Once
	stopOnce  sync.Once
	stopReq   chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup
}

// New validates the config and assembles the pipeline. Invalid recording
// settings are rejected here, before any device is touched.
func New(opts Options) (*Session, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	s := &Session{
		id:          id,
		cfg:         cfg,
		log:         logging.WithSession(logging.L("session"), id),
		clock:       timeline.Start(),
		pace:        pacer.New(cfg.Recording.FPS),
		mix:         mixer.New(cfg.Recording.FPS),
		metrics:     newMetrics(),
		hm:          opts.Health,
		onCountdown: opts.OnCountdown,
		countdown:   cfg.Recording.CountdownSeconds,
		output:      opts.Output,
		state:       StateIdle,
		stopReq:     make(chan struct{}),
		done:        make(chan struct{}),
	}
	// The clock starts paused so countdown time never reaches the timeline.
	s.clock.Pause()

	capturer := opts.Capturer
	if capturer == nil {
		res, _ := config.Resolution(cfg.Recording.Resolution)
		var err error
		capturer, err = capture.NewScreenCapturer(capture.Config{
			DisplayIndex: cfg.Recording.DisplayIndex,
			Width:        res.Width,
			Height:       res.Height,
			FPS:          cfg.Recording.FPS,
		})
		if err != nil {
			return nil, fmt.Errorf("screen capturer: %w", err)
		}
	}
	s.video = capture.NewSource(capturer, s.clock, capture.DefaultQueueCap)

	if cfg.Audio.System {
		s.addAudio(audio.KindSystem, opts.SystemAudio, audio.NewLoopbackCapturer)
	}
	if cfg.Audio.Mic {
		s.addAudio(audio.KindMic, opts.MicAudio, audio.NewMicrophoneCapturer)
	}

	s.out = opts.Sink
	if s.out == nil {
		res, _ := config.Resolution(cfg.Recording.Resolution)
		q, _ := config.Quality(cfg.Recording.Quality)
		f, err := sink.NewFFmpeg(sink.FFmpegConfig{
			Binary:       cfg.Output.FFmpeg,
			Output:       opts.Output,
			Width:        res.Width,
			Height:       res.Height,
			FPS:          cfg.Recording.FPS,
			PixelFormat:  capture.PixelFormatRGBA,
			CRF:          q.CRF,
			AudioEnabled: cfg.Audio.System || cfg.Audio.Mic,
		})
		if err != nil {
			capturer.Close()
			return nil, err
		}
		s.out = f
	}

	return s, nil
}

// addAudio registers an audio source. A nil capturer from the platform
// constructor degrades to silence rather than failing the session.
func (s *Session) addAudio(kind audio.Kind, override audio.Capturer, platform func() (audio.Capturer, error)) {
	capturer := override
	if capturer == nil {
		var err error
		capturer, err = platform()
		if err != nil {
			s.log.Warn("audio device unavailable, substituting silence",
				"kind", string(kind), logging.KeyError, err)
			capturer = nil
		}
	}
	src := audio.NewSource(kind, capturer, s.clock, audio.DefaultQueueCap)
	s.audio = append(s.audio, src)
	s.mix.AddSource(src)
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Start launches the countdown and coordinator. It returns immediately;
// callers observe completion through Wait.
func (s *Session) Start() error {
	started := false
	s.startOnce.Do(func() {
		started = true
		s.setState(StateCountdown)
		s.wg.Add(1)
		go s.run()
	})
	if !started {
		return ErrAlreadyStarted
	}
	return nil
}

// Pause freezes the timeline. Producer output while paused is discarded and
// paused wall time never appears in the recording.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, s.state)
	}
	s.clock.Pause()
	s.state = StatePaused
	s.log.Info("paused", "elapsed", s.clock.Now())
	return nil
}

// Resume unfreezes the timeline.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, s.state)
	}
	s.clock.Resume()
	s.state = StateRecording
	s.log.Info("resumed", "elapsed", s.clock.Now())
	return nil
}

// Stop requests a graceful shutdown: drain, flush, finalize. Idempotent and
// safe from any goroutine. During the countdown it cancels the recording
// before any output is produced.
func (s *Session) Stop() {
	s.stopOnce.Do(func() { close(s.stopReq) })
}

// Wait blocks until the session reaches a terminal state and returns the
// failure cause, if any.
func (s *Session) Wait() error {
	<-s.done
	s.wg.Wait()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.failure
}

// Done exposes completion for select loops.
func (s *Session) Done() <-chan struct{} { return s.done }

// Status is a point-in-time snapshot of session progress.
type Status struct {
	ID               string
	State            State
	Elapsed          time.Duration
	FramesDelivered  uint64
	FramesDuplicated uint64
	FramesDropped    uint64
	BlocksDelivered  uint64
	AudioGaps        uint64
	Levels           map[audio.Kind]float64
	Partial          bool
	Output           string
	Err              string
}

// Status reports current state and pipeline counters.
func (s *Session) Status() Status {
	s.mu.RLock()
	state := s.state
	failure := s.failure
	partial := s.partial
	s.mu.RUnlock()

	snap := s.metrics.Snapshot()
	st := Status{
		ID:               s.id,
		State:            state,
		Elapsed:          s.clock.Now(),
		FramesDelivered:  snap.FramesDelivered,
		FramesDuplicated: snap.FramesDuplicated,
		BlocksDelivered:  snap.BlocksDelivered,
		FramesDropped:    s.video.Dropped() + s.pace.Dropped(),
		Levels:           s.mix.Levels(),
		Partial:          partial,
		Output:           s.output,
	}
	for _, src := range s.audio {
		st.AudioGaps += src.Gaps()
	}
	if failure != nil {
		st.Err = failure.Error()
	}
	return st
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// fail moves the session to Failed, preserving whatever the sink has
// already written.
func (s *Session) fail(err error) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateFailed
	s.failure = err
	s.partial = true
	s.mu.Unlock()
	s.log.Error("session failed", logging.KeyError, err)
}
