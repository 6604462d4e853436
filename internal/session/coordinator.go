package session

import (
	"fmt"
	"time"

	"github.com/reelworks/reel/internal/audio"
	"github.com/reelworks/reel/internal/health"
)

// maxCatchUpTicks bounds how many grid ticks one wake may emit after a
// stall, so a long scheduler gap becomes a short duplicate burst instead of
// an unbounded one.
const maxCatchUpTicks = 8

// run is the coordinator goroutine: countdown, then the tick loop, then
// drain and finalize. It is the only goroutine that touches the pacer, the
// mixer, and the sink.
func (s *Session) run() {
	defer s.wg.Done()
	defer close(s.done)

	if !s.runCountdown() {
		// Cancelled before recording began: nothing was captured, so a
		// finalize error is not worth failing over.
		if err := s.out.Finalize(); err != nil {
			s.log.Warn("finalize after cancelled countdown", "error", err)
		}
		s.setState(StateFinalized)
		s.log.Info("cancelled during countdown")
		return
	}

	s.beginRecording()
	s.loop()
}

// runCountdown counts down whole seconds, reporting each one. Returns false
// when Stop arrives first.
func (s *Session) runCountdown() bool {
	for remaining := s.countdown; remaining > 0; remaining-- {
		if s.onCountdown != nil {
			s.onCountdown(remaining)
		}
		s.log.Info("countdown", "remaining", remaining)
		select {
		case <-s.stopReq:
			return false
		case <-time.After(time.Second):
		}
	}
	select {
	case <-s.stopReq:
		return false
	default:
		return true
	}
}

// beginRecording unfreezes the timeline and starts the producers. The clock
// was created paused so countdown time never entered the recording.
func (s *Session) beginRecording() {
	s.setState(StateRecording)
	s.clock.Resume()
	s.video.Start(s.fail)
	for _, a := range s.audio {
		a.Start()
	}
	if s.hm != nil {
		s.hm.Update(health.ComponentSink, health.Healthy, "")
	}
	s.log.Info("recording started",
		"fps", s.cfg.Recording.FPS,
		"resolution", s.cfg.Recording.Resolution,
		"audio_sources", len(s.audio))
}

func (s *Session) loop() {
	// Wake at a quarter of the frame interval so tick lag stays well under
	// one frame without burning a core.
	ticker := time.NewTicker(s.pace.Interval() / 4)
	defer ticker.Stop()
	healthTicker := time.NewTicker(time.Second)
	defer healthTicker.Stop()

	for {
		select {
		case <-s.stopReq:
			s.drainAndFinalize()
			return
		case <-healthTicker.C:
			s.reportHealth()
			continue
		case <-ticker.C:
		}

		if s.State() == StateFailed {
			s.teardown()
			return
		}
		if s.clock.Paused() {
			continue
		}
		if !s.emitDue(maxCatchUpTicks) {
			s.teardown()
			return
		}
	}
}

// emitDue emits every grid tick whose timestamp has been reached, up to
// limit. Returns false when a sink error failed the session.
func (s *Session) emitDue(limit int) bool {
	now := s.clock.Now()
	for n := 0; n < limit && s.pace.NextTS() <= now; n++ {
		if !s.emitTick(now) {
			if s.State() == StateFailed {
				return false
			}
			return true // no frame yet; try again next wake
		}
	}
	return true
}

// emitTick advances the pacer by one tick and submits the paired video
// frame and audio block. Returns false when nothing was emitted.
func (s *Session) emitTick(now time.Duration) bool {
	out, ok := s.pace.Tick(s.video.Frames(), 0)
	if !ok {
		return false
	}
	if err := s.out.SubmitVideo(out.Frame, out.TS); err != nil {
		s.reportSinkFailure(err)
		s.fail(fmt.Errorf("video submit: %w", err))
		return false
	}
	block := s.mix.Tick(out.Tick, out.TS)
	if err := s.out.SubmitAudio(block); err != nil {
		s.reportSinkFailure(err)
		s.fail(fmt.Errorf("audio submit: %w", err))
		return false
	}
	s.metrics.RecordFrame(out.Duplicated, now-out.TS)
	s.metrics.RecordBlock()
	return true
}

// drainAndFinalize stops the producers, emits every remaining tick up to
// the stop timestamp (in-flight frames included), and finalizes the sink.
func (s *Session) drainAndFinalize() {
	s.setState(StateStopping)
	stopTS := s.clock.Now()
	s.clock.Pause()

	s.video.Stop()
	for _, a := range s.audio {
		a.Stop()
	}

	for s.pace.NextTS() <= stopTS {
		if !s.emitTick(stopTS) {
			break
		}
	}

	if s.State() == StateFailed {
		s.finalizeBestEffort()
		return
	}

	if err := s.out.Finalize(); err != nil {
		s.reportSinkFailure(err)
		s.fail(fmt.Errorf("finalize: %w", err))
		return
	}

	s.setState(StateFinalized)
	s.logSummary(stopTS)
}

// teardown handles the Failed path: stop producers and finalize
// best-effort so partial output stays readable.
func (s *Session) teardown() {
	s.clock.Pause()
	s.video.Stop()
	for _, a := range s.audio {
		a.Stop()
	}
	s.finalizeBestEffort()
}

func (s *Session) finalizeBestEffort() {
	if err := s.out.Finalize(); err != nil {
		s.log.Warn("finalize after failure", "error", err)
	}
	s.logSummary(s.clock.Now())
}

// reportHealth publishes capture and pacing drop rates and per-source
// silence flags to the attached health monitor.
func (s *Session) reportHealth() {
	if s.hm == nil {
		return
	}
	s.hm.ObserveLossRate(health.ComponentCapture, s.video.Dropped(), s.video.Captured())
	s.hm.ObserveLossRate(health.ComponentPacing, s.pace.Dropped(), s.pace.Ticks())
	for _, a := range s.audio {
		s.hm.ObserveSilence(audioComponent(a.Kind()), a.Silent())
	}
}

// reportSinkFailure marks the sink unhealthy; the session is about to fail,
// so the status surface should show where.
func (s *Session) reportSinkFailure(err error) {
	if s.hm == nil {
		return
	}
	s.hm.Update(health.ComponentSink, health.Unhealthy, err.Error())
}

func audioComponent(k audio.Kind) string {
	if k == audio.KindSystem {
		return health.ComponentSystemAu
	}
	return health.ComponentMicAu
}

func (s *Session) logSummary(elapsed time.Duration) {
	s.reportHealth()
	snap := s.metrics.Snapshot()
	var gaps uint64
	for _, a := range s.audio {
		gaps += a.Gaps()
	}
	s.log.Info("session summary",
		"state", s.State().String(),
		"elapsed", elapsed,
		"frames_delivered", snap.FramesDelivered,
		"frames_duplicated", snap.FramesDuplicated,
		"frames_dropped", s.video.Dropped()+s.pace.Dropped(),
		"blocks_delivered", snap.BlocksDelivered,
		"audio_gaps", gaps,
		"output", s.output)
}
