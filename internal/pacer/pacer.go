// Package pacer resamples the capture source's irregular arrival times into
// a constant frame rate on the session timeline. Each tick selects the most
// recent frame captured at or before the tick boundary: a slow source gets
// its last frame duplicated, a fast source keeps only the newest candidate
// and the intermediates are dropped. Tick timestamps are computed from the
// session start by integer arithmetic, never incrementally summed, so no
// drift accumulates over long sessions.
package pacer

import (
	"sync/atomic"
	"time"

	"github.com/reelworks/reel/internal/capture"
	"github.com/reelworks/reel/internal/queue"
)

// Output is one CFR video unit: a frame re-stamped onto the tick grid.
type Output struct {
	Frame      *capture.Frame
	TS         time.Duration
	Tick       uint64
	Duplicated bool
}

// Pacer tracks the tick schedule and the dup/drop decision state. It is
// driven by a single coordinator goroutine; only the counters are read
// concurrently.
type Pacer struct {
	fps  int
	tick uint64

	// Decision state for the current tick, kept explicit:
	// last is the frame emitted on the previous tick (nil before the first
	// frame ever arrives); pending is a frame already popped whose capture
	// timestamp lies beyond the current tick boundary.
	last    *capture.Frame
	pending *capture.Frame

	duplicated atomic.Uint64
	dropped    atomic.Uint64
}

// New creates a pacer emitting fps ticks per timeline second.
func New(fps int) *Pacer {
	if fps <= 0 {
		fps = 30
	}
	return &Pacer{fps: fps}
}

// Interval returns the tick period.
func (p *Pacer) Interval() time.Duration {
	return time.Second / time.Duration(p.fps)
}

// TS returns the timeline timestamp of the given tick index, computed from
// the session start.
func (p *Pacer) TS(tick uint64) time.Duration {
	return time.Duration(tick) * time.Second / time.Duration(p.fps)
}

// NextTS returns the timestamp of the next tick to be emitted.
func (p *Pacer) NextTS() time.Duration { return p.TS(p.tick) }

// Ticks returns how many ticks have been emitted.
func (p *Pacer) Ticks() uint64 { return p.tick }

// Duplicated returns how many emitted frames were duplicates.
func (p *Pacer) Duplicated() uint64 { return p.duplicated.Load() }

// Dropped returns how many captured frames were discarded because a newer
// candidate arrived within the same tick.
func (p *Pacer) Dropped() uint64 { return p.dropped.Load() }

// Tick emits the frame for the current tick boundary and advances the
// schedule. When no frame has ever arrived it waits up to wait for the first
// one; if none arrives the tick is not consumed and ok is false.
func (p *Pacer) Tick(frames *queue.Queue[*capture.Frame], wait time.Duration) (Output, bool) {
	ts := p.TS(p.tick)

	selected := p.gather(frames, ts)

	if selected == nil && p.last == nil {
		// Nothing emitted yet. Accept the first frame even if it was
		// captured slightly after the boundary, waiting a bounded time for
		// it, so the schedule doesn't stall on startup latency.
		if p.pending != nil {
			selected = p.pending
			p.pending = nil
		} else if f, ok := frames.PopWait(wait); ok {
			selected = f
		} else {
			return Output{}, false
		}
	}

	out := Output{TS: ts, Tick: p.tick}
	if selected != nil {
		p.last = selected
		out.Frame = selected
	} else {
		out.Frame = p.last
		out.Duplicated = true
		p.duplicated.Add(1)
	}

	p.tick++
	return out, true
}

// gather pops every frame captured at or before ts and returns the newest,
// counting the rest as dropped. A frame beyond the boundary is parked in
// pending for the next tick.
func (p *Pacer) gather(frames *queue.Queue[*capture.Frame], ts time.Duration) *capture.Frame {
	var selected *capture.Frame

	take := func(f *capture.Frame) bool {
		if f.CaptureTS > ts {
			p.pending = f
			return false
		}
		if selected != nil {
			p.dropped.Add(1)
		}
		selected = f
		return true
	}

	if p.pending != nil {
		f := p.pending
		p.pending = nil
		if !take(f) {
			return nil
		}
	}

	for {
		f, ok := frames.Pop()
		if !ok {
			return selected
		}
		if !take(f) {
			return selected
		}
	}
}
