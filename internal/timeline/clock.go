// Package timeline provides the monotonic session clock shared by every
// producer. Timestamps are durations since session start with paused
// intervals excluded, so downstream consumers never observe a discontinuity
// across pause/resume.
package timeline

import (
	"sync"
	"time"
)

// Clock is the session time source. Now() starts at zero, is monotonic, and
// freezes while the clock is paused; the accumulated pause offset absorbs the
// gap so resuming never produces a backward jump.
type Clock struct {
	mu          sync.Mutex
	start       time.Time
	paused      bool
	pausedAt    time.Time
	pausedTotal time.Duration
	last        time.Duration
}

// Start creates a clock whose zero point is the moment of the call.
func Start() *Clock {
	return &Clock{start: time.Now()}
}

// Now returns the session-relative timestamp, excluding paused time.
// Guaranteed non-decreasing across pause/resume boundaries.
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nowLocked()
}

func (c *Clock) nowLocked() time.Duration {
	var now time.Duration
	if c.paused {
		now = c.pausedAt.Sub(c.start) - c.pausedTotal
	} else {
		now = time.Since(c.start) - c.pausedTotal
	}
	if now < c.last {
		now = c.last
	}
	c.last = now
	return now
}

// Pause freezes the clock. Pausing an already-paused clock is a no-op.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return
	}
	c.nowLocked() // pin last before freezing
	c.paused = true
	c.pausedAt = time.Now()
}

// Resume unfreezes the clock, folding the paused interval into the
// accumulated offset. Resuming a running clock is a no-op.
func (c *Clock) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.pausedTotal += time.Since(c.pausedAt)
	c.paused = false
}

// Paused reports whether the clock is currently frozen.
func (c *Clock) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// PausedTotal returns the total duration excluded from the timeline so far,
// including the current pause if one is in progress.
func (c *Clock) PausedTotal() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return c.pausedTotal + time.Since(c.pausedAt)
	}
	return c.pausedTotal
}
