package timeline

import (
	"testing"
	"time"
)

func TestNowAdvances(t *testing.T) {
	c := Start()
	a := c.Now()
	time.Sleep(10 * time.Millisecond)
	b := c.Now()
	if b <= a {
		t.Fatalf("clock did not advance: a=%v b=%v", a, b)
	}
}

func TestNowFrozenWhilePaused(t *testing.T) {
	c := Start()
	time.Sleep(5 * time.Millisecond)
	c.Pause()
	a := c.Now()
	time.Sleep(20 * time.Millisecond)
	b := c.Now()
	if a != b {
		t.Fatalf("paused clock advanced: a=%v b=%v", a, b)
	}
}

func TestPauseExcludedFromTimeline(t *testing.T) {
	c := Start()
	time.Sleep(10 * time.Millisecond)
	c.Pause()
	time.Sleep(50 * time.Millisecond)
	c.Resume()
	time.Sleep(10 * time.Millisecond)

	now := c.Now()
	if now >= 50*time.Millisecond {
		t.Fatalf("paused interval leaked into timeline: now=%v", now)
	}
	if got := c.PausedTotal(); got < 50*time.Millisecond {
		t.Fatalf("pausedTotal too small: %v", got)
	}
}

func TestNowNonDecreasingAcrossResume(t *testing.T) {
	c := Start()
	var prev time.Duration
	for i := 0; i < 20; i++ {
		c.Pause()
		c.Resume()
		now := c.Now()
		if now < prev {
			t.Fatalf("backward jump at iteration %d: prev=%v now=%v", i, prev, now)
		}
		prev = now
	}
}

func TestDoublePauseResumeNoOp(t *testing.T) {
	c := Start()
	c.Pause()
	c.Pause()
	c.Resume()
	c.Resume()
	if c.Paused() {
		t.Fatal("clock still paused after resume")
	}
}
