package session

import (
	"sync"
	"time"
)

// Metrics tracks per-session pipeline counters. Written by the coordinator
// goroutine, read by Status callers.
type Metrics struct {
	mu sync.RWMutex

	FramesDelivered  uint64
	FramesDuplicated uint64
	BlocksDelivered  uint64

	LastTickLag time.Duration
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordFrame(duplicated bool, lag time.Duration) {
	m.mu.Lock()
	m.FramesDelivered++
	if duplicated {
		m.FramesDuplicated++
	}
	m.LastTickLag = lag
	m.mu.Unlock()
}

func (m *Metrics) RecordBlock() {
	m.mu.Lock()
	m.BlocksDelivered++
	m.mu.Unlock()
}

// MetricsSnapshot is a point-in-time copy for logging and Status.
type MetricsSnapshot struct {
	FramesDelivered  uint64
	FramesDuplicated uint64
	BlocksDelivered  uint64
	LastTickLag      time.Duration
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MetricsSnapshot{
		FramesDelivered:  m.FramesDelivered,
		FramesDuplicated: m.FramesDuplicated,
		BlocksDelivered:  m.BlocksDelivered,
		LastTickLag:      m.LastTickLag,
	}
}
