// Package sink defines the consumer side of the recording pipeline. A sink
// accepts paced video frames and mixed audio blocks in timestamp order and
// turns them into an output artifact.
package sink

import (
	"errors"
	"sync"
	"time"

	"github.com/reelworks/reel/internal/audio"
	"github.com/reelworks/reel/internal/capture"
)

// ErrSubmitTimeout is returned when the sink cannot accept input within the
// submit deadline. The coordinator treats it as fatal.
var ErrSubmitTimeout = errors.New("sink: submit timed out")

// ErrFinalized is returned for submits after Finalize.
var ErrFinalized = errors.New("sink: already finalized")

// Sink receives one video frame and one audio block per tick. Submits are
// called from the coordinator goroutine only; Finalize must make the output
// durable before returning.
type Sink interface {
	SubmitVideo(f *capture.Frame, ts time.Duration) error
	SubmitAudio(b audio.Block) error
	Finalize() error
}

// Memory is an in-process sink that records everything it is handed. It
// backs tests and the --synthetic dry-run mode.
type Memory struct {
	mu        sync.Mutex
	finalized bool

	Frames   []*capture.Frame
	VideoTS  []time.Duration
	AudioTS  []time.Duration
	PCM      [][]int16
	Samples  int
	VideoErr error
	AudioErr error
	FinalErr error
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) SubmitVideo(f *capture.Frame, ts time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrFinalized
	}
	if m.VideoErr != nil {
		return m.VideoErr
	}
	m.Frames = append(m.Frames, f)
	m.VideoTS = append(m.VideoTS, ts)
	return nil
}

func (m *Memory) SubmitAudio(b audio.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.finalized {
		return ErrFinalized
	}
	if m.AudioErr != nil {
		return m.AudioErr
	}
	m.AudioTS = append(m.AudioTS, b.StartTS)
	m.PCM = append(m.PCM, b.Samples)
	m.Samples += len(b.Samples)
	return nil
}

func (m *Memory) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = true
	return m.FinalErr
}

// FrameCount returns the number of video frames submitted so far.
func (m *Memory) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Frames)
}

// BlockCount returns the number of audio blocks submitted so far.
func (m *Memory) BlockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.AudioTS)
}

// AllSilent reports whether every audio sample submitted so far is zero.
func (m *Memory) AllSilent() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, block := range m.PCM {
		for _, v := range block {
			if v != 0 {
				return false
			}
		}
	}
	return true
}
