package audio

import (
	"math"
	"sync"
	"time"
)

// syntheticChunk is the delivery granularity of the tone generator: 20ms,
// matching the period of typical shared-mode device callbacks.
const syntheticChunk = 20 * time.Millisecond

// SyntheticCapturer generates a sine tone on its own goroutine at real-time
// rate, mimicking a device callback. Used by tests and --synthetic runs.
type SyntheticCapturer struct {
	freq       float64
	sampleRate int
	channels   int

	// DisconnectAfter, when > 0, simulates a device failure after that many
	// chunks: onChunk receives a nil slice and delivery stops.
	DisconnectAfter int

	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	started  bool
}

// NewSyntheticCapturer creates a tone generator. freq <= 0 selects 440 Hz.
func NewSyntheticCapturer(freq float64, sampleRate, channels int) *SyntheticCapturer {
	if freq <= 0 {
		freq = 440
	}
	if sampleRate <= 0 {
		sampleRate = TargetSampleRate
	}
	if channels <= 0 {
		channels = TargetChannels
	}
	return &SyntheticCapturer{
		freq:       freq,
		sampleRate: sampleRate,
		channels:   channels,
		done:       make(chan struct{}),
	}
}

func (s *SyntheticCapturer) Start(onChunk func([]int16, int, int)) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(onChunk)
	return nil
}

func (s *SyntheticCapturer) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
	s.wg.Wait()
}

func (s *SyntheticCapturer) run(onChunk func([]int16, int, int)) {
	defer s.wg.Done()

	framesPerChunk := int(int64(s.sampleRate) * int64(syntheticChunk) / int64(time.Second))
	ticker := time.NewTicker(syntheticChunk)
	defer ticker.Stop()

	var phase float64
	step := 2 * math.Pi * s.freq / float64(s.sampleRate)
	chunks := 0

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		if s.DisconnectAfter > 0 && chunks >= s.DisconnectAfter {
			onChunk(nil, 0, 0)
			return
		}
		chunks++

		samples := make([]int16, framesPerChunk*s.channels)
		for i := 0; i < framesPerChunk; i++ {
			v := int16(math.Sin(phase) * 0.25 * math.MaxInt16)
			phase += step
			for c := 0; c < s.channels; c++ {
				samples[i*s.channels+c] = v
			}
		}
		onChunk(samples, s.channels, s.sampleRate)
	}
}
