package audio

import "time"

// Block is one chunk of PCM audio. Blocks are immutable once produced; the
// sample buffer is written by the capturer callback and then only read.
type Block struct {
	// Samples are interleaved signed 16-bit PCM.
	Samples    []int16
	Channels   int
	SampleRate int

	// StartTS is the session-relative timestamp of the first sample.
	StartTS  time.Duration
	Duration time.Duration
}

// BlockDuration computes the wall duration of n interleaved samples.
func BlockDuration(n, channels, rate int) time.Duration {
	if channels <= 0 || rate <= 0 {
		return 0
	}
	frames := n / channels
	return time.Duration(frames) * time.Second / time.Duration(rate)
}
