// Package audio captures PCM from the system-loopback and microphone devices
// and hands fixed-duration blocks to the mixer through bounded queues. Device
// callbacks never block: a full queue drops the incoming chunk and counts a
// gap, because stalling an audio driver causes underruns far worse than a
// counted gap the mixer can zero-fill.
package audio

import "errors"

// Output stream format. Both device sources are resampled to this by the mixer.
const (
	TargetSampleRate = 48000
	TargetChannels   = 2
)

// Kind names an audio source.
type Kind string

const (
	KindSystem Kind = "system"
	KindMic    Kind = "mic"
)

// ErrNoDevice is returned when no usable device of the requested kind exists.
var ErrNoDevice = errors.New("audio device not available")

// Capturer wraps a platform audio device. Start begins delivery of PCM chunks
// to onChunk from the device's own callback context; a nil samples slice
// signals that the device disconnected and no further chunks will arrive.
// onChunk must be non-blocking.
type Capturer interface {
	Start(onChunk func(samples []int16, channels, sampleRate int)) error
	Stop()
}

// NewLoopbackCapturer opens the default render endpoint for loopback capture.
func NewLoopbackCapturer() (Capturer, error) {
	return newPlatformCapturer(KindSystem)
}

// NewMicrophoneCapturer opens the default capture endpoint.
func NewMicrophoneCapturer() (Capturer, error) {
	return newPlatformCapturer(KindMic)
}
