package audio

// TODO: WASAPI loopback + capture endpoints on Windows, CoreAudio taps on
// macOS, PipeWire on Linux. Until a native backend lands, recording runs
// against the synthetic capturer (see --synthetic) or with silence.
func newPlatformCapturer(kind Kind) (Capturer, error) {
	return nil, ErrNoDevice
}
