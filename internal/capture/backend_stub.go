package capture

// TODO: DXGI desktop duplication on Windows, ScreenCaptureKit on macOS, and
// PipeWire portal capture on Wayland. Until a native backend lands, recording
// runs against the synthetic capturer (see --synthetic).
func newPlatformCapturer(cfg Config) (ScreenCapturer, error) {
	return nil, ErrNotSupported
}
