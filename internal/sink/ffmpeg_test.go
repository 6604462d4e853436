package sink

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/reelworks/reel/internal/audio"
	"github.com/reelworks/reel/internal/capture"
)

func testFrame(w, h int) *capture.Frame {
	return &capture.Frame{
		Pix:    make([]byte, w*h*4),
		Width:  w,
		Height: h,
		Stride: w * 4,
		Format: capture.PixelFormatRGBA,
	}
}

func TestMemorySinkRecordsSubmits(t *testing.T) {
	m := NewMemory()
	if err := m.SubmitVideo(testFrame(4, 4), 0); err != nil {
		t.Fatalf("SubmitVideo: %v", err)
	}
	if err := m.SubmitAudio(audio.Block{Samples: make([]int16, 100), StartTS: 0}); err != nil {
		t.Fatalf("SubmitAudio: %v", err)
	}
	if m.FrameCount() != 1 || m.BlockCount() != 1 {
		t.Fatalf("counts = %d/%d, want 1/1", m.FrameCount(), m.BlockCount())
	}
	if m.Samples != 100 {
		t.Fatalf("samples = %d, want 100", m.Samples)
	}
}

func TestMemorySinkRejectsAfterFinalize(t *testing.T) {
	m := NewMemory()
	if err := m.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := m.SubmitVideo(testFrame(2, 2), 0); err != ErrFinalized {
		t.Fatalf("SubmitVideo after Finalize = %v, want ErrFinalized", err)
	}
	if err := m.SubmitAudio(audio.Block{}); err != ErrFinalized {
		t.Fatalf("SubmitAudio after Finalize = %v, want ErrFinalized", err)
	}
}

func TestNewFFmpegMissingBinary(t *testing.T) {
	_, err := NewFFmpeg(FFmpegConfig{
		Binary: "definitely-not-ffmpeg-binary",
		Output: filepath.Join(t.TempDir(), "out.mp4"),
		Width:  64, Height: 64, FPS: 30,
	})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestTailWriterKeepsTail(t *testing.T) {
	w := &tailWriter{}
	w.Write([]byte(strings.Repeat("a", tailMax)))
	w.Write([]byte("ending"))
	tail := w.Tail()
	if len(tail) != tailMax {
		t.Fatalf("tail length = %d, want %d", len(tail), tailMax)
	}
	if !strings.HasSuffix(tail, "ending") {
		t.Fatalf("tail lost the newest data")
	}
}

func TestFFmpegEncodesShortClip(t *testing.T) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not installed")
	}
	out := filepath.Join(t.TempDir(), "clip.mp4")
	f, err := NewFFmpeg(FFmpegConfig{
		Output: out,
		Width:  64, Height: 64, FPS: 30,
		PixelFormat:  capture.PixelFormatRGBA,
		CRF:          23,
		AudioEnabled: true,
	})
	if err != nil {
		t.Fatalf("NewFFmpeg: %v", err)
	}

	samplesPerTick := audio.TargetSampleRate / 30 * audio.TargetChannels
	for i := 0; i < 30; i++ {
		ts := time.Duration(i) * time.Second / 30
		if err := f.SubmitVideo(testFrame(64, 64), ts); err != nil {
			t.Fatalf("SubmitVideo %d: %v", i, err)
		}
		if err := f.SubmitAudio(audio.Block{
			Samples:    make([]int16, samplesPerTick),
			Channels:   audio.TargetChannels,
			SampleRate: audio.TargetSampleRate,
			StartTS:    ts,
		}); err != nil {
			t.Fatalf("SubmitAudio %d: %v", i, err)
		}
	}
	if err := f.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("output missing: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("output file is empty")
	}
}
