package sink

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/reelworks/reel/internal/audio"
	"github.com/reelworks/reel/internal/capture"
	"github.com/reelworks/reel/internal/logging"
)

var log = logging.L("sink")

// DefaultSubmitTimeout bounds how long a submit may wait on a stalled
// encoder before the session aborts.
const DefaultSubmitTimeout = 2 * time.Second

// jobQueueCap absorbs encoder hiccups without stalling the tick loop.
const jobQueueCap = 64

// FFmpegConfig describes one encoder invocation.
type FFmpegConfig struct {
	Binary        string // ffmpeg executable; resolved on PATH when bare
	Output        string
	Width, Height int
	FPS           int
	PixelFormat   capture.PixelFormat
	CRF           int // libx264 constant rate factor
	AudioEnabled  bool
	SubmitTimeout time.Duration
}

// FFmpeg pipes raw video into an ffmpeg child process (RGBA/BGRA frames on
// stdin, s16le PCM on fd 3) encoding H.264 + AAC into an mp4 container.
// Writes happen on a dedicated goroutine so a slow encoder surfaces as
// ErrSubmitTimeout instead of blocking the tick loop.
type FFmpeg struct {
	cfg FFmpegConfig

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	audioW *os.File
	stderr *tailWriter

	jobs      chan job
	wg        sync.WaitGroup
	writeErr  atomic.Value // error
	finalOnce sync.Once
	finalErr  error
}

type job struct {
	pix []byte
	pcm []int16
}

// NewFFmpeg starts the encoder process. The output file exists (and may be
// partially written) from this point on.
func NewFFmpeg(cfg FFmpegConfig) (*FFmpeg, error) {
	if cfg.Binary == "" {
		cfg.Binary = "ffmpeg"
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	bin, err := exec.LookPath(cfg.Binary)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	pixFmt := "rgba"
	if cfg.PixelFormat == capture.PixelFormatBGRA {
		pixFmt = "bgra"
	}

	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "rawvideo",
		"-pix_fmt", pixFmt,
		"-s", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"-r", strconv.Itoa(cfg.FPS),
		"-i", "pipe:0",
	}
	if cfg.AudioEnabled {
		args = append(args,
			"-f", "s16le",
			"-ar", strconv.Itoa(audio.TargetSampleRate),
			"-ac", strconv.Itoa(audio.TargetChannels),
			"-i", "pipe:3",
		)
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
		"-crf", strconv.Itoa(cfg.CRF),
		"-pix_fmt", "yuv420p",
	)
	if cfg.AudioEnabled {
		args = append(args, "-c:a", "aac", "-b:a", "192k", "-shortest")
	}
	args = append(args, cfg.Output)

	cmd := exec.Command(bin, args...)
	f := &FFmpeg{
		cfg:    cfg,
		cmd:    cmd,
		stderr: &tailWriter{},
		jobs:   make(chan job, jobQueueCap),
	}
	cmd.Stderr = f.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	f.stdin = stdin

	var audioR *os.File
	if cfg.AudioEnabled {
		audioR, f.audioW, err = os.Pipe()
		if err != nil {
			stdin.Close()
			return nil, err
		}
		cmd.ExtraFiles = []*os.File{audioR}
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		if f.audioW != nil {
			f.audioW.Close()
			audioR.Close()
		}
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	if audioR != nil {
		// Parent keeps only the write end after fork.
		audioR.Close()
	}

	f.wg.Add(1)
	go f.writer()

	log.Info("encoder started", "output", cfg.Output,
		"size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height), "fps", cfg.FPS,
		"audio", cfg.AudioEnabled)
	return f, nil
}

// SubmitVideo hands one paced frame to the encoder.
func (f *FFmpeg) SubmitVideo(fr *capture.Frame, _ time.Duration) error {
	return f.submit(job{pix: fr.Pix})
}

// SubmitAudio hands one mixed block to the encoder.
func (f *FFmpeg) SubmitAudio(b audio.Block) error {
	if !f.cfg.AudioEnabled {
		return nil
	}
	return f.submit(job{pcm: b.Samples})
}

func (f *FFmpeg) submit(j job) error {
	if err, ok := f.writeErr.Load().(error); ok {
		return err
	}
	select {
	case f.jobs <- j:
		return nil
	case <-time.After(f.cfg.SubmitTimeout):
		return ErrSubmitTimeout
	}
}

func (f *FFmpeg) writer() {
	defer f.wg.Done()
	var pcmBuf []byte
	for j := range f.jobs {
		if _, ok := f.writeErr.Load().(error); ok {
			continue // drain so submitters don't block
		}
		var err error
		switch {
		case j.pix != nil:
			_, err = f.stdin.Write(j.pix)
		case j.pcm != nil:
			need := len(j.pcm) * 2
			if cap(pcmBuf) < need {
				pcmBuf = make([]byte, need)
			}
			pcmBuf = pcmBuf[:need]
			for i, s := range j.pcm {
				binary.LittleEndian.PutUint16(pcmBuf[i*2:], uint16(s))
			}
			_, err = f.audioW.Write(pcmBuf)
		}
		if err != nil {
			f.writeErr.Store(fmt.Errorf("encoder write: %w", err))
			log.Error("encoder pipe write failed", logging.KeyError, err)
		}
	}
}

// Finalize closes the input pipes and waits for ffmpeg to write the
// container trailer. Safe to call more than once.
func (f *FFmpeg) Finalize() error {
	f.finalOnce.Do(func() {
		close(f.jobs)
		f.wg.Wait()
		f.stdin.Close()
		if f.audioW != nil {
			f.audioW.Close()
		}

		waitErr := f.cmd.Wait()
		if err, ok := f.writeErr.Load().(error); ok {
			f.finalErr = err
			return
		}
		if waitErr != nil {
			f.finalErr = fmt.Errorf("ffmpeg: %w: %s", waitErr, f.stderr.Tail())
			return
		}
		log.Info("encoder finalized", "output", f.cfg.Output)
	})
	return f.finalErr
}

// tailWriter keeps the last chunk of stderr for error reporting.
type tailWriter struct {
	mu  sync.Mutex
	buf []byte
}

const tailMax = 4096

func (w *tailWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf = append(w.buf, p...)
	if len(w.buf) > tailMax {
		w.buf = w.buf[len(w.buf)-tailMax:]
	}
	return len(p), nil
}

func (w *tailWriter) Tail() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.buf)
}
