// Package mixer combines the system-loopback and microphone streams into one
// PCM stream on the pacer's tick grid. Each source is resampled to the target
// rate independently (linear interpolation), aligned by its block timestamps
// onto an absolute sample position, summed with clipping, and emitted as one
// block per tick carrying the same timestamp as the tick's video frame.
package mixer

import (
	"math"
	"sync"
	"time"

	"github.com/reelworks/reel/internal/audio"
)

// maxBufferSeconds bounds per-source buffering under consumer stall.
const maxBufferSeconds = 2

// Mixer is driven by the coordinator goroutine; Levels may be read from
// other goroutines.
type Mixer struct {
	rate     int
	channels int
	fps      int

	tracks []*track

	mu     sync.RWMutex
	levels map[audio.Kind]float64
}

// track accumulates one source's resampled samples at an absolute position
// on the target-rate grid, zero-padding over timestamp gaps.
type track struct {
	src *audio.Source
	buf []int16 // interleaved, target rate/channels
	// pos is the absolute target-rate frame index of buf's first frame.
	pos int64
	// end is pos + buffered frames; kept explicit so gap padding is cheap.
	end int64
}

// New creates a mixer emitting one block per tick at the package target
// format (48 kHz stereo int16).
func New(fps int) *Mixer {
	if fps <= 0 {
		fps = 30
	}
	return &Mixer{
		rate:     audio.TargetSampleRate,
		channels: audio.TargetChannels,
		fps:      fps,
		levels:   make(map[audio.Kind]float64),
	}
}

// AddSource registers a source. Call before the first Tick.
func (m *Mixer) AddSource(src *audio.Source) {
	m.tracks = append(m.tracks, &track{src: src})
}

// Levels returns the most recent per-source RMS levels in [0,1].
func (m *Mixer) Levels() map[audio.Kind]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[audio.Kind]float64, len(m.levels))
	for k, v := range m.levels {
		out[k] = v
	}
	return out
}

// framesAt returns the absolute target-rate frame index of tick i, computed
// from the session start so the grid never drifts.
func (m *Mixer) framesAt(tick uint64) int64 {
	return int64(tick) * int64(m.rate) / int64(m.fps)
}

// Tick drains the source queues, aligns and sums their contribution for the
// given tick, and returns one mixed block stamped with ts. Sources that are
// silent, disabled, or starved contribute zeros; the block is always full
// length so audio and video stay in lockstep.
func (m *Mixer) Tick(tick uint64, ts time.Duration) audio.Block {
	start := m.framesAt(tick)
	count := m.framesAt(tick+1) - start

	mixed := make([]int32, count*int64(m.channels))
	levels := make(map[audio.Kind]float64, len(m.tracks))

	for _, tr := range m.tracks {
		m.ingest(tr)
		contribution := tr.take(start, count, m.channels)
		levels[tr.src.Kind()] = rms(contribution)
		for i, s := range contribution {
			mixed[i] += int32(s)
		}
	}

	m.mu.Lock()
	m.levels = levels
	m.mu.Unlock()

	samples := make([]int16, len(mixed))
	for i, v := range mixed {
		samples[i] = clip(v)
	}

	return audio.Block{
		Samples:    samples,
		Channels:   m.channels,
		SampleRate: m.rate,
		StartTS:    ts,
		Duration:   time.Second / time.Duration(m.fps),
	}
}

// ingest drains the source queue into the track buffer, resampling and
// aligning each block by its start timestamp.
func (m *Mixer) ingest(tr *track) {
	for {
		b, ok := tr.src.Blocks().Pop()
		if !ok {
			return
		}

		resampled := Resample(b.Samples, b.Channels, b.SampleRate, m.channels, m.rate)
		blockStart := int64(b.StartTS) * int64(m.rate) / int64(time.Second)

		if len(tr.buf) == 0 {
			tr.pos = blockStart
			tr.end = blockStart
		}

		switch {
		case blockStart > tr.end:
			// Gap on the device timeline (dropped chunk): zero-fill so the
			// remaining samples stay at their true positions.
			pad := (blockStart - tr.end) * int64(m.channels)
			tr.buf = append(tr.buf, make([]int16, pad)...)
			tr.end = blockStart
		case blockStart < tr.end:
			// Overlap from timestamp jitter: trim the head of the new block.
			trim := (tr.end - blockStart) * int64(m.channels)
			if trim >= int64(len(resampled)) {
				continue
			}
			resampled = resampled[trim:]
		}

		tr.buf = append(tr.buf, resampled...)
		tr.end += int64(len(resampled) / m.channels)

		// Bound buffering under stall: keep only the newest samples.
		if maxFrames := int64(maxBufferSeconds * m.rate); tr.end-tr.pos > maxFrames {
			cut := (tr.end - tr.pos - maxFrames) * int64(m.channels)
			tr.buf = tr.buf[cut:]
			tr.pos = tr.end - maxFrames
		}
	}
}

// take returns exactly count frames starting at absolute position start,
// zero-filling anything the track doesn't have, and discards consumed data.
func (tr *track) take(start, count int64, channels int) []int16 {
	out := make([]int16, count*int64(channels))

	// Discard anything older than the window.
	if tr.pos < start {
		skip := start - tr.pos
		if avail := tr.end - tr.pos; skip > avail {
			skip = avail
		}
		tr.buf = tr.buf[skip*int64(channels):]
		tr.pos += skip
	}

	if tr.end <= start || tr.pos >= start+count {
		return out
	}

	dst := (tr.pos - start) * int64(channels)
	n := copy(out[dst:], tr.buf)
	consumed := int64(n) / int64(channels)
	tr.buf = tr.buf[n:]
	tr.pos += consumed
	return out
}

// Resample converts interleaved PCM between rates and channel counts using
// linear interpolation. Exactness is not required here; monotonic alignment
// is what matters.
func Resample(in []int16, inCh, inRate, outCh, outRate int) []int16 {
	if inCh <= 0 || inRate <= 0 || len(in) == 0 {
		return nil
	}
	inFrames := len(in) / inCh
	if inRate == outRate && inCh == outCh {
		out := make([]int16, inFrames*outCh)
		copy(out, in[:inFrames*inCh])
		return out
	}

	outFrames := int(int64(inFrames) * int64(outRate) / int64(inRate))
	if outFrames == 0 {
		return nil
	}
	out := make([]int16, outFrames*outCh)

	for j := 0; j < outFrames; j++ {
		srcPos := float64(j) * float64(inRate) / float64(outRate)
		i0 := int(srcPos)
		frac := srcPos - float64(i0)
		i1 := i0 + 1
		if i1 >= inFrames {
			i1 = inFrames - 1
		}

		for c := 0; c < outCh; c++ {
			sc := c
			if sc >= inCh {
				sc = inCh - 1 // upmix: duplicate the last source channel
			}
			a := float64(in[i0*inCh+sc])
			b := float64(in[i1*inCh+sc])
			out[j*outCh+c] = int16(a + (b-a)*frac)
		}
	}
	return out
}

// clip saturates a 32-bit sum to the int16 range.
func clip(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// rms computes the root-mean-square level of samples normalized to [0,1].
func rms(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	return math.Sqrt(sum/float64(len(samples))) / float64(math.MaxInt16)
}
