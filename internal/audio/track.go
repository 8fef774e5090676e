package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	beepfx "github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"

	intfx "github.com/cbegin/scanplay-go/internal/effects"
)

const (
	// MinRate and MaxRate bound the rates the track can resample to; outside
	// them hosts fall back to a frame clock.
	MinRate = 0.5
	MaxRate = 4

	resampleQuality = 4
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Track is the music clock: a decoded file played through a pause control,
// a rate resampler and a volume stage, mixed with hit cues and limited on
// the master bus. Its position is the decoder's position in the file.
type Track struct {
	mu        sync.Mutex
	source    beep.StreamSeekCloser
	format    beep.Format
	outRate   beep.SampleRate
	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	cues      *beep.Mixer
	volume    *beepfx.Volume
	master    *intfx.Chain
	cue       CueParams
	rate      float64
	buf       [][2]float64
	out       *Output
}

type readSeekNopCloser struct{ io.ReadSeeker }

func (readSeekNopCloser) Close() error { return nil }

// NewTrack decodes r by its file extension (".mp3" or ".wav") and builds the
// playback chain at outRate. No audio device is opened until Play.
func NewTrack(r io.ReadSeeker, name string, outRate int, cue CueParams) (*Track, error) {
	var (
		source beep.StreamSeekCloser
		format beep.Format
		err    error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		rc, ok := r.(io.ReadCloser)
		if !ok {
			rc = readSeekNopCloser{r}
		}
		source, format, err = mp3.Decode(rc)
	case ".wav":
		source, format, err = wav.Decode(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	t := &Track{
		source:  source,
		format:  format,
		outRate: beep.SampleRate(outRate),
		ctrl:    &beep.Ctrl{Streamer: source, Paused: true},
		cues:    &beep.Mixer{},
		cue:     cue,
		rate:    1,
		master:  intfx.NewChain(intfx.NewLimiter(outRate)),
	}
	t.resampler = beep.ResampleRatio(resampleQuality, t.baseRatio(), t.ctrl)
	t.cues.Add(t.resampler)
	t.volume = &beepfx.Volume{Streamer: t.cues, Base: 2}
	return t, nil
}

func (t *Track) baseRatio() float64 {
	return float64(t.format.SampleRate) / float64(t.outRate)
}

// Process renders the next interleaved stereo frames; it is the track's
// SampleSource for the audio output.
func (t *Track) Process(dst []float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	frames := len(dst) / 2
	if cap(t.buf) < frames {
		t.buf = make([][2]float64, frames)
	}
	buf := t.buf[:frames]
	n, _ := t.volume.Stream(buf)
	for i := n; i < frames; i++ {
		buf[i] = [2]float64{}
	}
	for i, s := range buf {
		dst[i*2], dst[i*2+1] = t.master.Process(float32(s[0]), float32(s[1]))
	}
}

// Play starts the music, opening the audio output on first use.
func (t *Track) Play() error {
	t.mu.Lock()
	out := t.out
	t.ctrl.Paused = false
	t.mu.Unlock()
	if out == nil {
		o, err := NewOutput(int(t.outRate), t)
		if err != nil {
			return err
		}
		t.mu.Lock()
		t.out = o
		t.mu.Unlock()
		out = o
	}
	out.Play()
	return nil
}

func (t *Track) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ctrl.Paused = true
}

func (t *Track) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.ctrl.Paused
}

// Now returns the music position in ms.
func (t *Track) Now() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ms(t.source.Position())
}

func (t *Track) Duration() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ms(t.source.Len())
}

func (t *Track) ms(samples int) float64 {
	return float64(t.format.SampleRate.D(samples)) / float64(time.Millisecond)
}

// Seek jumps forward to ms; earlier positions are ignored.
func (t *Track) Seek(ms float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	target := t.format.SampleRate.N(time.Duration(ms * float64(time.Millisecond)))
	if math.IsNaN(ms) || target <= t.source.Position() {
		return
	}
	target = min(target, t.source.Len())
	_ = t.source.Seek(target)
}

// SetRate changes playback speed; rates outside [MinRate, MaxRate] are ignored.
func (t *Track) SetRate(rate float64) {
	if rate < MinRate || rate > MaxRate {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rate = rate
	t.resampler.SetRatio(t.baseRatio() * rate)
}

func (t *Track) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}

// SetVolume scales music and cues; 1 is unity, 0 silences.
func (t *Track) SetVolume(volume float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if volume <= 0 {
		t.volume.Silent = true
		return
	}
	t.volume.Silent = false
	t.volume.Volume = math.Log2(volume)
}

// PlayCue mixes one hit-confirmation click into the output.
func (t *Track) PlayCue() error {
	cue, err := NewCue(t.outRate, t.cue)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cues.Add(cue)
	return nil
}

func (t *Track) Close() error {
	t.mu.Lock()
	out := t.out
	t.out = nil
	t.ctrl.Paused = true
	t.mu.Unlock()
	if out != nil {
		if err := out.Stop(); err != nil {
			return err
		}
	}
	return t.source.Close()
}
