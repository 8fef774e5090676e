package audio

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
)

// CueParams shapes the hit-confirmation click.
type CueParams struct {
	Freq   float64
	Length time.Duration
	Gain   float64
}

func DefaultCueParams() CueParams {
	return CueParams{Freq: 1760, Length: 60 * time.Millisecond, Gain: 0.35}
}

// NewCue returns a finite streamer with one click: a sine tone under a
// quadratic decay.
func NewCue(sr beep.SampleRate, p CueParams) (beep.Streamer, error) {
	tone, err := generators.SineTone(sr, p.Freq)
	if err != nil {
		return nil, err
	}
	total := sr.N(p.Length)
	return &decay{s: beep.Take(total, tone), total: total, gain: p.Gain}, nil
}

type decay struct {
	s     beep.Streamer
	pos   int
	total int
	gain  float64
}

func (d *decay) Stream(samples [][2]float64) (int, bool) {
	n, ok := d.s.Stream(samples)
	for i := 0; i < n; i++ {
		left := 1 - float64(d.pos)/float64(d.total)
		g := d.gain * left * left
		samples[i][0] *= g
		samples[i][1] *= g
		d.pos++
	}
	return n, ok
}

func (d *decay) Err() error { return d.s.Err() }

// RenderCues mixes one click at each time (ms) into an interleaved stereo
// buffer of the given length.
func RenderCues(times []float64, sampleRate int, seconds float64, p CueParams) ([]float32, error) {
	sr := beep.SampleRate(sampleRate)
	cue, err := NewCue(sr, p)
	if err != nil {
		return nil, err
	}
	click := make([][2]float64, sr.N(p.Length))
	n, _ := cue.Stream(click)
	click = click[:n]

	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	for _, ms := range times {
		start := int(ms * float64(sampleRate) / 1000)
		for i, s := range click {
			f := start + i
			if f < 0 {
				continue
			}
			if f >= frames {
				break
			}
			out[f*2] += float32(s[0])
			out[f*2+1] += float32(s[1])
		}
	}
	return out, nil
}
