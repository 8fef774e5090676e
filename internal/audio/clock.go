package audio

import (
	"math"
	"time"
)

// Clock supplies the playback time the engine follows and the transport
// controls a host exposes.
type Clock interface {
	// Now returns the playback position in ms, NaN when it is unknown.
	Now() float64
	Play() error
	Pause()
	Playing() bool
	Seek(ms float64)
	SetRate(rate float64)
	Rate() float64
	SetVolume(volume float64)
	Duration() float64
}

// FrameClock derives time from the wall clock scaled by a playback rate.
// It is the fallback when no audio drives playback.
type FrameClock struct {
	now      func() time.Time
	base     float64
	started  time.Time
	playing  bool
	rate     float64
	duration float64
}

// NewFrameClock returns a paused clock at 0 ms. duration is reported as-is;
// pass NaN when unknown.
func NewFrameClock(duration float64) *FrameClock {
	return &FrameClock{now: time.Now, rate: 1, duration: duration}
}

func (c *FrameClock) Now() float64 {
	if !c.playing {
		return c.base
	}
	return c.base + float64(c.now().Sub(c.started))/float64(time.Millisecond)*c.rate
}

func (c *FrameClock) Play() error {
	if !c.playing {
		c.started = c.now()
		c.playing = true
	}
	return nil
}

func (c *FrameClock) Pause() {
	if c.playing {
		c.base = c.Now()
		c.playing = false
	}
}

func (c *FrameClock) Playing() bool { return c.playing }

// Seek only moves forward; the engine cannot rewind.
func (c *FrameClock) Seek(ms float64) {
	if math.IsNaN(ms) || ms <= c.Now() {
		return
	}
	c.base = ms
	c.started = c.now()
}

func (c *FrameClock) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	c.base = c.Now()
	c.started = c.now()
	c.rate = rate
}

func (c *FrameClock) Rate() float64     { return c.rate }
func (c *FrameClock) SetVolume(float64) {}
func (c *FrameClock) Duration() float64 { return c.duration }
