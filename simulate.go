package scanplay

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	intaudio "github.com/cbegin/scanplay-go/internal/audio"
)

var ErrBadFrameRate = errors.New("frame rate must be positive")

// Report summarizes an offline run of an engine.
type Report struct {
	Frames       int
	Removals     int
	Total        int
	Score        float64
	TP           float64
	Combo        int
	MaxWindow    int
	End          float64   // ms of playback simulated
	RemovalTimes []float64 // engine time (ms) at which each note was removed
	Finished     bool
}

func (r Report) String() string {
	return fmt.Sprintf("%s frames, %d/%d notes removed, score %s, TP %.2f, max window %d, %s simulated",
		humanize.Comma(int64(r.Frames)),
		r.Removals, r.Total,
		humanize.Comma(int64(math.Round(r.Score))),
		r.TP,
		r.MaxWindow,
		time.Duration(r.End*float64(time.Millisecond)).Round(time.Millisecond))
}

// Simulate drives e at frameRate frames per second from its current time,
// removing every note whose judge window closes, until the engine finishes
// or maxTime (ms) is passed.
func Simulate(e Engine, frameRate, maxTime float64) (Report, error) {
	if frameRate <= 0 || math.IsNaN(frameRate) {
		return Report{}, ErrBadFrameRate
	}
	step := 1000 / frameRate
	r := Report{Total: len(e.AllNotes())}
	now := e.CurrentTime()
	for !e.IsFinished() && now <= maxTime {
		now += step
		e.UpdateTime(now)
		r.Frames++
		c := e.Cursors()
		r.MaxWindow = max(r.MaxWindow, c.Tail-c.Head)
		for _, n := range e.NotesToRemove() {
			if e.IsRemoved(n.Index) {
				continue
			}
			e.RemoveNote(n.Index)
			r.Removals++
			r.RemovalTimes = append(r.RemovalTimes, e.CurrentTime())
		}
	}
	r.End = e.CurrentTime()
	r.Score = e.Score()
	r.TP = e.TP()
	r.Combo = e.Combo()
	r.Finished = e.IsFinished()
	return r, nil
}

// RenderCueTrack renders one hit cue per removal time into an interleaved
// stereo buffer of the given length, for lining the removals up against the
// music in an editor.
func RenderCueTrack(times []float64, sampleRate int, seconds float64) ([]float32, error) {
	if sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	return intaudio.RenderCues(times, sampleRate, seconds, intaudio.DefaultCueParams())
}
