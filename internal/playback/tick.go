package playback

import (
	"fmt"
	"math"

	"github.com/cbegin/scanplay-go/internal/beatmap"
)

// TickEngine plays a tick-dialect beatmap. Time advances one tick at a time at
// the tempo active on the tick being left; pages and tempo segments are
// followed with forward-only indices.
type TickEngine struct {
	window
	pages      []beatmap.Page
	tempos     []beatmap.TempoSegment
	offset     float64
	judgeDelay float64

	tick       int
	time       float64
	pageIndex  int
	tempoIndex int
	finished   bool
}

func NewTickEngine(bm *beatmap.Beatmap, opts Options) (*TickEngine, error) {
	if err := checkTickTimeline(bm); err != nil {
		return nil, err
	}
	e := &TickEngine{
		window:     newWindow(bm.Notes),
		pages:      bm.Pages,
		tempos:     bm.Tempos,
		offset:     bm.StartOffsetTime,
		judgeDelay: opts.JudgeDelay,
	}
	e.window.passed = e.passed
	e.window.holding = e.holding
	e.window.page = e.CurrentPageIndex
	// Segments starting at or before tick 0 are superseded by the last of them.
	for e.tempoIndex+1 < len(e.tempos) && e.tempos[e.tempoIndex+1].StartTick <= 0 {
		e.tempoIndex++
	}
	e.UpdateTime(0)
	return e, nil
}

// checkTickTimeline rejects page and tempo lists the tick loop cannot make
// progress through.
func checkTickTimeline(bm *beatmap.Beatmap) error {
	if len(bm.Pages) == 0 {
		return fmt.Errorf("%w: no pages", beatmap.ErrMalformed)
	}
	if len(bm.Tempos) == 0 {
		return fmt.Errorf("%w: no tempo segments", beatmap.ErrMalformed)
	}
	for i, p := range bm.Pages {
		if !(p.End > p.Start) || math.IsInf(p.End, 0) || math.IsInf(p.Start, 0) {
			return fmt.Errorf("%w: page %d spans %v..%v", beatmap.ErrMalformed, i, p.Start, p.End)
		}
		if p.Direction != 1 && p.Direction != -1 {
			return fmt.Errorf("%w: page %d direction %d", beatmap.ErrMalformed, i, p.Direction)
		}
		if i > 0 && p.Start < bm.Pages[i-1].Start {
			return fmt.Errorf("%w: page %d starts before page %d", beatmap.ErrMalformed, i, i-1)
		}
	}
	for i, seg := range bm.Tempos {
		if !(seg.Value > 0) || math.IsInf(seg.Value, 0) {
			return fmt.Errorf("%w: tempo segment %d value %v", beatmap.ErrMalformed, i, seg.Value)
		}
		if i > 0 && seg.StartTick < bm.Tempos[i-1].StartTick {
			return fmt.Errorf("%w: tempo segment %d out of order", beatmap.ErrMalformed, i)
		}
	}
	return nil
}

// TimePerTick returns milliseconds per tick at the current tempo.
func (e *TickEngine) TimePerTick() float64 { return beatmap.TimePerTick(e.CurrentTempo()) }

func (e *TickEngine) CurrentTempo() float64 { return e.tempos[e.tempoIndex].Value }
func (e *TickEngine) CurrentTick() int      { return e.tick }
func (e *TickEngine) CurrentPageIndex() int { return e.pageIndex }
func (e *TickEngine) IsFinished() bool      { return e.finished }

// CurrentTime returns the audio time in ms the engine has reached.
func (e *TickEngine) CurrentTime() float64 { return e.time + e.offset }

func (e *TickEngine) passed(n *beatmap.Note) bool {
	return float64(e.tick) > n.End()+e.judgeDelay
}

func (e *TickEngine) holding(n *beatmap.Note) bool {
	t := float64(e.tick)
	return n.Hold > 0 && n.Pos <= t && t < n.End()
}

// UpdateTime advances tick by tick until the engine's time reaches ms.
// NaN and +Inf are ignored.
func (e *TickEngine) UpdateTime(ms float64) {
	if math.IsNaN(ms) || math.IsInf(ms, 1) {
		return
	}
	e.beginUpdate()
	target := ms - e.offset
	for e.time < target {
		e.nextTick()
	}
}

func (e *TickEngine) nextTick() {
	e.time += e.TimePerTick()
	e.tick++
	tick := float64(e.tick)

	for e.pageIndex < len(e.pages) && tick > e.pages[e.pageIndex].End {
		e.pageIndex++
	}
	if e.pageIndex == len(e.pages) {
		e.finished = true
	}

	for e.tempoIndex+1 < len(e.tempos) && e.tick >= e.tempos[e.tempoIndex+1].StartTick {
		e.tempoIndex++
	}

	if next := e.pageIndex + 1; next < len(e.pages) {
		e.advanceTail(e.pages[next].End)
	}
	e.advanceHead()
}

// LinePosition is the scan line's normalized position on the current page.
// After the last page it stays at that page's end.
func (e *TickEngine) LinePosition() float64 {
	page := e.pages[min(e.pageIndex, len(e.pages)-1)]
	return beatmap.Position(min(float64(e.tick), page.End), page)
}
