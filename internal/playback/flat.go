package playback

import (
	"fmt"
	"math"

	"github.com/cbegin/scanplay-go/internal/beatmap"
)

// finishGrace is how long a flat beatmap keeps running after its last note ends.
const finishGrace = 1000

// FlatEngine plays a flat-dialect beatmap. There is no tick grid: the audio
// time in ms is the playback position, and pages are the synthesized
// PageSize windows of page-space time (time + PageShift).
type FlatEngine struct {
	window
	bm         *beatmap.Beatmap
	judgeDelay float64
	time       float64
	end        float64
}

func NewFlatEngine(bm *beatmap.Beatmap, opts Options) (*FlatEngine, error) {
	if bm.PageSize <= 0 {
		return nil, fmt.Errorf("%w: page size %v", beatmap.ErrMalformed, bm.PageSize)
	}
	e := &FlatEngine{
		window:     newWindow(bm.Notes),
		bm:         bm,
		judgeDelay: opts.JudgeDelay,
		end:        math.Inf(-1),
	}
	if n := len(bm.Notes); n > 0 {
		e.end = bm.Notes[n-1].End() + finishGrace
	}
	e.window.passed = e.passed
	e.window.holding = e.holding
	e.window.page = e.CurrentPageIndex
	e.UpdateTime(0)
	return e, nil
}

func (e *FlatEngine) CurrentTime() float64 { return e.time }
func (e *FlatEngine) IsFinished() bool     { return e.time > e.end }

func (e *FlatEngine) pageTime() float64 { return e.time + e.bm.PageShift }

func (e *FlatEngine) CurrentPageIndex() int { return e.bm.PageIndex(e.pageTime()) }

func (e *FlatEngine) passed(n *beatmap.Note) bool {
	return e.time > n.End()+e.judgeDelay
}

func (e *FlatEngine) holding(n *beatmap.Note) bool {
	return n.Hold > 0 && n.Pos <= e.time && e.time < n.End()
}

// UpdateTime moves playback to ms. NaN and times earlier than the current
// one leave the position unchanged.
func (e *FlatEngine) UpdateTime(ms float64) {
	if math.IsNaN(ms) {
		return
	}
	e.beginUpdate()
	if ms > e.time {
		e.time = ms
	}
	nextPageEnd := float64(e.CurrentPageIndex()+2)*e.bm.PageSize - e.bm.PageShift
	e.advanceTail(nextPageEnd)
	e.advanceHead()
}

func (e *FlatEngine) LinePosition() float64 {
	at := e.pageTime()
	return beatmap.Position(at, e.bm.FlatPage(e.bm.PageIndex(at)))
}
