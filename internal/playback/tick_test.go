package playback

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/cbegin/scanplay-go/internal/beatmap"
)

func loadTwoPages(t *testing.T) *beatmap.Beatmap {
	t.Helper()
	raw, err := os.ReadFile("../beatmap/testdata/two_pages.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	bm, err := beatmap.Parse(beatmap.DialectTick, raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return bm
}

func newTwoPages(t *testing.T) *TickEngine {
	t.Helper()
	e, err := NewTickEngine(loadTwoPages(t), DefaultOptions())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestTickScenarioConstantTempo(t *testing.T) {
	e := newTwoPages(t)
	if got := e.TimePerTick(); math.Abs(got-400000.0/480000) > 1e-12 {
		t.Fatalf("time per tick %v", got)
	}
	if e.CurrentTempo() != 400000 {
		t.Fatalf("tempo %v", e.CurrentTempo())
	}
	e.UpdateTime(800)
	if tick := e.CurrentTick(); tick < 960 || tick > 961 {
		t.Fatalf("expected tick ~960 after 800ms, got %d", tick)
	}
	if e.CurrentTime() < 800 {
		t.Fatalf("engine time %v behind target", e.CurrentTime())
	}
}

func TestTickTempoChange(t *testing.T) {
	bm := &beatmap.Beatmap{
		Dialect: beatmap.DialectTick,
		Pages:   []beatmap.Page{{Start: 0, End: 1000, Direction: 1}},
		Tempos:  []beatmap.TempoSegment{{StartTick: 0, Value: 480000}, {StartTick: 100, Value: 240000}},
	}
	e, err := NewTickEngine(bm, DefaultOptions())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.UpdateTime(100)
	if e.CurrentTick() != 100 || e.CurrentTempo() != 240000 {
		t.Fatalf("tick=%d tempo=%v, want 100 240000", e.CurrentTick(), e.CurrentTempo())
	}
	e.UpdateTime(150)
	if e.CurrentTick() != 200 {
		t.Fatalf("tick=%d, want 200", e.CurrentTick())
	}
	if got, want := e.CurrentTime(), bm.TickTime(200); math.Abs(got-want) > 1e-9 {
		t.Fatalf("engine time %v disagrees with tempo map %v", got, want)
	}
}

func TestTickStartOffset(t *testing.T) {
	bm := loadTwoPages(t)
	bm.StartOffsetTime = 500
	e, err := NewTickEngine(bm, DefaultOptions())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.UpdateTime(400)
	if e.CurrentTick() != 0 {
		t.Fatalf("tick advanced before offset: %d", e.CurrentTick())
	}
	e.UpdateTime(1300)
	if tick := e.CurrentTick(); tick < 960 || tick > 961 {
		t.Fatalf("tick %d after offset", tick)
	}
}

func TestTickJudgeWindowExpiry(t *testing.T) {
	e := newTwoPages(t)
	seen := 0
	prevTick := e.CurrentTick()
	for ms := 1.0; ms <= 300; ms++ {
		e.UpdateTime(ms)
		for _, n := range e.NotesToRemove() {
			if n.ID != 0 {
				continue
			}
			seen++
			if e.CurrentTick() <= 100 || prevTick > 100 {
				t.Fatalf("note listed at tick %d (previous %d)", e.CurrentTick(), prevTick)
			}
		}
		prevTick = e.CurrentTick()
	}
	if seen != 1 {
		t.Fatalf("note with tick 100 listed %d times, want 1", seen)
	}
}

func TestTickPreloadsNextPage(t *testing.T) {
	e := newTwoPages(t)
	if c := e.Cursors(); c.Tail != 0 {
		t.Fatalf("tail before first tick: %d", c.Tail)
	}
	e.UpdateTime(1)
	if c := e.Cursors(); c.Tail != 4 || c.Head != 0 {
		t.Fatalf("after first tick %+v, want head 0 tail 4", c)
	}
	if len(e.CurrentNotes()) != 4 {
		t.Fatalf("current notes %d", len(e.CurrentNotes()))
	}
}

func TestTickMonotonicCursors(t *testing.T) {
	e := newTwoPages(t)
	prev := e.Cursors()
	prevTick := e.CurrentTick()
	total := len(e.AllNotes())
	for _, ms := range []float64{0, 0, 16, 50, 50, 83, 300, 301, 620, 999, 1000, 1199, 1200, 1201, 1700, 2500} {
		e.UpdateTime(ms)
		c := e.Cursors()
		if c.RemoveHead < prev.RemoveHead || c.Head < prev.Head || c.Tail < prev.Tail || e.CurrentTick() < prevTick {
			t.Fatalf("cursor moved backwards at %vms: %+v -> %+v", ms, prev, c)
		}
		if !(0 <= c.RemoveHead && c.RemoveHead <= c.Head && c.Head <= c.Tail && c.Tail <= total) {
			t.Fatalf("cursor order broken at %vms: %+v", ms, c)
		}
		for _, n := range e.CurrentNotes() {
			if n.Index < c.Head || n.Index >= c.Tail {
				t.Fatalf("note %d outside window %+v", n.Index, c)
			}
		}
		for _, n := range e.NotesToRemove() {
			e.RemoveNote(n.Index)
		}
		prev, prevTick = c, e.CurrentTick()
	}
	if e.Combo() != total {
		t.Fatalf("combo %d, want %d", e.Combo(), total)
	}
	if math.Abs(e.Score()-1000000) > 1e-6 {
		t.Fatalf("full completion score %v", e.Score())
	}
	if e.TP() != 100 {
		t.Fatalf("tp %v", e.TP())
	}
}

func TestTickRemoveNoteOnce(t *testing.T) {
	e := newTwoPages(t)
	e.RemoveNote(2)
	e.RemoveNote(2)
	e.RemoveNote(-1)
	e.RemoveNote(99)
	if e.Combo() != 1 || !e.IsRemoved(2) || e.IsRemoved(1) || e.IsRemoved(99) {
		t.Fatalf("combo=%d removed(2)=%v", e.Combo(), e.IsRemoved(2))
	}
}

func TestTickHoldingAndPageSwitch(t *testing.T) {
	e := newTwoPages(t)
	hold := e.Note(3)
	e.UpdateTime(100)
	if e.IsHolding(hold) || e.MarkHolding(3) {
		t.Fatalf("hold note active too early")
	}
	if e.MarkPageSwitched(3) {
		t.Fatalf("page switch before page 1")
	}
	if !e.MarkPageSwitched(0) || e.MarkPageSwitched(0) {
		t.Fatalf("page 0 note should switch exactly once")
	}

	e.UpdateTime(900)
	if e.CurrentPageIndex() != 1 {
		t.Fatalf("page %d, want 1", e.CurrentPageIndex())
	}
	if !e.MarkPageSwitched(3) || e.MarkPageSwitched(3) {
		t.Fatalf("page 1 note should switch exactly once")
	}

	e.UpdateTime(1100)
	if !e.IsHolding(hold) {
		t.Fatalf("expected holding at tick %d", e.CurrentTick())
	}
	if !e.MarkHolding(3) || e.MarkHolding(3) {
		t.Fatalf("holding flag should be set exactly once")
	}
	for _, n := range e.NotesToRemove() {
		if n.Index == 3 {
			t.Fatalf("holding note listed for removal")
		}
	}

	e.UpdateTime(1250)
	if e.IsHolding(hold) {
		t.Fatalf("hold should have ended at tick %d", e.CurrentTick())
	}
	found := false
	for _, n := range e.NotesToRemove() {
		found = found || n.Index == 3
	}
	if !found {
		t.Fatalf("hold note not listed after its end")
	}
}

func TestTickFinishesAfterLastPage(t *testing.T) {
	e := newTwoPages(t)
	e.UpdateTime(1500)
	if e.IsFinished() {
		t.Fatalf("finished early at tick %d", e.CurrentTick())
	}
	e.UpdateTime(2000)
	if !e.IsFinished() {
		t.Fatalf("expected finished at tick %d", e.CurrentTick())
	}
	if got := e.LinePosition(); got != 0 {
		t.Fatalf("line should rest at the end of the downward page, got %v", got)
	}
}

func TestTickLinePosition(t *testing.T) {
	e := newTwoPages(t)
	e.UpdateTime(400)
	if got := e.LinePosition(); math.Abs(got-float64(e.CurrentTick())/960) > 1e-12 {
		t.Fatalf("line %v at tick %d", got, e.CurrentTick())
	}
}

func TestTickIgnoresNaN(t *testing.T) {
	e := newTwoPages(t)
	e.UpdateTime(100)
	tick, c := e.CurrentTick(), e.Cursors()
	e.UpdateTime(math.NaN())
	if e.CurrentTick() != tick || e.Cursors() != c {
		t.Fatalf("NaN changed state")
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(nil, DefaultOptions()); err == nil {
		t.Fatalf("expected error for nil beatmap")
	}
	if _, err := New(&beatmap.Beatmap{Dialect: beatmap.DialectTick}, DefaultOptions()); err == nil {
		t.Fatalf("expected error for beatmap without pages")
	}
	if _, err := New(&beatmap.Beatmap{}, DefaultOptions()); err == nil {
		t.Fatalf("expected error for unknown dialect")
	}

	page := beatmap.Page{Start: 0, End: 960, Direction: 1}
	tempo := beatmap.TempoSegment{StartTick: 0, Value: 400000}
	cases := map[string]*beatmap.Beatmap{
		"zero tempo":     {Pages: []beatmap.Page{page}, Tempos: []beatmap.TempoSegment{{StartTick: 0, Value: 0}}},
		"negative tempo": {Pages: []beatmap.Page{page}, Tempos: []beatmap.TempoSegment{{StartTick: 0, Value: -1}}},
		"nan tempo":      {Pages: []beatmap.Page{page}, Tempos: []beatmap.TempoSegment{{StartTick: 0, Value: math.NaN()}}},
		"inf tempo":      {Pages: []beatmap.Page{page}, Tempos: []beatmap.TempoSegment{tempo, {StartTick: 10, Value: math.Inf(1)}}},
		"tempo order":    {Pages: []beatmap.Page{page}, Tempos: []beatmap.TempoSegment{tempo, {StartTick: 100, Value: 1}, {StartTick: 50, Value: 1}}},
		"empty page":     {Pages: []beatmap.Page{{Start: 10, End: 10, Direction: 1}}, Tempos: []beatmap.TempoSegment{tempo}},
		"nan page":       {Pages: []beatmap.Page{{Start: 0, End: math.NaN(), Direction: 1}}, Tempos: []beatmap.TempoSegment{tempo}},
		"page direction": {Pages: []beatmap.Page{{Start: 0, End: 960, Direction: 0}}, Tempos: []beatmap.TempoSegment{tempo}},
		"page order":     {Pages: []beatmap.Page{{Start: 960, End: 1920, Direction: 1}, page}, Tempos: []beatmap.TempoSegment{tempo}},
	}
	for name, bm := range cases {
		bm.Dialect = beatmap.DialectTick
		if _, err := New(bm, DefaultOptions()); !errors.Is(err, beatmap.ErrMalformed) {
			t.Fatalf("%s: got %v, want ErrMalformed", name, err)
		}
	}
}

func TestTickTempoSegmentsAtZero(t *testing.T) {
	bm := &beatmap.Beatmap{
		Dialect: beatmap.DialectTick,
		Pages:   []beatmap.Page{{Start: 0, End: 960, Direction: 1}},
		Tempos:  []beatmap.TempoSegment{{StartTick: 0, Value: 400000}, {StartTick: 0, Value: 800000}},
	}
	e, err := NewTickEngine(bm, DefaultOptions())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if e.CurrentTempo() != 800000 {
		t.Fatalf("tempo %v, want the last segment at tick 0", e.CurrentTempo())
	}
	e.UpdateTime(bm.TickTime(1))
	if e.CurrentTick() != 1 {
		t.Fatalf("tick %d after one tick of time", e.CurrentTick())
	}
	e.UpdateTime(math.Inf(1))
	if e.CurrentTick() != 1 {
		t.Fatalf("infinite time advanced to tick %d", e.CurrentTick())
	}
}
