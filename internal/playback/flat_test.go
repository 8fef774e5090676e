package playback

import (
	"math"
	"testing"

	"github.com/cbegin/scanplay-go/internal/beatmap"
)

const flatFixture = `BPM 150
PAGE_SIZE 1.6
NOTE 0 1.0 0.5 0
NOTE 1 2.0 0.2 0.5
NOTE 2 4.0 0.4 0
NOTE 3 5.0 0.6 0
`

func newFlat(t *testing.T, opts Options) *FlatEngine {
	t.Helper()
	bm, err := beatmap.Parse(beatmap.DialectFlat, []byte(flatFixture))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	e, err := NewFlatEngine(bm, opts)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func TestFlatWindowFollowsPages(t *testing.T) {
	e := newFlat(t, DefaultOptions())
	if c := e.Cursors(); c.Tail != 2 || c.Head != 0 {
		t.Fatalf("initial window %+v, want tail 2", c)
	}
	e.UpdateTime(1700)
	if e.CurrentPageIndex() != 1 {
		t.Fatalf("page %d, want 1", e.CurrentPageIndex())
	}
	if c := e.Cursors(); c.Tail != 3 || c.Head != 1 {
		t.Fatalf("window %+v, want head 1 tail 3", c)
	}
	removable := e.NotesToRemove()
	if len(removable) != 1 || removable[0].ID != 0 {
		t.Fatalf("expected note 0 for removal, got %v", removable)
	}
}

func TestFlatHoldingAndPassing(t *testing.T) {
	e := newFlat(t, DefaultOptions())
	hold := e.Note(1)
	e.UpdateTime(2200)
	if !e.IsHolding(hold) || !e.MarkHolding(1) || e.MarkHolding(1) {
		t.Fatalf("expected hold active once at 2200ms")
	}
	if len(e.NotesToRemove()) != 1 {
		t.Fatalf("only the click before the hold should be removable")
	}
	e.UpdateTime(2501)
	if e.IsHolding(hold) {
		t.Fatalf("hold still active after its end")
	}
	got := e.NotesToRemove()
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only the newly passed hold, got %v", got)
	}
}

func TestFlatLegacyJudgeDelay(t *testing.T) {
	e := newFlat(t, Options{JudgeDelay: LegacyFlatJudgeDelay})
	e.UpdateTime(1040)
	if len(e.NotesToRemove()) != 0 {
		t.Fatalf("note removable inside the judge delay")
	}
	e.UpdateTime(1051)
	if len(e.NotesToRemove()) != 1 {
		t.Fatalf("note not removable after the judge delay")
	}
}

func TestFlatLinePositionAlternates(t *testing.T) {
	e := newFlat(t, DefaultOptions())
	e.UpdateTime(800)
	if got := e.LinePosition(); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("page 0 line %v, want 0.5", got)
	}
	e.UpdateTime(2000)
	if got := e.LinePosition(); math.Abs(got-0.75) > 1e-12 {
		t.Fatalf("page 1 line %v, want 0.75", got)
	}
}

func TestFlatIgnoresBackwardsAndNaN(t *testing.T) {
	e := newFlat(t, DefaultOptions())
	e.UpdateTime(3000)
	e.UpdateTime(1000)
	e.UpdateTime(math.NaN())
	if e.CurrentTime() != 3000 {
		t.Fatalf("time moved to %v", e.CurrentTime())
	}
}

func TestFlatFinished(t *testing.T) {
	e := newFlat(t, DefaultOptions())
	e.UpdateTime(6000)
	if e.IsFinished() {
		t.Fatalf("finished inside the grace period")
	}
	for _, n := range e.NotesToRemove() {
		e.RemoveNote(n.Index)
	}
	e.UpdateTime(6001)
	if !e.IsFinished() {
		t.Fatalf("expected finished")
	}
	if e.Combo() != 4 || math.Abs(e.Score()-1000000) > 1e-6 {
		t.Fatalf("combo=%d score=%v", e.Combo(), e.Score())
	}
}

func TestEngineContractShared(t *testing.T) {
	bm, err := beatmap.Parse(beatmap.DialectFlat, []byte(flatFixture))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	e, err := New(bm, DefaultOptions())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := e.(TickReporter); ok {
		t.Fatalf("flat engine should not report ticks")
	}
	te, err := New(loadTwoPages(t), DefaultOptions())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := te.(TickReporter); !ok {
		t.Fatalf("tick engine should report ticks")
	}
}

const shiftedFixture = `BPM 150
PAGE_SIZE 1.6
PAGE_SHIFT 0.4
NOTE 0 1.0 0.5 0
NOTE 1 2.0 0.2 0.5
NOTE 2 3.0 0.4 0
NOTE 3 4.0 0.6 0
NOTE 4 5.5 0.8 0
`

func TestFlatWindowInvariants(t *testing.T) {
	bm, err := beatmap.Parse(beatmap.DialectFlat, []byte(shiftedFixture))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	e, err := NewFlatEngine(bm, DefaultOptions())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	all := e.AllNotes()
	listed := make(map[int]int)
	prev := e.Cursors()
	prevTime := e.CurrentTime()
	for _, ms := range []float64{0, 500, 300, 1001, 900, 1700, 2499, 2501, 2000, 3300, 4500, 4000, 5600, 5000, 6400, 6600} {
		e.UpdateTime(ms)
		c := e.Cursors()
		if c.RemoveHead < prev.RemoveHead || c.Head < prev.Head || c.Tail < prev.Tail || e.CurrentTime() < prevTime {
			t.Fatalf("moved backwards at %vms: %+v -> %+v", ms, prev, c)
		}
		if !(0 <= c.RemoveHead && c.RemoveHead <= c.Head && c.Head <= c.Tail && c.Tail <= len(all)) {
			t.Fatalf("cursor order broken at %vms: %+v", ms, c)
		}

		limit := float64(e.CurrentPageIndex()+2)*bm.PageSize - bm.PageShift
		want := 0
		for _, n := range all {
			if n.Pos < limit {
				want++
			}
		}
		if c.Tail != want {
			t.Fatalf("tail %d at %vms, want %d notes before %v", c.Tail, ms, want, limit)
		}
		for _, n := range e.CurrentNotes() {
			if n.Index < c.Head || n.Index >= c.Tail {
				t.Fatalf("note %d outside window %+v", n.Index, c)
			}
		}
		for _, n := range e.NotesToRemove() {
			if e.CurrentTime() <= n.End() {
				t.Fatalf("note %d listed at %v before its end %v", n.ID, e.CurrentTime(), n.End())
			}
			listed[n.ID]++
		}
		prev, prevTime = c, e.CurrentTime()
	}
	if !e.IsFinished() {
		t.Fatalf("not finished at %v", e.CurrentTime())
	}
	for _, n := range all {
		if listed[n.ID] != 1 {
			t.Fatalf("note %d listed %d times, want 1", n.ID, listed[n.ID])
		}
	}
}
