package scanplay

import (
	"errors"
	"math"
	"os"
	"strings"
	"testing"
)

const shortFlat = `BPM 150
PAGE_SIZE 1.6
NOTE 0 1.000 0.5 0.000
NOTE 1 1.200 0.3 0.400
NOTE 2 2.000 0.1 0.000
NOTE 3 2.200 0.4 0.000
NOTE 4 2.400 0.7 0.000
LINK 2 3 4
`

type manualClock struct {
	now     float64
	playing bool
	rate    float64
	volume  float64
}

func (c *manualClock) Now() float64         { return c.now }
func (c *manualClock) Play() error          { c.playing = true; return nil }
func (c *manualClock) Pause()               { c.playing = false }
func (c *manualClock) Playing() bool        { return c.playing }
func (c *manualClock) Seek(ms float64)      { c.now = max(c.now, ms) }
func (c *manualClock) SetRate(rate float64) { c.rate = rate }
func (c *manualClock) Rate() float64        { return c.rate }
func (c *manualClock) SetVolume(v float64)  { c.volume = v }
func (c *manualClock) Duration() float64    { return 5000 }

func TestSessionUpdateRemovesPassedNotes(t *testing.T) {
	clock := &manualClock{}
	var hooked []int
	s, err := NewSession([]byte(shortFlat), WithClock(clock), WithRemoveHook(func(n Note) {
		hooked = append(hooked, n.ID)
	}))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if s.Beatmap().Dialect != DialectFlat {
		t.Fatalf("dialect %v", s.Beatmap().Dialect)
	}

	clock.now = 1100
	got := s.Update()
	if len(got) != 1 || got[0].ID != 0 {
		t.Fatalf("removed %+v, want note 0", got)
	}
	clock.now = 1700
	if got := s.Update(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("removed %+v, want note 1", got)
	}
	if got := s.Update(); len(got) != 0 {
		t.Fatalf("second update removed %+v again", got)
	}
	if len(hooked) != 2 {
		t.Fatalf("hook saw %v", hooked)
	}

	st := s.Status()
	if st.Combo != 2 || st.Total != 5 || st.Time != 1700 || st.HasTick {
		t.Fatalf("status %+v", st)
	}
	if math.Abs(st.TP-40) > 1e-9 {
		t.Fatalf("TP %v", st.TP)
	}
}

func TestSessionIgnoresUnknownTime(t *testing.T) {
	clock := &manualClock{now: 1500}
	s, err := NewSession([]byte(shortFlat), WithClock(clock))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	s.Update()
	clock.now = math.NaN()
	if got := s.Update(); got != nil {
		t.Fatalf("NaN update removed %+v", got)
	}
	if s.Status().Time != 1500 {
		t.Fatalf("time moved to %v", s.Status().Time)
	}
}

func TestSessionTickStatus(t *testing.T) {
	raw, err := os.ReadFile("internal/beatmap/testdata/two_pages.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	clock := &manualClock{}
	s, err := NewSession(raw, WithClock(clock))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	clock.now = 100
	s.Update()
	st := s.Status()
	if !st.HasTick || st.Tempo != 400000 || st.Tick < 120 || st.Tick > 121 {
		t.Fatalf("status %+v", st)
	}
	if !strings.Contains(st.String(), "Tempo: 400000") {
		t.Fatalf("status line %q", st.String())
	}
}

func TestSessionControlsForwardToClock(t *testing.T) {
	clock := &manualClock{}
	s, err := NewSession([]byte(shortFlat), WithClock(clock), WithRate(1.5))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if clock.rate != 1.5 || s.Rate() != 1.5 {
		t.Fatalf("initial rate not applied: %v", clock.rate)
	}
	if err := s.SetRate(-1); !errors.Is(err, ErrBadRate) {
		t.Fatalf("negative rate: %v", err)
	}
	if err := s.Play(); err != nil || !s.Playing() {
		t.Fatalf("play: %v", err)
	}
	s.Seek(2000)
	s.Seek(100)
	if s.Position() != 2000 {
		t.Fatalf("position %v", s.Position())
	}
	s.SetVolume(0.5)
	if clock.volume != 0.5 || s.Duration() != 5000 {
		t.Fatalf("volume %v duration %v", clock.volume, s.Duration())
	}
	if s.UsingAudio() {
		t.Fatalf("no track attached")
	}
}

func TestNewSessionErrors(t *testing.T) {
	if _, err := NewSession([]byte(shortFlat), WithRate(0)); !errors.Is(err, ErrBadRate) {
		t.Fatalf("zero rate: %v", err)
	}
	if _, err := NewSession([]byte("{"), WithDialect(DialectTick)); err == nil {
		t.Fatalf("broken JSON accepted")
	}
	if _, err := NewSessionFromBeatmap(nil); err == nil {
		t.Fatalf("nil beatmap accepted")
	}
}
