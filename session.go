package scanplay

import (
	"errors"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"

	intaudio "github.com/cbegin/scanplay-go/internal/audio"
	"github.com/cbegin/scanplay-go/internal/beatmap"
	"github.com/cbegin/scanplay-go/internal/playback"
)

type (
	Beatmap  = beatmap.Beatmap
	Note     = beatmap.Note
	NoteType = beatmap.NoteType
	Dialect  = beatmap.Dialect
	Engine   = playback.Engine
	Clock    = intaudio.Clock
)

const (
	DialectAuto = Dialect(0)
	DialectFlat = beatmap.DialectFlat
	DialectTick = beatmap.DialectTick
)

type SessionOption func(*sessionConfig)

type sessionConfig struct {
	dialect    Dialect
	parser     beatmap.ParserConfig
	judgeDelay float64
	clock      Clock
	hitCue     bool
	rate       float64
	onRemove   func(Note)
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		parser: beatmap.DefaultParserConfig(),
		hitCue: true,
		rate:   1,
	}
}

// WithDialect forces the beatmap dialect instead of detecting it.
func WithDialect(d Dialect) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.dialect = d
	}
}

func WithParserConfig(pc beatmap.ParserConfig) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.parser = pc
	}
}

// WithJudgeDelay sets how long a note stays catchable past its end, in ticks
// for tick beatmaps and milliseconds for flat ones.
func WithJudgeDelay(delay float64) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.judgeDelay = delay
	}
}

// WithClock drives playback from c. An *audio.Track also provides hit cues
// and becomes the preferred clock whenever the rate allows it.
func WithClock(c Clock) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.clock = c
	}
}

func WithHitCue(enabled bool) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.hitCue = enabled
	}
}

func WithRate(rate float64) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.rate = rate
	}
}

// WithRemoveHook installs a callback invoked from Update for each note it
// removes.
func WithRemoveHook(fn func(Note)) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.onRemove = fn
	}
}

var ErrBadRate = errors.New("playback rate must be positive")

// Session couples a beatmap, its playback engine and the clock that drives
// it. All methods must be called from the host's frame loop goroutine.
type Session struct {
	bm       *Beatmap
	engine   Engine
	track    *intaudio.Track
	frame    *intaudio.FrameClock
	clock    Clock
	rate     float64
	hitCue   bool
	onRemove func(Note)
}

// Status is a snapshot of playback for display. Tick and Tempo are only
// meaningful for tick beatmaps.
type Status struct {
	Time     float64
	Rate     float64
	Playing  bool
	Page     int
	Line     float64
	HasTick  bool
	Tick     int
	Tempo    float64
	Combo    int
	Total    int
	Score    float64
	TP       float64
	Finished bool
}

func (s Status) String() string {
	out := fmt.Sprintf("Time: %.3f ms; Playback rate: %.4fx", s.Time, s.Rate)
	if s.HasTick {
		out += fmt.Sprintf("; Tick: %d; Tempo: %s", s.Tick, humanize.Ftoa(s.Tempo))
	}
	out += fmt.Sprintf("\nCombo: %d/%d; Score: %s; TP: %.2f",
		s.Combo, s.Total, humanize.Comma(int64(math.Round(s.Score))), s.TP)
	if s.Finished {
		out += "\nFinished"
	}
	return out
}

// Load parses raw beatmap bytes with the session options' dialect and parser
// configuration.
func Load(raw []byte, opts ...SessionOption) (*Beatmap, error) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return load(raw, cfg)
}

func load(raw []byte, cfg sessionConfig) (*Beatmap, error) {
	d := cfg.dialect
	if d == DialectAuto {
		d = beatmap.DetectDialect(raw)
	}
	a, err := beatmap.NewAdapter(d, cfg.parser)
	if err != nil {
		return nil, err
	}
	return a.Parse(raw)
}

func NewSession(raw []byte, opts ...SessionOption) (*Session, error) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	bm, err := load(raw, cfg)
	if err != nil {
		return nil, err
	}
	return newSession(bm, cfg)
}

// NewSessionFromBeatmap starts a session on an already parsed beatmap.
func NewSessionFromBeatmap(bm *Beatmap, opts ...SessionOption) (*Session, error) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newSession(bm, cfg)
}

func newSession(bm *Beatmap, cfg sessionConfig) (*Session, error) {
	if cfg.rate <= 0 || math.IsNaN(cfg.rate) {
		return nil, ErrBadRate
	}
	engine, err := playback.New(bm, playback.Options{JudgeDelay: cfg.judgeDelay})
	if err != nil {
		return nil, err
	}
	s := &Session{
		bm:       bm,
		engine:   engine,
		rate:     1,
		hitCue:   cfg.hitCue,
		onRemove: cfg.onRemove,
	}
	switch c := cfg.clock.(type) {
	case nil:
		s.frame = intaudio.NewFrameClock(math.NaN())
		s.clock = s.frame
	case *intaudio.Track:
		s.track = c
		s.frame = intaudio.NewFrameClock(c.Duration())
		s.clock = c
	default:
		s.clock = c
	}
	if err := s.SetRate(cfg.rate); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Beatmap() *Beatmap { return s.bm }
func (s *Session) Engine() Engine    { return s.engine }

// Update advances the engine to the clock's time, removes every note whose
// judge window closed and returns them in playback order. A hit cue plays
// once per removed note.
func (s *Session) Update() []Note {
	now := s.clock.Now()
	if math.IsNaN(now) {
		return nil
	}
	s.engine.UpdateTime(now)
	var removed []Note
	for _, n := range s.engine.NotesToRemove() {
		if s.engine.IsRemoved(n.Index) {
			continue
		}
		s.engine.RemoveNote(n.Index)
		removed = append(removed, n)
		if s.hitCue && s.track != nil {
			_ = s.track.PlayCue()
		}
		if s.onRemove != nil {
			s.onRemove(n)
		}
	}
	return removed
}

func (s *Session) Status() Status {
	st := Status{
		Time:     s.engine.CurrentTime(),
		Rate:     s.rate,
		Playing:  s.clock.Playing(),
		Page:     s.engine.CurrentPageIndex(),
		Line:     s.engine.LinePosition(),
		Combo:    s.engine.Combo(),
		Total:    len(s.engine.AllNotes()),
		Score:    s.engine.Score(),
		TP:       s.engine.TP(),
		Finished: s.engine.IsFinished(),
	}
	if tr, ok := s.engine.(playback.TickReporter); ok {
		st.HasTick = true
		st.Tick = tr.CurrentTick()
		st.Tempo = tr.CurrentTempo()
	}
	return st
}

func (s *Session) Play() error   { return s.clock.Play() }
func (s *Session) Pause()        { s.clock.Pause() }
func (s *Session) Playing() bool { return s.clock.Playing() }

// Seek moves the clock forward to ms. The engine cannot rewind, so earlier
// positions are ignored.
func (s *Session) Seek(ms float64) { s.clock.Seek(ms) }

// Position returns the clock's time in ms.
func (s *Session) Position() float64 { return s.clock.Now() }
func (s *Session) Duration() float64 { return s.clock.Duration() }
func (s *Session) Rate() float64     { return s.rate }

func (s *Session) SetVolume(volume float64) {
	if s.track != nil {
		s.track.SetVolume(volume)
		return
	}
	s.clock.SetVolume(volume)
}

// SetRate changes playback speed. With an audio track, rates outside
// [audio.MinRate, audio.MaxRate] hand timing over to a frame clock and mute
// the music until the rate returns to range.
func (s *Session) SetRate(rate float64) error {
	if rate <= 0 || math.IsNaN(rate) {
		return ErrBadRate
	}
	s.rate = rate
	if s.track == nil {
		s.clock.SetRate(rate)
		return nil
	}
	next := Clock(s.frame)
	if rate >= intaudio.MinRate && rate <= intaudio.MaxRate {
		next = s.track
	}
	next.SetRate(rate)
	if next == s.clock {
		return nil
	}
	return s.handOver(next)
}

func (s *Session) handOver(next Clock) error {
	prev := s.clock
	playing := prev.Playing()
	prev.Pause()
	next.Seek(prev.Now())
	s.clock = next
	if playing {
		return next.Play()
	}
	return nil
}

// UsingAudio reports whether the audio track currently drives playback.
func (s *Session) UsingAudio() bool {
	return s.track != nil && s.clock == Clock(s.track)
}

func (s *Session) Close() error {
	if s.track != nil {
		return s.track.Close()
	}
	s.clock.Pause()
	return nil
}
