package playback

import (
	"errors"
	"fmt"

	"github.com/cbegin/scanplay-go/internal/beatmap"
)

// Engine is the playback contract shared by both beatmap dialects.
//
// UpdateTime is the only method that advances playback; it and every other
// method must be called from one goroutine. Query methods have no side
// effects. RemoveNote, MarkPageSwitched and MarkHolding write only the
// per-note side table.
type Engine interface {
	UpdateTime(ms float64)
	IsFinished() bool
	CurrentTime() float64
	CurrentPageIndex() int
	LinePosition() float64

	AllNotes() []beatmap.Note
	CurrentNotes() []beatmap.Note
	NotesToRemove() []beatmap.Note
	Note(index int) beatmap.Note
	RemoveNote(index int)
	IsRemoved(index int) bool
	IsHolding(n beatmap.Note) bool
	MarkPageSwitched(index int) bool
	MarkHolding(index int) bool
	Cursors() Cursors

	Score() float64
	TP() float64
	Combo() int
}

// TickReporter is implemented by engines running on a tempo-driven tick grid.
type TickReporter interface {
	CurrentTick() int
	CurrentTempo() float64
	TimePerTick() float64
}

// Cursors exposes the window bounds into AllNotes:
// RemoveHead <= Head <= Tail <= len(AllNotes()).
type Cursors struct {
	RemoveHead int
	Head       int
	Tail       int
}

// LegacyFlatJudgeDelay is the late-input allowance (ms) earlier flat-text
// players used.
const LegacyFlatJudgeDelay = 50

type Options struct {
	// JudgeDelay keeps a note catchable past its end, in the dialect's native
	// unit (ticks or milliseconds).
	JudgeDelay float64
}

func DefaultOptions() Options { return Options{} }

var ErrNoBeatmap = errors.New("no beatmap")

// New builds and initializes the engine for bm's dialect.
func New(bm *beatmap.Beatmap, opts Options) (Engine, error) {
	if bm == nil {
		return nil, ErrNoBeatmap
	}
	switch bm.Dialect {
	case beatmap.DialectTick:
		e, err := NewTickEngine(bm, opts)
		if err != nil {
			return nil, err
		}
		return e, nil
	case beatmap.DialectFlat:
		e, err := NewFlatEngine(bm, opts)
		if err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %v", beatmap.ErrUnknownDialect, bm.Dialect)
	}
}
