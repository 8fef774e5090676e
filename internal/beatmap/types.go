package beatmap

import "fmt"

// TicksPerTempoUnit converts a tick-dialect tempo value (microseconds per
// beat at 480 ticks per beat) to milliseconds per tick.
const TicksPerTempoUnit = 480000

// Dialect identifies a beatmap source format.
type Dialect int

const (
	DialectFlat Dialect = iota + 1 // millisecond text format (version 1)
	DialectTick                    // tick-indexed JSON format (version 2)
)

func (d Dialect) String() string {
	switch d {
	case DialectFlat:
		return "flat"
	case DialectTick:
		return "tick"
	default:
		return fmt.Sprintf("dialect(%d)", int(d))
	}
}

type NoteType int

const (
	NoteClick NoteType = iota
	NoteHold
	NoteLongHold
	NoteDragHead
	NoteDragBody
	NoteFlick
	NoteClickDragHead
	NoteClickDragBody
)

var noteTypeNames = [...]string{
	"click", "hold", "long_hold",
	"drag_head", "drag_body", "flick",
	"click_drag_head", "click_drag_body",
}

func (t NoteType) String() string {
	if t < 0 || int(t) >= len(noteTypeNames) {
		return fmt.Sprintf("note_type(%d)", int(t))
	}
	return noteTypeNames[t]
}

// Valid reports whether t is one of the eight known note types.
func (t NoteType) Valid() bool { return t >= 0 && int(t) < len(noteTypeNames) }

// IsBody reports whether the note is a non-leading segment of a drag chain.
func (t NoteType) IsBody() bool { return t == NoteDragBody || t == NoteClickDragBody }

// IsDrag reports whether the note belongs to a drag chain.
func (t NoteType) IsDrag() bool {
	switch t {
	case NoteDragHead, NoteDragBody, NoteClickDragHead, NoteClickDragBody:
		return true
	}
	return false
}

// NoLink marks a note without a successor in a drag chain.
const NoLink = -1

// PositionFunction is the optional nonlinear remap of a page's scan position.
// Kind 0 rescales the linear position by Arguments[0] and offsets it so the
// page is centred: pos*a0 + (1-a0-a1)/2.
type PositionFunction struct {
	Kind      int
	Arguments []float64
}

// Page is one sweep of the scan line, bounded on the dialect's native axis
// (ticks, or milliseconds of page-space time for the flat dialect).
type Page struct {
	Start     float64
	End       float64
	Direction int
	Function  *PositionFunction
}

// TempoSegment starts a constant tempo at StartTick. Value is microseconds
// per beat (400000 = 150 bpm).
type TempoSegment struct {
	StartTick int
	Value     float64
}

// Note is the normalized record consumed by the playback engine. Pos and
// Hold are on the dialect's native axis: ticks for the tick dialect,
// milliseconds for the flat dialect. Time is always milliseconds of audio.
type Note struct {
	Index     int
	ID        int
	Pos       float64
	Hold      float64
	Time      float64
	X         float64
	Y         float64
	HoldY     float64
	Type      NoteType
	Direction int
	NextID    int
	Next      int // index of the linked successor, NoLink if none
	PageIndex int
}

// End returns the native-axis position at which the note's sustain finishes.
func (n Note) End() float64 { return n.Pos + n.Hold }

// Sustained reports whether the note has a hold duration.
func (n Note) Sustained() bool { return n.Hold > 0 }

// Warning is a non-fatal finding recorded while loading a beatmap.
type Warning struct {
	Note    int // note index, -1 when not note specific
	Message string
}

func (w Warning) String() string {
	if w.Note < 0 {
		return w.Message
	}
	return fmt.Sprintf("note %d: %s", w.Note, w.Message)
}

// Beatmap is the immutable result of parsing either dialect.
type Beatmap struct {
	Dialect         Dialect
	FormatVersion   int
	TimeBase        int
	StartOffsetTime float64 // ms of audio before tick 0
	Pages           []Page
	Tempos          []TempoSegment
	Notes           []Note
	EventOrder      []EventOrder

	// Flat dialect only.
	BPM       float64
	PageSize  float64
	PageShift float64

	Warnings []Warning
}

// EventOrder is carried through from the tick dialect untouched.
type EventOrder struct {
	Tick   int
	Events []OrderEvent
}

type OrderEvent struct {
	Type int
	Args string
}

// PageIndex maps a flat-dialect page-space time to its synthesized page.
func (b *Beatmap) PageIndex(t float64) int {
	if b.PageSize <= 0 {
		return 0
	}
	return floorDiv(t, b.PageSize)
}

// FlatPage returns the synthesized flat-dialect page with the given index.
// Even pages scan upward, odd pages downward.
func (b *Beatmap) FlatPage(index int) Page {
	start := float64(index) * b.PageSize
	dir := 1
	if index%2 != 0 {
		dir = -1
	}
	return Page{Start: start, End: start + b.PageSize, Direction: dir}
}

type ParserConfig struct {
	// BeatsPerPage derives the flat page size from BPM when PAGE_SIZE is absent.
	BeatsPerPage float64
	// ClampLanes clamps lane x into [0,1] with a warning instead of failing.
	ClampLanes bool
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		BeatsPerPage: 4,
		ClampLanes:   true,
	}
}
