package beatmap

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	ErrMalformed      = errors.New("malformed beatmap")
	ErrUnknownDialect = errors.New("unknown beatmap dialect")
	ErrUnresolvedLink = errors.New("unresolved drag link")
	ErrDuplicateID    = errors.New("duplicate note id")
)

// Adapter turns raw beatmap bytes of one dialect into a Beatmap.
type Adapter interface {
	Dialect() Dialect
	Parse(raw []byte) (*Beatmap, error)
}

func NewAdapter(d Dialect, cfg ParserConfig) (Adapter, error) {
	switch d {
	case DialectTick:
		return &TickAdapter{cfg: cfg}, nil
	case DialectFlat:
		return &FlatAdapter{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownDialect, d)
	}
}

// Parse decodes raw with the default configuration. A zero dialect is
// detected from the content.
func Parse(d Dialect, raw []byte) (*Beatmap, error) {
	if d == 0 {
		d = DetectDialect(raw)
	}
	a, err := NewAdapter(d, DefaultParserConfig())
	if err != nil {
		return nil, err
	}
	return a.Parse(raw)
}

// DetectDialect guesses the dialect: JSON objects are tick beatmaps,
// anything else is treated as flat text.
func DetectDialect(raw []byte) Dialect {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return DialectTick
	}
	return DialectFlat
}

// DialectForVersion maps the host's pattern version flag (1 or 2).
func DialectForVersion(version int) (Dialect, error) {
	switch version {
	case 1:
		return DialectFlat, nil
	case 2:
		return DialectTick, nil
	default:
		return 0, fmt.Errorf("%w: version %d", ErrUnknownDialect, version)
	}
}

type warnings struct {
	list []Warning
}

func (w *warnings) add(note int, format string, args ...any) {
	w.list = append(w.list, Warning{Note: note, Message: fmt.Sprintf(format, args...)})
}

func sortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Pos < notes[j].Pos })
	for i := range notes {
		notes[i].Index = i
	}
}

func clampLane(n *Note, cfg ParserConfig, w *warnings) error {
	if math.IsNaN(n.X) {
		return fmt.Errorf("%w: note id %d lane x is NaN", ErrMalformed, n.ID)
	}
	if n.X >= 0 && n.X <= 1 {
		return nil
	}
	if !cfg.ClampLanes {
		return fmt.Errorf("%w: note id %d lane x %.3f outside [0,1]", ErrMalformed, n.ID, n.X)
	}
	w.add(n.Index, "lane x %.3f clamped into [0,1]", n.X)
	n.X = min(max(n.X, 0), 1)
	return nil
}
