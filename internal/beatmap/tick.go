package beatmap

import (
	"encoding/json"
	"fmt"
)

const expectedTimeBase = 480

// TickAdapter parses the tick-indexed JSON dialect.
type TickAdapter struct{ cfg ParserConfig }

func NewTickAdapter(cfg ParserConfig) *TickAdapter { return &TickAdapter{cfg: cfg} }

func (a *TickAdapter) Dialect() Dialect { return DialectTick }

type tickFile struct {
	FormatVersion   int              `json:"format_version"`
	TimeBase        int              `json:"time_base"`
	StartOffsetTime float64          `json:"start_offset_time"`
	PageList        []tickPage       `json:"page_list"`
	TempoList       []tickTempo      `json:"tempo_list"`
	EventOrderList  []tickEventOrder `json:"event_order_list"`
	NoteList        []tickNote       `json:"note_list"`
}

type tickPage struct {
	StartTick         *int                  `json:"start_tick"`
	EndTick           *int                  `json:"end_tick"`
	ScanLineDirection int                   `json:"scan_line_direction"`
	PositionFunction  *tickPositionFunction `json:"PositionFunction"`
}

type tickPositionFunction struct {
	Type      int       `json:"Type"`
	Arguments []float64 `json:"Arguments"`
}

type tickTempo struct {
	Tick  *int     `json:"tick"`
	Value *float64 `json:"value"`
}

type tickEventOrder struct {
	Tick      int `json:"tick"`
	EventList []struct {
		Type int    `json:"type"`
		Args string `json:"args"`
	} `json:"event_list"`
}

type tickNote struct {
	ID        *int     `json:"id"`
	PageIndex *int     `json:"page_index"`
	Type      int      `json:"type"`
	Tick      *int     `json:"tick"`
	X         *float64 `json:"x"`
	HoldTick  int      `json:"hold_tick"`
	NextID    int      `json:"next_id"`
}

func (a *TickAdapter) Parse(raw []byte) (*Beatmap, error) {
	var f tickFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var w warnings
	bm := &Beatmap{
		Dialect:         DialectTick,
		FormatVersion:   f.FormatVersion,
		TimeBase:        f.TimeBase,
		StartOffsetTime: f.StartOffsetTime * 1000,
	}
	if f.TimeBase != 0 && f.TimeBase != expectedTimeBase {
		w.add(-1, "time_base %d ignored, tempo conversion assumes %d ticks per beat", f.TimeBase, expectedTimeBase)
	}

	pages, err := tickPages(f.PageList, &w)
	if err != nil {
		return nil, err
	}
	bm.Pages = pages

	tempos, err := tickTempos(f.TempoList, &w)
	if err != nil {
		return nil, err
	}
	bm.Tempos = tempos

	for _, eo := range f.EventOrderList {
		order := EventOrder{Tick: eo.Tick}
		for _, ev := range eo.EventList {
			order.Events = append(order.Events, OrderEvent{Type: ev.Type, Args: ev.Args})
		}
		bm.EventOrder = append(bm.EventOrder, order)
	}

	notes := make([]Note, 0, len(f.NoteList))
	for i, rn := range f.NoteList {
		if rn.ID == nil || rn.PageIndex == nil || rn.Tick == nil || rn.X == nil {
			return nil, fmt.Errorf("%w: note_list[%d] missing id, page_index, tick or x", ErrMalformed, i)
		}
		if *rn.PageIndex < 0 || *rn.PageIndex >= len(pages) {
			return nil, fmt.Errorf("%w: note id %d page_index %d out of range", ErrMalformed, *rn.ID, *rn.PageIndex)
		}
		if rn.HoldTick < 0 {
			return nil, fmt.Errorf("%w: note id %d negative hold_tick", ErrMalformed, *rn.ID)
		}
		next := NoLink
		if rn.NextID > 0 {
			next = rn.NextID
		}
		notes = append(notes, Note{
			ID:        *rn.ID,
			Pos:       float64(*rn.Tick),
			Hold:      float64(rn.HoldTick),
			X:         *rn.X,
			Type:      NoteType(rn.Type),
			NextID:    next,
			PageIndex: *rn.PageIndex,
		})
	}
	sortNotes(notes)

	for i := range notes {
		n := &notes[i]
		if !n.Type.Valid() {
			w.add(i, "unknown type %d, using click", int(n.Type))
			n.Type = NoteClick
		}
		if err := clampLane(n, a.cfg, &w); err != nil {
			return nil, err
		}
		page := pages[n.PageIndex]
		n.Direction = page.Direction
		n.Y = Position(n.Pos, page)
		if n.Hold > 0 {
			n.HoldY = Position(n.End(), page)
		}
		n.Time = bm.TickTime(n.Pos)
	}
	if err := resolveChains(notes, retypeTick); err != nil {
		return nil, err
	}
	bm.Notes = notes
	bm.Warnings = w.list
	return bm, nil
}

func tickPages(list []tickPage, w *warnings) ([]Page, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: empty page_list", ErrMalformed)
	}
	pages := make([]Page, 0, len(list))
	for i, rp := range list {
		if rp.StartTick == nil || rp.EndTick == nil {
			return nil, fmt.Errorf("%w: page_list[%d] missing start_tick or end_tick", ErrMalformed, i)
		}
		if *rp.EndTick <= *rp.StartTick {
			return nil, fmt.Errorf("%w: page_list[%d] ends at %d before it starts at %d", ErrMalformed, i, *rp.EndTick, *rp.StartTick)
		}
		if rp.ScanLineDirection != 1 && rp.ScanLineDirection != -1 {
			return nil, fmt.Errorf("%w: page_list[%d] scan_line_direction %d", ErrMalformed, i, rp.ScanLineDirection)
		}
		p := Page{
			Start:     float64(*rp.StartTick),
			End:       float64(*rp.EndTick),
			Direction: rp.ScanLineDirection,
		}
		if i > 0 {
			prev := pages[i-1]
			if p.Start < prev.Start {
				return nil, fmt.Errorf("%w: page_list[%d] starts before page %d", ErrMalformed, i, i-1)
			}
			if p.Start != prev.End {
				w.add(-1, "page %d starts at tick %.0f, previous page ends at %.0f", i, p.Start, prev.End)
			}
		}
		if fn := rp.PositionFunction; fn != nil {
			switch {
			case fn.Type != 0:
				w.add(-1, "page %d: unknown PositionFunction type %d, using linear", i, fn.Type)
			case len(fn.Arguments) < 2:
				w.add(-1, "page %d: PositionFunction needs 2 arguments, using linear", i)
			default:
				p.Function = &PositionFunction{Kind: fn.Type, Arguments: append([]float64(nil), fn.Arguments...)}
			}
		}
		pages = append(pages, p)
	}
	return pages, nil
}

func tickTempos(list []tickTempo, w *warnings) ([]TempoSegment, error) {
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: empty tempo_list", ErrMalformed)
	}
	tempos := make([]TempoSegment, 0, len(list))
	for i, rt := range list {
		if rt.Tick == nil || rt.Value == nil {
			return nil, fmt.Errorf("%w: tempo_list[%d] missing tick or value", ErrMalformed, i)
		}
		if *rt.Value <= 0 {
			return nil, fmt.Errorf("%w: tempo_list[%d] value %v", ErrMalformed, i, *rt.Value)
		}
		if i > 0 && *rt.Tick < tempos[i-1].StartTick {
			return nil, fmt.Errorf("%w: tempo_list[%d] out of order", ErrMalformed, i)
		}
		tempos = append(tempos, TempoSegment{StartTick: *rt.Tick, Value: *rt.Value})
	}
	if tempos[0].StartTick != 0 {
		w.add(-1, "first tempo starts at tick %d, applying it from tick 0", tempos[0].StartTick)
	}
	return tempos, nil
}
