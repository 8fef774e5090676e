package beatmap

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FlatAdapter parses the millisecond text dialect:
//
//	BPM 140.000000
//	PAGE_SHIFT 0.428571
//	PAGE_SIZE 1.714286
//	NOTE 0 1.000 0.5 0.000
//	LINK 3 4 5
//
// Times, shift, size and lengths are seconds in the file and milliseconds
// once parsed. Pages are not declared; they tile page-space time
// (time + PAGE_SHIFT) in PAGE_SIZE windows with alternating direction.
type FlatAdapter struct{ cfg ParserConfig }

func NewFlatAdapter(cfg ParserConfig) *FlatAdapter { return &FlatAdapter{cfg: cfg} }

func (a *FlatAdapter) Dialect() Dialect { return DialectFlat }

func (a *FlatAdapter) Parse(raw []byte) (*Beatmap, error) {
	var w warnings
	bm := &Beatmap{Dialect: DialectFlat, FormatVersion: 1}
	var (
		notes   []Note
		links   [][]int
		hasSize bool
	)
	sc := bufio.NewScanner(bytes.NewReader(raw))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "BPM":
			v, err := flatFloat(fields, 1, lineNo)
			if err != nil {
				return nil, err
			}
			if v <= 0 {
				return nil, fmt.Errorf("%w: line %d: BPM %v", ErrMalformed, lineNo, v)
			}
			bm.BPM = v
		case "PAGE_SHIFT":
			v, err := flatFloat(fields, 1, lineNo)
			if err != nil {
				return nil, err
			}
			bm.PageShift = v * 1000
		case "PAGE_SIZE":
			v, err := flatFloat(fields, 1, lineNo)
			if err != nil {
				return nil, err
			}
			if v <= 0 {
				return nil, fmt.Errorf("%w: line %d: PAGE_SIZE %v", ErrMalformed, lineNo, v)
			}
			bm.PageSize = v * 1000
			hasSize = true
		case "NOTE":
			n, err := flatNote(fields, lineNo)
			if err != nil {
				return nil, err
			}
			notes = append(notes, n)
		case "LINK":
			var ids []int
			for _, f := range fields[1:] {
				if id, err := strconv.Atoi(f); err == nil {
					ids = append(ids, id)
				}
			}
			links = append(links, ids)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !hasSize {
		if bm.BPM <= 0 {
			return nil, fmt.Errorf("%w: neither BPM nor PAGE_SIZE declared", ErrMalformed)
		}
		bm.PageSize = a.cfg.BeatsPerPage * 60000 / bm.BPM
	}

	sortNotes(notes)
	byID := make(map[int]int, len(notes))
	for i, n := range notes {
		byID[n.ID] = i
	}
	for _, ids := range links {
		for i := 0; i+1 < len(ids); i++ {
			idx, ok := byID[ids[i]]
			if !ok {
				return nil, fmt.Errorf("%w: LINK names missing note id %d", ErrUnresolvedLink, ids[i])
			}
			notes[idx].NextID = ids[i+1]
		}
	}

	for i := range notes {
		n := &notes[i]
		if err := clampLane(n, a.cfg, &w); err != nil {
			return nil, err
		}
		at := n.Pos + bm.PageShift
		n.PageIndex = bm.PageIndex(at)
		page := bm.FlatPage(n.PageIndex)
		n.Direction = page.Direction
		n.Y = Position(at, page)
		if n.Hold > 0 {
			end := n.End() + bm.PageShift
			n.HoldY = Position(end, bm.FlatPage(bm.PageIndex(end)))
		}
	}
	if err := resolveChains(notes, retypeFlat); err != nil {
		return nil, err
	}
	bm.Notes = notes
	bm.Warnings = w.list
	return bm, nil
}

func flatFloat(fields []string, at int, lineNo int) (float64, error) {
	if at >= len(fields) {
		return 0, fmt.Errorf("%w: line %d: %s needs a value", ErrMalformed, lineNo, fields[0])
	}
	v, err := strconv.ParseFloat(fields[at], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: line %d: %s value %s is not finite", ErrMalformed, lineNo, fields[0], fields[at])
	}
	return v, nil
}

func flatNote(fields []string, lineNo int) (Note, error) {
	if len(fields) < 5 {
		return Note{}, fmt.Errorf("%w: line %d: NOTE needs id, time, x and length", ErrMalformed, lineNo)
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return Note{}, fmt.Errorf("%w: line %d: note id: %v", ErrMalformed, lineNo, err)
	}
	var vals [3]float64
	for i := range vals {
		if vals[i], err = flatFloat(fields, i+2, lineNo); err != nil {
			return Note{}, err
		}
	}
	if vals[2] < 0 {
		return Note{}, fmt.Errorf("%w: line %d: negative length", ErrMalformed, lineNo)
	}
	ms := vals[0] * 1000
	return Note{
		ID:     id,
		Pos:    ms,
		Time:   ms,
		X:      vals[1],
		Hold:   vals[2] * 1000,
		NextID: NoLink,
	}, nil
}
