package playback

import (
	"slices"

	"github.com/cbegin/scanplay-go/internal/beatmap"
)

type noteFlags struct {
	removed      bool
	pageSwitched bool
	holding      bool
}

// window tracks the live span of notes with three forward-only cursors and
// keeps playback flags in a side table parallel to the note array.
type window struct {
	notes      []beatmap.Note
	flags      []noteFlags
	head       int
	tail       int
	removeHead int
	removed    int

	passed  func(n *beatmap.Note) bool
	holding func(n *beatmap.Note) bool
	page    func() int
}

func newWindow(notes []beatmap.Note) window {
	return window{
		notes: slices.Clone(notes),
		flags: make([]noteFlags, len(notes)),
	}
}

// beginUpdate marks the start of a removal batch.
func (w *window) beginUpdate() { w.removeHead = w.head }

func (w *window) advanceTail(limit float64) {
	for w.tail < len(w.notes) && w.notes[w.tail].Pos < limit {
		w.tail++
	}
}

func (w *window) advanceHead() {
	for w.head < w.tail && w.passed(&w.notes[w.head]) {
		w.head++
	}
}

// AllNotes returns every note in playback order. The slice must not be modified.
func (w *window) AllNotes() []beatmap.Note { return w.notes[:len(w.notes):len(w.notes)] }

// CurrentNotes returns the live window [head, tail). The slice must not be modified.
func (w *window) CurrentNotes() []beatmap.Note { return w.notes[w.head:w.tail:w.tail] }

// NotesToRemove returns the notes in [removeHead, tail) whose judge window
// has closed and that have not been removed yet.
func (w *window) NotesToRemove() []beatmap.Note {
	var out []beatmap.Note
	for i := w.removeHead; i < w.tail; i++ {
		if !w.flags[i].removed && w.passed(&w.notes[i]) {
			out = append(out, w.notes[i])
		}
	}
	return out
}

func (w *window) Note(index int) beatmap.Note {
	if index < 0 || index >= len(w.notes) {
		return beatmap.Note{Index: index, Next: beatmap.NoLink}
	}
	return w.notes[index]
}

// RemoveNote flags a note removed and counts it toward the combo. Removing a
// note twice, or an index out of range, changes nothing.
func (w *window) RemoveNote(index int) {
	if index < 0 || index >= len(w.flags) || w.flags[index].removed {
		return
	}
	w.flags[index].removed = true
	w.removed++
}

func (w *window) IsRemoved(index int) bool {
	return index >= 0 && index < len(w.flags) && w.flags[index].removed
}

func (w *window) IsHolding(n beatmap.Note) bool { return w.holding(&n) }

// MarkPageSwitched reports true once per note, the first time it is called
// while the note's page is the current page.
func (w *window) MarkPageSwitched(index int) bool {
	if index < 0 || index >= len(w.flags) || w.flags[index].pageSwitched {
		return false
	}
	if w.notes[index].PageIndex != w.page() {
		return false
	}
	w.flags[index].pageSwitched = true
	return true
}

// MarkHolding reports true once per note, the first time it is called while
// the note is being held.
func (w *window) MarkHolding(index int) bool {
	if index < 0 || index >= len(w.flags) || w.flags[index].holding {
		return false
	}
	if !w.holding(&w.notes[index]) {
		return false
	}
	w.flags[index].holding = true
	return true
}

func (w *window) Cursors() Cursors {
	return Cursors{RemoveHead: w.removeHead, Head: w.head, Tail: w.tail}
}

func (w *window) Score() float64 { return Score(w.removed, len(w.notes)) }
func (w *window) TP() float64    { return TP(w.removed, len(w.notes)) }
func (w *window) Combo() int     { return w.removed }
