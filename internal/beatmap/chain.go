package beatmap

import "fmt"

// retypeFunc assigns the final type of a note once its chain role is known.
// linked means the note points at a successor, referenced that some other
// note points at it.
type retypeFunc func(n Note, linked, referenced bool) NoteType

// resolveChains links every note's NextID to a note index and then retypes
// the chain members. Links are all resolved before any type changes, so the
// result does not depend on note order.
func resolveChains(notes []Note, retype retypeFunc) error {
	byID := make(map[int]int, len(notes))
	for i, n := range notes {
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateID, n.ID)
		}
		byID[n.ID] = i
	}

	referenced := make([]bool, len(notes))
	for i := range notes {
		n := &notes[i]
		n.Next = NoLink
		if n.NextID == NoLink {
			continue
		}
		target, ok := byID[n.NextID]
		if !ok {
			return fmt.Errorf("%w: note id %d links to missing id %d", ErrUnresolvedLink, n.ID, n.NextID)
		}
		if target == i {
			return fmt.Errorf("%w: note id %d links to itself", ErrUnresolvedLink, n.ID)
		}
		n.Next = target
		referenced[target] = true
	}

	for i := range notes {
		notes[i].Type = retype(notes[i], notes[i].Next != NoLink, referenced[i])
	}
	return nil
}

func retypeTick(n Note, linked, referenced bool) NoteType {
	clickFamily := n.Type == NoteClickDragHead || n.Type == NoteClickDragBody
	switch {
	case referenced && clickFamily:
		return NoteClickDragBody
	case referenced:
		return NoteDragBody
	case linked && clickFamily:
		return NoteClickDragHead
	case linked:
		return NoteDragHead
	}
	return n.Type
}

func retypeFlat(n Note, linked, referenced bool) NoteType {
	switch {
	case referenced:
		return NoteDragBody
	case linked:
		return NoteDragHead
	case n.Hold > 0:
		return NoteHold
	}
	return NoteClick
}
