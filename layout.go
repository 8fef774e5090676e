package scanplay

import (
	"image/color"

	"github.com/cbegin/scanplay-go/internal/beatmap"
)

// Layout maps normalized beatmap coordinates onto a playfield of Width x
// Height pixels. Lane x runs left to right; the vertical position y=1 is the
// top edge.
type Layout struct {
	Width  float64
	Height float64
}

// NewLayout sizes a 4:3 playfield from its height.
func NewLayout(height float64) Layout {
	return Layout{Width: height / 3 * 4, Height: height}
}

func (l Layout) NoteSize() float64 { return l.Height / 15 }
func (l Layout) Margin() float64   { return l.NoteSize() * 1.2 }

func (l Layout) X(x float64) float64 {
	m := l.Margin()
	return m + x*(l.Width-2*m)
}

func (l Layout) Y(y float64) float64 {
	m := l.Margin()
	return m + (1-y)*(l.Height-2*m)
}

// Point returns the pixel centre of a note.
func (l Layout) Point(n beatmap.Note) (float64, float64) {
	return l.X(n.X), l.Y(n.Y)
}

// Radius returns the drawn radius of a note: drag bodies are half size and
// flicks are shrunk so their rotated square matches a circle's footprint.
func (l Layout) Radius(t beatmap.NoteType) float64 {
	size := l.NoteSize()
	if t.IsBody() {
		size *= 0.5
	}
	if t == beatmap.NoteFlick {
		size /= 1.2
	}
	return size
}

// LineWidth is the scan line's stroke width.
func (l Layout) LineWidth() float64 { return l.Height / 200 }

// NoteColors is the ring and fill colour pair of a note.
type NoteColors struct {
	Ring  color.RGBA
	Inner color.RGBA
	// Center is the colour the fill fades to in the middle of the note.
	Center color.RGBA
}

var (
	white     = color.RGBA{0xff, 0xff, 0xff, 0xff}
	cyanUp    = NoteColors{Ring: rgb(0x3fc5bc), Inner: rgb(0x6ef1e7)}
	cyanDown  = NoteColors{Ring: rgb(0x2b64b6), Inner: rgb(0x98f2ff)}
	holdUp    = NoteColors{Ring: rgb(0xea5fc2), Inner: white}
	holdDown  = NoteColors{Ring: rgb(0xe5796c), Inner: white}
	longHold  = NoteColors{Ring: rgb(0xfcdb5b), Inner: rgb(0xffe8ac)}
	dragUp    = NoteColors{Ring: rgb(0x5e46ad), Inner: rgb(0x782eff)}
	dragDown  = NoteColors{Ring: rgb(0xa72dd1), Inner: rgb(0xd929ff)}
	Backdrop  = rgb(0x6f6f6f)
	Border    = rgb(0x666666)
	ScanLine  = white
	DragTrail = white
)

func rgb(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// Colors returns the palette for a note type on a page scanning in
// direction (+1 or -1).
func Colors(t beatmap.NoteType, direction int) NoteColors {
	up := direction >= 0
	var c NoteColors
	switch t {
	case beatmap.NoteHold:
		c = pick(up, holdUp, holdDown)
	case beatmap.NoteLongHold:
		c = longHold
	case beatmap.NoteDragHead, beatmap.NoteDragBody:
		c = pick(up, dragUp, dragDown)
	default:
		c = pick(up, cyanUp, cyanDown)
	}
	c.Center = white
	switch t {
	case beatmap.NoteDragHead, beatmap.NoteDragBody, beatmap.NoteClickDragHead,
		beatmap.NoteClickDragBody, beatmap.NoteLongHold:
		c.Center = c.Inner
	}
	return c
}

func pick(up bool, a, b NoteColors) NoteColors {
	if up {
		return a
	}
	return b
}
