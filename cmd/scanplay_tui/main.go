package main

import (
	"flag"
	"image/color"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/cbegin/scanplay-go"
	intaudio "github.com/cbegin/scanplay-go/internal/audio"
	"github.com/cbegin/scanplay-go/internal/beatmap"
)

const tuiSampleRate = 48000

var noteRunes = map[beatmap.NoteType]rune{
	beatmap.NoteClick:         'o',
	beatmap.NoteHold:          'O',
	beatmap.NoteLongHold:      '@',
	beatmap.NoteDragHead:      '>',
	beatmap.NoteDragBody:      '.',
	beatmap.NoteFlick:         '◆',
	beatmap.NoteClickDragHead: 'o',
	beatmap.NoteClickDragBody: '.',
}

type view struct {
	screen  tcell.Screen
	session *scanplay.Session
	layout  scanplay.Layout
}

func newView(s *scanplay.Session) (*view, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	if err := screen.Init(); err != nil {
		return nil, err
	}
	v := &view{screen: screen, session: s}
	v.resize()
	return v, nil
}

func (v *view) resize() {
	w, h := v.screen.Size()
	// Row 0 and 1 hold the status line.
	v.layout = scanplay.Layout{Width: float64(w), Height: float64(max(1, h-2))}
}

func (v *view) cell(x, y float64) (int, int) {
	return int(math.Round(v.layout.X(x))), int(math.Round(v.layout.Y(y))) + 2
}

func style(c color.RGBA) tcell.Style {
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
}

func (v *view) draw() {
	v.screen.Clear()
	e := v.session.Engine()
	w, _ := v.screen.Size()

	_, ly := v.cell(0, e.LinePosition())
	lineStyle := style(scanplay.ScanLine)
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, ly, '─', nil, lineStyle)
	}

	notes := e.CurrentNotes()
	for i := len(notes) - 1; i >= 0; i-- {
		n := notes[i]
		if e.IsRemoved(n.Index) {
			continue
		}
		c := scanplay.Colors(n.Type, n.Direction)
		x, y := v.cell(n.X, n.Y)
		if n.Type == beatmap.NoteHold {
			_, hy := v.cell(n.X, n.HoldY)
			lo, hi := min(y, hy), max(y, hy)
			for row := lo; row <= hi; row++ {
				v.screen.SetContent(x, row, '│', nil, style(c.Ring))
			}
		}
		st := style(c.Inner)
		if n.PageIndex != e.CurrentPageIndex() {
			st = st.Dim(true)
		}
		if e.IsHolding(n) {
			st = st.Bold(true).Reverse(true)
		}
		v.screen.SetContent(x, y, noteRunes[n.Type], nil, st)
	}

	status := strings.Split(v.session.Status().String(), "\n")
	for row, line := range status {
		if row > 1 {
			break
		}
		for col, r := range []rune(line) {
			v.screen.SetContent(col, row, r, nil, tcell.StyleDefault.Bold(row == 0))
		}
	}
	v.screen.Show()
}

// handleKey returns false when the user quits.
func (v *view) handleKey(ev *tcell.EventKey) bool {
	s := v.session
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyRight:
		s.Seek(s.Position() + 5000)
	case tcell.KeyUp:
		_ = s.SetRate(s.Rate() + 0.25)
	case tcell.KeyDown:
		if s.Rate() > 0.25 {
			_ = s.SetRate(s.Rate() - 0.25)
		}
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return false
		case ' ':
			if s.Playing() {
				s.Pause()
			} else {
				_ = s.Play()
			}
		}
	}
	return true
}

// pollEvents forwards screen events until the screen is finalized or done
// is closed, then closes events.
func pollEvents(screen tcell.Screen, events chan<- tcell.Event, done <-chan struct{}) {
	defer close(events)
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

func (v *view) run(fps float64) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go pollEvents(v.screen, events, done)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if !v.handleKey(ev) {
					return
				}
			case *tcell.EventResize:
				v.resize()
				v.screen.Sync()
			}
		case <-ticker.C:
			v.session.Update()
			v.draw()
		}
	}
}

func main() {
	var (
		audioPath  = flag.String("audio", "", "music file (.mp3 or .wav)")
		judgeDelay = flag.Float64("judge-delay", 0, "late judge window (ticks or ms, by dialect)")
		fps        = flag.Float64("fps", 30, "redraw rate")
		cue        = flag.Bool("cue", true, "play a click for each removed note")
	)
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("usage: scanplay_tui [flags] beatmap")
	}
	raw, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}

	opts := []scanplay.SessionOption{scanplay.WithJudgeDelay(*judgeDelay), scanplay.WithHitCue(*cue)}
	if *audioPath != "" {
		f, err := os.Open(*audioPath)
		if err != nil {
			log.Fatal(err)
		}
		track, err := intaudio.NewTrack(f, *audioPath, tuiSampleRate, intaudio.DefaultCueParams())
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, scanplay.WithClock(track))
	}
	s, err := scanplay.NewSession(raw, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	v, err := newView(s)
	if err != nil {
		log.Fatal(err)
	}
	defer v.screen.Fini()
	if err := s.Play(); err != nil {
		v.screen.Fini()
		log.Fatal(err)
	}
	v.run(*fps)
}
