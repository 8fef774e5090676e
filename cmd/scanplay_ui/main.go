package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/cbegin/scanplay-go"
	intaudio "github.com/cbegin/scanplay-go/internal/audio"
	"github.com/cbegin/scanplay-go/internal/beatmap"
)

const (
	playfieldH   = 720
	uiSampleRate = 48000

	// effectDur is the length of page-switch, hold and hit animations.
	effectDur = 100 * time.Millisecond
	seekStep  = 5000
	rateStep  = 0.25
)

var (
	whiteImage    = ebiten.NewImage(3, 3)
	whiteSubImage = whiteImage.SubImage(image.Rect(1, 1, 2, 2)).(*ebiten.Image)
)

func init() {
	whiteImage.Fill(color.White)
}

type hitEffect struct {
	note  beatmap.Note
	start time.Time
}

type game struct {
	session *scanplay.Session
	layout  scanplay.Layout
	title   string

	switchedAt map[int]time.Time
	holdAt     map[int]time.Time
	hits       []hitEffect

	showBorder bool
	status     string
}

func newGame(s *scanplay.Session, title string) *game {
	return &game{
		session:    s,
		layout:     scanplay.NewLayout(playfieldH),
		title:      title,
		switchedAt: make(map[int]time.Time),
		holdAt:     make(map[int]time.Time),
		showBorder: true,
	}
}

func (g *game) Update() error {
	g.handleKeys()
	now := time.Now()
	for _, n := range g.session.Update() {
		g.hits = append(g.hits, hitEffect{note: n, start: now})
	}
	kept := g.hits[:0]
	for _, h := range g.hits {
		if now.Sub(h.start) < effectDur {
			kept = append(kept, h)
		}
	}
	g.hits = kept
	return nil
}

func (g *game) handleKeys() {
	s := g.session
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if s.Playing() {
			s.Pause()
		} else if err := s.Play(); err != nil {
			g.status = err.Error()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyRight):
		s.Seek(s.Position() + seekStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyUp):
		g.setRate(s.Rate() + rateStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyDown):
		g.setRate(s.Rate() - rateStep)
	case inpututil.IsKeyJustPressed(ebiten.KeyB):
		g.showBorder = !g.showBorder
	}
}

func (g *game) setRate(rate float64) {
	if rate < rateStep {
		return
	}
	if err := g.session.SetRate(rate); err != nil {
		g.status = err.Error()
		return
	}
	g.status = ""
	if !g.session.UsingAudio() {
		g.status = "music muted: rate outside audio range"
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	l := g.layout
	if g.showBorder {
		screen.Fill(scanplay.Backdrop)
		m := float32(l.Margin())
		vector.StrokeRect(screen, m, m, float32(l.Width)-2*m, float32(l.Height)-2*m, 1, scanplay.Border, false)
	}

	e := g.session.Engine()
	now := time.Now()
	notes := e.CurrentNotes()
	// Later notes are drawn first so earlier ones stay on top.
	for i := len(notes) - 1; i >= 0; i-- {
		n := notes[i]
		if e.IsRemoved(n.Index) {
			continue
		}
		if e.MarkPageSwitched(n.Index) {
			g.switchedAt[n.Index] = now
		} else if e.MarkHolding(n.Index) {
			g.holdAt[n.Index] = now
		}
		g.drawNote(screen, n, g.noteScale(n, now), 1)
	}
	for _, h := range g.hits {
		p := progress(now, h.start)
		g.drawNote(screen, h.note, 1+0.2*p, 1-p)
	}

	y := float32(l.Y(e.LinePosition()))
	vector.StrokeLine(screen, 0, y, float32(l.Width), y, float32(l.LineWidth()), scanplay.ScanLine, true)

	msg := g.session.Status().String()
	if g.status != "" {
		msg += "\n" + g.status
	}
	ebitenutil.DebugPrintAt(screen, msg, 8, 8)
}

// noteScale returns the note's size and opacity factor: notes on the back
// page are smaller and dimmer until their page comes up.
func (g *game) noteScale(n beatmap.Note, now time.Time) float64 {
	scale := 0.8
	if at, ok := g.switchedAt[n.Index]; ok {
		scale = 0.8 + 0.2*progress(now, at)
	}
	if at, ok := g.holdAt[n.Index]; ok {
		scale *= 1 + 0.2*progress(now, at)
	}
	return scale
}

func progress(now, start time.Time) float64 {
	return min(1, float64(now.Sub(start))/float64(effectDur))
}

func (g *game) drawNote(screen *ebiten.Image, n beatmap.Note, scale, alpha float64) {
	l := g.layout
	e := g.session.Engine()
	c := scanplay.Colors(n.Type, n.Direction)
	x, y := l.Point(n)
	size := l.NoteSize()

	if n.Next != beatmap.NoLink {
		next := e.Note(n.Next)
		nx, ny := l.Point(next)
		vector.StrokeLine(screen, float32(x), float32(y), float32(nx), float32(ny), float32(size*0.4), fade(scanplay.DragTrail, alpha*0.6), true)
	}
	switch n.Type {
	case beatmap.NoteHold:
		hy := l.Y(n.HoldY)
		vector.StrokeLine(screen, float32(x), float32(y), float32(x), float32(hy), float32(size), fade(color.RGBA{0xff, 0xff, 0xff, 0xff}, alpha*0.5), false)
	case beatmap.NoteLongHold:
		vector.StrokeLine(screen, float32(x), 0, float32(x), float32(l.Height), float32(size), fade(c.Inner, alpha*0.5), false)
	}

	r := l.Radius(n.Type) * scale
	if n.Type == beatmap.NoteFlick {
		drawDiamond(screen, x, y, r*1.18, fade(color.RGBA{0xff, 0xff, 0xff, 0xff}, alpha))
		drawDiamond(screen, x, y, r, fade(c.Ring, alpha))
		drawDiamond(screen, x, y, r*0.82, fade(c.Inner, alpha))
		return
	}
	vector.DrawFilledCircle(screen, float32(x), float32(y), float32(r*0.85), fade(c.Inner, alpha), true)
	vector.DrawFilledCircle(screen, float32(x), float32(y), float32(r*0.35), fade(c.Center, alpha), true)
	vector.StrokeCircle(screen, float32(x), float32(y), float32(r*0.85), float32(r*0.15), fade(c.Ring, alpha), true)
	vector.StrokeCircle(screen, float32(x), float32(y), float32(r), float32(r*0.15), fade(color.RGBA{0xff, 0xff, 0xff, 0xff}, alpha), true)
}

func drawDiamond(screen *ebiten.Image, x, y, r float64, clr color.RGBA) {
	var path vector.Path
	path.MoveTo(float32(x), float32(y-r))
	path.LineTo(float32(x+r), float32(y))
	path.LineTo(float32(x), float32(y+r))
	path.LineTo(float32(x-r), float32(y))
	path.Close()
	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	for i := range vs {
		vs[i].SrcX, vs[i].SrcY = 1, 1
		vs[i].ColorR = float32(clr.R) / 0xff
		vs[i].ColorG = float32(clr.G) / 0xff
		vs[i].ColorB = float32(clr.B) / 0xff
		vs[i].ColorA = float32(clr.A) / 0xff
	}
	op := &ebiten.DrawTrianglesOptions{AntiAlias: true}
	screen.DrawTriangles(vs, is, whiteSubImage, op)
}

// fade scales a colour's premultiplied components by alpha.
func fade(c color.RGBA, alpha float64) color.RGBA {
	a := math.Max(0, math.Min(1, alpha))
	return color.RGBA{
		R: uint8(float64(c.R) * a),
		G: uint8(float64(c.G) * a),
		B: uint8(float64(c.B) * a),
		A: uint8(float64(c.A) * a),
	}
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	return int(g.layout.Width), int(g.layout.Height)
}

func main() {
	var (
		audioPath  = flag.String("audio", "", "music file (.mp3 or .wav)")
		version    = flag.Int("version", 0, "beatmap version: 1 flat text, 2 tick JSON, 0 detect")
		judgeDelay = flag.Float64("judge-delay", 0, "late judge window (ticks or ms, by dialect)")
		rate       = flag.Float64("rate", 1, "playback rate")
	)
	flag.Parse()
	if flag.NArg() < 1 {
		log.Fatal("usage: scanplay_ui [flags] beatmap")
	}
	path, err := filepath.Abs(flag.Arg(0))
	if err != nil {
		log.Fatalf("resolve %q: %v", flag.Arg(0), err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %q: %v", path, err)
	}

	opts := []scanplay.SessionOption{scanplay.WithJudgeDelay(*judgeDelay), scanplay.WithRate(*rate)}
	if *version != 0 {
		d, err := beatmap.DialectForVersion(*version)
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, scanplay.WithDialect(d))
	}
	if *audioPath != "" {
		f, err := os.Open(*audioPath)
		if err != nil {
			log.Fatal(err)
		}
		track, err := intaudio.NewTrack(f, *audioPath, uiSampleRate, intaudio.DefaultCueParams())
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
	for _, w := range s.Beatmap().Warnings {
		log.Printf("warning: %s", w)
	}
	if err := s.Play(); err != nil {
		log.Fatal(err)
	}

	g := newGame(s, filepath.Base(path))
	ebiten.SetWindowSize(int(g.layout.Width), int(g.layout.Height))
	ebiten.SetWindowTitle(fmt.Sprintf("scanplay - %s", g.title))
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
