package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cbegin/scanplay-go"
	intaudio "github.com/cbegin/scanplay-go/internal/audio"
	"github.com/cbegin/scanplay-go/internal/playback"
)

func main() {
	var (
		mode       = flag.String("mode", "simulate", "validate|simulate|export|play")
		path       = flag.String("file", "", "path to a beatmap (tick JSON or flat text)")
		dialect    = flag.String("dialect", "auto", "beatmap dialect: auto|flat|tick")
		judgeDelay = flag.Float64("judge-delay", 0, "late judge window (ticks or ms, by dialect)")
		audioPath  = flag.String("audio", "", "music file (.mp3 or .wav) to play along with")
		sampleRate = flag.Int("sample-rate", 48000, "output sample rate")
		rate       = flag.Float64("rate", 1, "playback rate")
		volume     = flag.Float64("volume", 1, "music and cue volume")
		fps        = flag.Float64("fps", 60, "simulation and update frame rate")
		outPath    = flag.String("out", "cues.wav", "cue track output for -mode export")
	)
	flag.Parse()

	if strings.TrimSpace(*path) == "" {
		log.Fatal("missing -file")
	}
	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatal(err)
	}
	d, err := parseDialect(*dialect)
	if err != nil {
		log.Fatal(err)
	}
	opts := []scanplay.SessionOption{scanplay.WithDialect(d), scanplay.WithJudgeDelay(*judgeDelay)}

	bm, err := scanplay.Load(raw, opts...)
	if err != nil {
		log.Fatalf("load %s: %v", *path, err)
	}
	for _, w := range bm.Warnings {
		log.Printf("warning: %s", w)
	}

	switch *mode {
	case "validate":
		fmt.Printf("%s: %s beatmap, %s notes, %d pages\n", *path, bm.Dialect,
			humanize.Comma(int64(len(bm.Notes))), pageCount(bm))
	case "simulate", "export":
		e, err := playback.New(bm, playback.Options{JudgeDelay: *judgeDelay})
		if err != nil {
			log.Fatal(err)
		}
		r, err := scanplay.Simulate(e, *fps, maxTime(bm))
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(r)
		if *mode == "export" {
			exportCues(r, *sampleRate, *outPath)
		}
	case "play":
		play(bm, opts, *audioPath, *sampleRate, *rate, *volume, *fps)
	default:
		log.Fatalf("invalid -mode %q (expected validate|simulate|export|play)", *mode)
	}
}

func parseDialect(name string) (scanplay.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return scanplay.DialectAuto, nil
	case "flat", "1":
		return scanplay.DialectFlat, nil
	case "tick", "2":
		return scanplay.DialectTick, nil
	default:
		return 0, fmt.Errorf("invalid -dialect %q (expected auto|flat|tick)", name)
	}
}

func pageCount(bm *scanplay.Beatmap) int {
	if bm.Dialect == scanplay.DialectTick {
		return len(bm.Pages)
	}
	if len(bm.Notes) == 0 {
		return 0
	}
	last := bm.Notes[len(bm.Notes)-1]
	return bm.PageIndex(last.End()+bm.PageShift) + 1
}

// maxTime bounds a simulation well past the last note so a beatmap that
// never finishes still terminates.
func maxTime(bm *scanplay.Beatmap) float64 {
	end := bm.StartOffsetTime
	if bm.Dialect == scanplay.DialectTick && len(bm.Pages) > 0 {
		end = bm.TickTime(bm.Pages[len(bm.Pages)-1].End)
	}
	for _, n := range bm.Notes {
		t := n.Time
		if bm.Dialect == scanplay.DialectFlat {
			t += n.Hold
		}
		end = max(end, t)
	}
	return end + 60000
}

func exportCues(r scanplay.Report, sampleRate int, out string) {
	seconds := r.End/1000 + 1
	samples, err := scanplay.RenderCueTrack(r.RemovalTimes, sampleRate, seconds)
	if err != nil {
		log.Fatal(err)
	}
	wav := scanplay.EncodeWAVFloat32LE(samples, sampleRate, 2)
	if err := os.WriteFile(out, wav, 0o644); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %d cues to %s (%s)\n", len(r.RemovalTimes), out, humanize.Bytes(uint64(len(wav))))
}

func play(bm *scanplay.Beatmap, opts []scanplay.SessionOption, audioPath string, sampleRate int, rate, volume, fps float64) {
	if audioPath != "" {
		f, err := os.Open(audioPath)
		if err != nil {
			log.Fatal(err)
		}
		track, err := intaudio.NewTrack(f, audioPath, sampleRate, intaudio.DefaultCueParams())
		if err != nil {
			log.Fatal(err)
		}
		opts = append(opts, scanplay.WithClock(track))
	}
	opts = append(opts, scanplay.WithRate(rate))
	s, err := scanplay.NewSessionFromBeatmap(bm, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	s.SetVolume(volume)
	if err := s.Play(); err != nil {
		log.Fatal(err)
	}

	frame := time.NewTicker(time.Duration(float64(time.Second) / fps))
	defer frame.Stop()
	report := time.NewTicker(time.Second)
	defer report.Stop()
	for {
		select {
		case <-frame.C:
			s.Update()
			if s.Status().Finished {
				fmt.Println(s.Status())
				return
			}
		case <-report.C:
			fmt.Println(s.Status())
		}
	}
}
