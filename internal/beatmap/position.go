package beatmap

import "math"

// Position returns the normalized scan position of pos within page.
// Direction +1 runs 0 -> 1 across the page, direction -1 runs 1 -> 0.
// A kind 0 position function is applied after the linear interpolation;
// any other kind was dropped with a warning at load time.
func Position(pos float64, page Page) float64 {
	span := page.End - page.Start
	offset := 0.0
	if span > 0 {
		offset = (pos - page.Start) / span
	}
	position := offset
	if page.Direction == -1 {
		position = 1 - offset
	}
	if fn := page.Function; fn != nil && fn.Kind == 0 && len(fn.Arguments) >= 2 {
		pageStart := (1 - fn.Arguments[0] - fn.Arguments[1]) / 2
		position = position*fn.Arguments[0] + pageStart
	}
	return position
}

// TimePerTick returns milliseconds per tick for a tempo value.
func TimePerTick(tempo float64) float64 {
	return tempo / TicksPerTempoUnit
}

// TickTime returns the audio time in ms at which tick is reached, following
// the tempo segments forward from tick 0. Tick k is reached after ticks
// 0..k-1 have each elapsed at the tempo active at their start.
func (b *Beatmap) TickTime(tick float64) float64 {
	t := b.StartOffsetTime
	if len(b.Tempos) == 0 {
		return t
	}
	for i, seg := range b.Tempos {
		from := max(float64(seg.StartTick), 0)
		if i == 0 {
			from = 0
		}
		if tick <= from {
			break
		}
		to := tick
		if i+1 < len(b.Tempos) {
			to = min(to, max(float64(b.Tempos[i+1].StartTick), 0))
		}
		if to <= from {
			continue
		}
		t += (to - from) * TimePerTick(seg.Value)
	}
	return t
}

func floorDiv(a, b float64) int {
	return int(math.Floor(a / b))
}
