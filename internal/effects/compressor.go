package effects

import "math"

// Compressor follows each channel's envelope and reduces gain above a
// threshold by a fixed ratio.
type Compressor struct {
	threshold float32
	ratio     float32
	attack    float32 // coefficient
	release   float32 // coefficient
	makeup    float32
	envL      float32
	envR      float32
}

// NewCompressor creates a compressor.
// thresholdDB: threshold in dB (e.g., -20)
// ratio: compression ratio (e.g., 4 for 4:1)
// attackMs, releaseMs: envelope times in ms
// makeupDB: makeup gain in dB
func NewCompressor(sampleRate int, thresholdDB, ratio, attackMs, releaseMs, makeupDB float32) *Compressor {
	sr := float64(sampleRate)
	return &Compressor{
		threshold: dbToGain(thresholdDB),
		ratio:     ratio,
		attack:    envelopeCoeff(attackMs, sr),
		release:   envelopeCoeff(releaseMs, sr),
		makeup:    dbToGain(makeupDB),
	}
}

// NewLimiter is the master-bus preset that keeps music plus stacked hit
// cues from clipping.
func NewLimiter(sampleRate int) *Compressor {
	return NewCompressor(sampleRate, -3, 20, 1, 80, 0)
}

func dbToGain(db float32) float32 {
	return float32(math.Pow(10, float64(db)/20))
}

func envelopeCoeff(ms float32, sampleRate float64) float32 {
	return float32(1.0 - math.Exp(-1.0/(float64(ms)*sampleRate/1000.0)))
}

func (c *Compressor) Process(l, r float32) (float32, float32) {
	c.envL = c.follow(c.envL, l)
	c.envR = c.follow(c.envR, r)
	return l * c.gain(c.envL) * c.makeup, r * c.gain(c.envR) * c.makeup
}

func (c *Compressor) follow(env, x float32) float32 {
	abs := float32(math.Abs(float64(x)))
	if abs > env {
		return env + c.attack*(abs-env)
	}
	return env + c.release*(abs-env)
}

func (c *Compressor) gain(env float32) float32 {
	if env <= c.threshold || c.threshold <= 0 {
		return 1.0
	}
	over := env / c.threshold
	return float32(math.Pow(float64(over), float64(1.0/c.ratio-1)))
}

func (c *Compressor) Reset() {
	c.envL = 0
	c.envR = 0
}
