package effects

import "math"

// CompressorParams configures a Compressor.
type CompressorParams struct {
	ThresholdDB float64
	Ratio       float64
	KneeDB      float64
	AttackMs    float64
	ReleaseMs   float64
	MakeupDB    float64
}

// DefaultCompressorParams returns a gentle bus-compressor setting.
func DefaultCompressorParams() CompressorParams {
	return CompressorParams{
		ThresholdDB: -24,
		Ratio:       12,
		KneeDB:      30,
		AttackMs:    3,
		ReleaseMs:   250,
		MakeupDB:    0,
	}
}

// Compressor implements stereo-linked dynamic range compression with a soft
// knee. Both channels share one envelope so the stereo image does not shift.
type Compressor struct {
	params  CompressorParams
	slope   float64 // 1/ratio - 1
	attack  float32 // coefficient
	release float32 // coefficient
	makeup  float32
	env     float32
}

// NewCompressor creates a compressor effect. Ratios below 1 are treated as 1
// and negative times as instantaneous.
func NewCompressor(sampleRate int, p CompressorParams) *Compressor {
	if p.Ratio < 1 {
		p.Ratio = 1
	}
	if p.KneeDB < 0 {
		p.KneeDB = 0
	}
	return &Compressor{
		params:  p,
		slope:   1/p.Ratio - 1,
		attack:  smoothing(p.AttackMs, sampleRate),
		release: smoothing(p.ReleaseMs, sampleRate),
		makeup:  float32(dbToLinear(p.MakeupDB)),
	}
}

// Params returns the settings the compressor was built with.
func (c *Compressor) Params() CompressorParams { return c.params }

func (c *Compressor) Process(l, r float32) (float32, float32) {
	peak := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	// Envelope follower
	if peak > c.env {
		c.env += c.attack * (peak - c.env)
	} else {
		c.env += c.release * (peak - c.env)
	}
	g := c.computeGain(c.env) * c.makeup
	return l * g, r * g
}

// GainReductionDB reports the reduction currently applied (<= 0).
func (c *Compressor) GainReductionDB() float64 {
	return 20 * math.Log10(float64(c.computeGain(c.env)))
}

func (c *Compressor) computeGain(env float32) float32 {
	if env <= 0 || c.slope == 0 {
		return 1.0
	}
	over := 20*math.Log10(float64(env)) - c.params.ThresholdDB
	knee := c.params.KneeDB
	var reduction float64
	switch {
	case 2*over < -knee:
		return 1.0
	case knee > 0 && 2*math.Abs(over) <= knee:
		x := over + knee/2
		reduction = c.slope * x * x / (2 * knee)
	default:
		reduction = c.slope * over
	}
	return float32(dbToLinear(reduction))
}

func (c *Compressor) Reset() {
	c.env = 0
}

func smoothing(ms float64, sampleRate int) float32 {
	if ms <= 0 {
		return 1
	}
	return float32(1.0 - math.Exp(-1.0/(ms*float64(sampleRate)/1000.0)))
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
