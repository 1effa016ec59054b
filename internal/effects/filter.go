package effects

import "math"

// Default low-pass settings.
const (
	DefaultCutoff    = 500.0
	DefaultResonance = 5.0
	minCutoff        = 10.0
)

// LowPass is a stereo RBJ biquad low-pass filter. Resonance is given in dB
// and maps to Q = 10^(dB/20). Coefficients are only recomputed when a setting
// changes.
type LowPass struct {
	sampleRate float64
	cutoff     float64
	resonance  float64
	bypass     bool
	recomputes int

	b0, b1, b2, a1, a2 float64
	x1, x2, y1, y2     [2]float64
}

func NewLowPass(sampleRate int, cutoff, resonance float64) *LowPass {
	f := &LowPass{sampleRate: float64(sampleRate), cutoff: -1}
	f.Set(cutoff, resonance)
	return f
}

// Set updates cutoff (Hz) and resonance (dB) together.
func (f *LowPass) Set(cutoff, resonance float64) {
	if cutoff != cutoff || cutoff < minCutoff {
		cutoff = minCutoff
	}
	if resonance != resonance {
		resonance = 0
	}
	if cutoff == f.cutoff && resonance == f.resonance {
		return
	}
	f.cutoff = cutoff
	f.resonance = resonance
	f.update()
}

func (f *LowPass) SetCutoff(hz float64)    { f.Set(hz, f.resonance) }
func (f *LowPass) SetResonance(db float64) { f.Set(f.cutoff, db) }
func (f *LowPass) Cutoff() float64         { return f.cutoff }
func (f *LowPass) Resonance() float64      { return f.resonance }

// Q returns the quality factor derived from the resonance.
func (f *LowPass) Q() float64 { return math.Pow(10, f.resonance/20) }

func (f *LowPass) update() {
	f.recomputes++
	if f.cutoff >= f.sampleRate/2 {
		f.bypass = true
		return
	}
	f.bypass = false
	w0 := 2 * math.Pi * f.cutoff / f.sampleRate
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * f.Q())
	a0 := 1 + alpha
	f.b0 = (1 - cosw) / 2 / a0
	f.b1 = (1 - cosw) / a0
	f.b2 = f.b0
	f.a1 = -2 * cosw / a0
	f.a2 = (1 - alpha) / a0
}

func (f *LowPass) Process(l, r float32) (float32, float32) {
	if f.bypass {
		return l, r
	}
	return f.tick(0, l), f.tick(1, r)
}

func (f *LowPass) tick(ch int, in float32) float32 {
	x := float64(in)
	y := f.b0*x + f.b1*f.x1[ch] + f.b2*f.x2[ch] - f.a1*f.y1[ch] - f.a2*f.y2[ch]
	f.x2[ch], f.x1[ch] = f.x1[ch], x
	f.y2[ch], f.y1[ch] = f.y1[ch], y
	return float32(y)
}

func (f *LowPass) Reset() {
	f.x1, f.x2, f.y1, f.y2 = [2]float64{}, [2]float64{}, [2]float64{}, [2]float64{}
}
