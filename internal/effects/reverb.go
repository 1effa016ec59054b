package effects

// Reverb implements a stereo Schroeder/Moorer reverb: eight damped comb
// filters per channel in parallel, followed by four allpass filters in
// series. Delay lines are sized for the largest preset up front, so preset
// changes only move their read lengths.
type Reverb struct {
	sampleRate int
	preset     Preset
	combL      [numCombs]combFilter
	combR      [numCombs]combFilter
	allpassL   [numAllpass]allpassFilter
	allpassR   [numAllpass]allpassFilter
	wet1       float32
	wet2       float32
	dry        float32
}

const (
	numCombs     = 8
	numAllpass   = 4
	stereoSpread = 23
	fixedGain    = 0.015
	scaleWet     = 3
	scaleDamp    = 0.4
	scaleRoom    = 0.28
	offsetRoom   = 0.7
	tuningRate   = 44100
)

// Delay lengths in samples at 44.1 kHz.
var (
	combTuning    = [numCombs]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	allpassTuning = [numAllpass]int{556, 441, 341, 225}
)

type combFilter struct {
	buf      []float32
	n        int
	pos      int
	fb       float32
	damp1    float32
	damp2    float32
	filtered float32
}

type allpassFilter struct {
	buf []float32
	n   int
	pos int
	fb  float32
}

// NewReverb creates a reverb loaded with preset p.
func NewReverb(sampleRate int, p Preset) *Reverb {
	r := &Reverb{sampleRate: sampleRate, preset: -1}
	for i := range r.combL {
		r.combL[i].buf = make([]float32, delayCap(combTuning[i], sampleRate))
		r.combR[i].buf = make([]float32, delayCap(combTuning[i]+stereoSpread, sampleRate))
	}
	for i := range r.allpassL {
		r.allpassL[i] = allpassFilter{buf: make([]float32, delayCap(allpassTuning[i], sampleRate)), fb: 0.5}
		r.allpassR[i] = allpassFilter{buf: make([]float32, delayCap(allpassTuning[i]+stereoSpread, sampleRate)), fb: 0.5}
	}
	r.SetPreset(p)
	return r
}

// Preset returns the active preset.
func (r *Reverb) Preset() Preset { return r.preset }

// SetPreset switches to p, recomputing gains and delay lengths. Unknown
// presets select PresetDefault. Nothing is allocated.
func (r *Reverb) SetPreset(p Preset) {
	if !p.Valid() {
		p = PresetDefault
	}
	if p == r.preset {
		return
	}
	r.preset = p
	s := presetTable[p]

	fb := float32(s.Room*scaleRoom + offsetRoom)
	damp1 := float32(s.Damp * scaleDamp)
	for i := range r.combL {
		r.combL[i].configure(scaledLength(combTuning[i], s.Size, r.sampleRate), fb, damp1)
		r.combR[i].configure(scaledLength(combTuning[i]+stereoSpread, s.Size, r.sampleRate), fb, damp1)
	}
	for i := range r.allpassL {
		r.allpassL[i].configure(scaledLength(allpassTuning[i], s.Size, r.sampleRate))
		r.allpassR[i].configure(scaledLength(allpassTuning[i]+stereoSpread, s.Size, r.sampleRate))
	}
	wet := float32(s.Wet * scaleWet)
	width := float32(s.Width)
	r.wet1 = wet * (width/2 + 0.5)
	r.wet2 = wet * ((1 - width) / 2)
	r.dry = float32(s.Dry)
}

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	in := (l + r2) * fixedGain
	var outL, outR float32
	for i := range r.combL {
		outL += r.combL[i].process(in)
		outR += r.combR[i].process(in)
	}
	for i := range r.allpassL {
		outL = r.allpassL[i].process(outL)
		outR = r.allpassR[i].process(outR)
	}
	return outL*r.wet1 + outR*r.wet2 + l*r.dry, outR*r.wet1 + outL*r.wet2 + r2*r.dry
}

func (r *Reverb) Reset() {
	for i := range r.combL {
		r.combL[i].reset()
		r.combR[i].reset()
	}
	for i := range r.allpassL {
		r.allpassL[i].reset()
		r.allpassR[i].reset()
	}
}

func (c *combFilter) configure(n int, fb, damp1 float32) {
	c.n = clampLength(n, len(c.buf))
	if c.pos >= c.n {
		c.pos = 0
	}
	c.fb = fb
	c.damp1 = damp1
	c.damp2 = 1 - damp1
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.filtered = out*c.damp2 + c.filtered*c.damp1
	c.buf[c.pos] = in + c.filtered*c.fb
	c.pos++
	if c.pos >= c.n {
		c.pos = 0
	}
	return out
}

func (c *combFilter) reset() {
	clear(c.buf)
	c.pos = 0
	c.filtered = 0
}

func (a *allpassFilter) configure(n int) {
	a.n = clampLength(n, len(a.buf))
	if a.pos >= a.n {
		a.pos = 0
	}
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= a.n {
		a.pos = 0
	}
	return out
}

func (a *allpassFilter) reset() {
	clear(a.buf)
	a.pos = 0
}

func scaledLength(tuning int, size float64, sampleRate int) int {
	return int(float64(tuning) * size * float64(sampleRate) / tuningRate)
}

func delayCap(tuning, sampleRate int) int {
	return maxInt(scaledLength(tuning, maxPresetSize, sampleRate), 1)
}

func clampLength(n, capacity int) int {
	if n < 1 {
		return 1
	}
	if n > capacity {
		return capacity
	}
	return n
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
