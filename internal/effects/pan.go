package effects

import "math"

// Pan is an equal-power stereo panner. Position -1 is hard left, 0 centre,
// 1 hard right.
type Pan struct {
	position float64
	left     float32
	right    float32
}

func NewPan(position float64) *Pan {
	p := &Pan{position: math.NaN()}
	p.SetPosition(position)
	return p
}

// SetPosition clamps pos to [-1, 1] and recomputes the gains if it changed.
func (p *Pan) SetPosition(pos float64) {
	if pos != pos {
		pos = 0
	}
	pos = math.Max(-1, math.Min(1, pos))
	if pos == p.position {
		return
	}
	p.position = pos
	p.left = float32(math.Sqrt((1 - pos) / 2))
	p.right = float32(math.Sqrt((1 + pos) / 2))
}

func (p *Pan) Position() float64 { return p.position }

// Gains returns the current left and right multipliers.
func (p *Pan) Gains() (float32, float32) { return p.left, p.right }

func (p *Pan) Process(l, r float32) (float32, float32) {
	return l * p.left, r * p.right
}

func (p *Pan) Reset() {}
