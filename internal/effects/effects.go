// Package effects holds the post-mix stages: equal-power pan, a stereo-linked
// compressor, a resonant low-pass and a Freeverb-style reverb.
package effects

// Effector processes one stereo frame. Reset clears delay and detector
// history.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain runs effectors in series.
type Chain struct {
	stages []Effector
}

func NewChain(stages ...Effector) *Chain {
	return &Chain{stages: stages}
}

func (c *Chain) Add(e Effector) {
	c.stages = append(c.stages, e)
}

func (c *Chain) Len() int { return len(c.stages) }

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.stages {
		l, r = e.Process(l, r)
	}
	return l, r
}

// ProcessInterleaved runs every stage over an interleaved stereo block.
// Each stage sees the whole block before the next one starts.
func (c *Chain) ProcessInterleaved(buf []float32) {
	for _, e := range c.stages {
		for i := 0; i+1 < len(buf); i += 2 {
			buf[i], buf[i+1] = e.Process(buf[i], buf[i+1])
		}
	}
}

// Reset silences any tails left in the stages.
func (c *Chain) Reset() {
	for _, e := range c.stages {
		e.Reset()
	}
}
