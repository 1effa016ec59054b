// Package voice renders single wavetable oscillators and manages a fixed
// pool of them.
package voice

import (
	"github.com/cbegin/polysynth-go/internal/envelope"
	"github.com/cbegin/polysynth-go/internal/wavetable"
)

// Voice is one monophonic oscillator with its own envelope. Its clock and
// phase advance on every AddSamples call whether or not it is sounding.
type Voice struct {
	bank        *wavetable.Bank
	sampleRate  float64
	wave        wavetable.WaveType
	amplitude   float32
	interpolate bool

	pitch   int
	phase   float64
	samples int64
	env     envelope.Envelope
}

// New returns an idle voice reading from bank.
func New(bank *wavetable.Bank, sampleRate int, amplitude float32) *Voice {
	v := &Voice{}
	v.init(bank, sampleRate, amplitude)
	return v
}

func (v *Voice) init(bank *wavetable.Bank, sampleRate int, amplitude float32) {
	*v = Voice{
		bank:       bank,
		sampleRate: float64(sampleRate),
		wave:       wavetable.Sine,
		amplitude:  amplitude,
		pitch:      MinNote,
		env:        envelope.Default(),
	}
}

// Time returns the voice clock in seconds.
func (v *Voice) Time() float64 {
	return float64(v.samples) / v.sampleRate
}

// Phase returns the read position in [0, TableLength).
func (v *Voice) Phase() float64 { return v.phase }

// Pitch returns the last pitch this voice was started with.
func (v *Voice) Pitch() int { return v.pitch }

func (v *Voice) Wave() wavetable.WaveType { return v.wave }
func (v *Voice) Amplitude() float32       { return v.amplitude }

// Envelope exposes the voice envelope for parameter edits.
func (v *Voice) Envelope() *envelope.Envelope { return &v.env }

// NoteOn sets the pitch (clamped) and restarts the envelope at the current
// voice time. Phase is left alone so retriggers stay continuous.
func (v *Voice) NoteOn(pitch int) {
	v.pitch = ClampPitch(pitch)
	v.env.NoteOn(v.Time())
}

// NoteOff starts the release at the current voice time.
func (v *Voice) NoteOff() {
	v.env.NoteOff(v.Time())
}

// Active reports whether the envelope is producing sound now.
func (v *Voice) Active() bool { return v.env.Active(v.Time()) }

// Releasing reports whether the voice has been released since its last note-on.
func (v *Voice) Releasing() bool { return v.env.Releasing() }

// Sounding is true for an active voice that has not been released.
func (v *Voice) Sounding() bool { return v.Active() && !v.Releasing() }

func (v *Voice) SetWave(w wavetable.WaveType) {
	if w.Valid() {
		v.wave = w
	}
}

func (v *Voice) SetAmplitude(a float32) {
	if a < 0 {
		a = 0
	}
	v.amplitude = a
}

// SetInterpolate switches between truncating and linear table lookup.
func (v *Voice) SetInterpolate(on bool) { v.interpolate = on }

// AddSamples mixes frames into buf, an interleaved stereo buffer, writing the
// same value to both channels. The clock and phase advance by one step per
// frame even when the voice is silent. A release that has run out by the end
// of the block leaves the voice idle.
func (v *Voice) AddSamples(buf []float32) {
	table := v.bank.Table(v.wave)
	inc := PhaseIncrement(v.pitch, v.sampleRate)
	for i := 0; i+1 < len(buf); i += 2 {
		level := v.env.Amplitude(float64(v.samples) / v.sampleRate)
		if level > 0 {
			s := v.read(table) * v.amplitude * float32(level)
			buf[i] += s
			buf[i+1] += s
		}
		v.phase += inc
		for v.phase >= wavetable.TableLength {
			v.phase -= wavetable.TableLength
		}
		v.samples++
	}
	v.env.Expire(v.Time())
}

func (v *Voice) read(table *wavetable.Table) float32 {
	i0 := int(v.phase)
	if i0 >= wavetable.TableLength {
		i0 = wavetable.TableLength - 1
	}
	if !v.interpolate {
		return table[i0]
	}
	i1 := i0 + 1
	if i1 == wavetable.TableLength {
		i1 = 0
	}
	frac := float32(v.phase - float64(i0))
	return table[i0]*(1-frac) + table[i1]*frac
}
