package voice

import (
	"errors"

	"github.com/cbegin/polysynth-go/internal/wavetable"
)

var (
	// ErrPolyphonyExhausted is returned when every voice is active.
	ErrPolyphonyExhausted = errors.New("not enough polyphony")
	// ErrNoteNotFound is returned when no sounding voice matches a note-off.
	ErrNoteNotFound = errors.New("no sounding voice for note-off")
)

// Pool is a fixed set of voices allocated first-fit by index. It is not safe
// for concurrent use; the engine owns it from the audio goroutine.
type Pool struct {
	voices []Voice
}

// NewPool creates n idle voices sharing bank.
func NewPool(n int, bank *wavetable.Bank, sampleRate int, amplitude float32) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{voices: make([]Voice, n)}
	for i := range p.voices {
		p.voices[i].init(bank, sampleRate, amplitude)
	}
	return p
}

// Len returns the number of voices.
func (p *Pool) Len() int { return len(p.voices) }

// Voice returns slot i.
func (p *Pool) Voice(i int) *Voice { return &p.voices[i] }

// Allocate starts a note. A voice already sounding this pitch is
// retriggered; otherwise the lowest-index inactive voice is used. It returns
// the slot index, or ErrPolyphonyExhausted with the note dropped.
func (p *Pool) Allocate(pitch int) (int, error) {
	pitch = ClampPitch(pitch)
	if i := p.find(pitch); i >= 0 {
		p.voices[i].NoteOn(pitch)
		return i, nil
	}
	for i := range p.voices {
		if !p.voices[i].Active() {
			p.voices[i].NoteOn(pitch)
			return i, nil
		}
	}
	return -1, ErrPolyphonyExhausted
}

// Release sends note-off to the first active, non-releasing voice at pitch.
func (p *Pool) Release(pitch int) (int, error) {
	i := p.find(ClampPitch(pitch))
	if i < 0 {
		return -1, ErrNoteNotFound
	}
	p.voices[i].NoteOff()
	return i, nil
}

// ReleaseAll releases every sounding voice.
func (p *Pool) ReleaseAll() {
	for i := range p.voices {
		if p.voices[i].Sounding() {
			p.voices[i].NoteOff()
		}
	}
}

func (p *Pool) find(pitch int) int {
	for i := range p.voices {
		v := &p.voices[i]
		if v.pitch == pitch && v.Sounding() {
			return i
		}
	}
	return -1
}

// ActiveCount returns how many voices are currently audible.
func (p *Pool) ActiveCount() int {
	n := 0
	for i := range p.voices {
		if p.voices[i].Active() {
			n++
		}
	}
	return n
}

// AddSamples mixes every voice into buf. All voices run, so idle clocks
// stay in step with the sounding ones.
func (p *Pool) AddSamples(buf []float32) {
	for i := range p.voices {
		p.voices[i].AddSamples(buf)
	}
}

// SetEnvelope applies ADSR settings to all voices.
func (p *Pool) SetEnvelope(attack, decay, sustain, release float64) {
	for i := range p.voices {
		p.voices[i].env.Set(attack, decay, sustain, release)
	}
}

func (p *Pool) SetWave(w wavetable.WaveType) {
	for i := range p.voices {
		p.voices[i].SetWave(w)
	}
}

func (p *Pool) SetAmplitude(a float32) {
	for i := range p.voices {
		p.voices[i].SetAmplitude(a)
	}
}

func (p *Pool) SetInterpolate(on bool) {
	for i := range p.voices {
		p.voices[i].SetInterpolate(on)
	}
}
