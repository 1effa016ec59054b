// Package patch saves and restores the user-editable synth controls as JSON.
package patch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/engine"
	"github.com/cbegin/polysynth-go/internal/wavetable"
)

// Patch is a snapshot of every control exposed to the user.
type Patch struct {
	Amplitude float64 `json:"amplitude"`
	Attack    float64 `json:"attack"`
	Decay     float64 `json:"decay"`
	Sustain   float64 `json:"sustain"`
	Release   float64 `json:"release"`
	Wave      string  `json:"wave"`
	Pan       float64 `json:"pan"`
	Cutoff    float64 `json:"cutoff"`
	Resonance float64 `json:"resonance"`
	Reverb    string  `json:"reverb"`
}

// Capture reads the current controls from e.
func Capture(e *engine.Engine) Patch {
	return Patch{
		Amplitude: e.Amplitude(),
		Attack:    e.Attack(),
		Decay:     e.Decay(),
		Sustain:   e.Sustain(),
		Release:   e.Release(),
		Wave:      e.Wave().String(),
		Pan:       e.Pan(),
		Cutoff:    e.Cutoff(),
		Resonance: e.Resonance(),
		Reverb:    e.ReverbPreset().String(),
	}
}

// Apply validates p and writes it to e. Nothing is changed if any field is
// invalid.
func (p Patch) Apply(e *engine.Engine) error {
	w, r, err := p.check()
	if err != nil {
		return err
	}
	for _, nv := range p.values() {
		if err := e.Set(nv.name, nv.v); err != nil {
			return fmt.Errorf("patch: %w", err)
		}
	}
	e.SetWave(w)
	e.SetReverbPreset(r)
	return nil
}

// Params returns base with the patch controls filled in, for building an
// engine directly from a saved patch.
func (p Patch) Params(base engine.Params) (engine.Params, error) {
	w, r, err := p.check()
	if err != nil {
		return base, err
	}
	base.Amplitude = p.Amplitude
	base.Attack = p.Attack
	base.Decay = p.Decay
	base.Sustain = p.Sustain
	base.Release = p.Release
	base.Wave = w
	base.Pan = p.Pan
	base.Cutoff = p.Cutoff
	base.Resonance = p.Resonance
	base.Reverb = r
	return base, nil
}

type namedValue struct {
	name string
	v    float64
}

func (p Patch) values() []namedValue {
	return []namedValue{
		{"amplitude", p.Amplitude},
		{"attack", p.Attack},
		{"decay", p.Decay},
		{"sustain", p.Sustain},
		{"release", p.Release},
		{"pan", p.Pan},
		{"cutoff", p.Cutoff},
		{"resonance", p.Resonance},
	}
}

func (p Patch) check() (wavetable.WaveType, effects.Preset, error) {
	w, err := wavetable.ParseWaveType(p.Wave)
	if err != nil {
		return 0, 0, fmt.Errorf("patch: %w", err)
	}
	r, err := effects.ParsePreset(p.Reverb)
	if err != nil {
		return 0, 0, fmt.Errorf("patch: %w", err)
	}
	for _, nv := range p.values() {
		info, err := engine.Lookup(nv.name)
		if err != nil {
			return 0, 0, fmt.Errorf("patch: %w", err)
		}
		if nv.v != nv.v || nv.v < info.Min || nv.v > info.Max {
			return 0, 0, fmt.Errorf("patch: %s: %w: %v", nv.name, engine.ErrParamRange, nv.v)
		}
	}
	return w, r, nil
}

// Decode reads a patch from JSON. Missing fields keep their values from base.
func Decode(r io.Reader, base Patch) (Patch, error) {
	p := base
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return Patch{}, fmt.Errorf("patch: decode: %w", err)
	}
	return p, nil
}

// Encode writes p as indented JSON.
func Encode(w io.Writer, p Patch) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}

// Load reads a patch file on top of base.
func Load(path string, base Patch) (Patch, error) {
	f, err := os.Open(path)
	if err != nil {
		return Patch{}, err
	}
	defer f.Close()
	return Decode(f, base)
}

// Save writes p to path.
func Save(path string, p Patch) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
