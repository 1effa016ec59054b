package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/wavetable"
)

var (
	// ErrUnknownParam is returned for parameter names that do not exist.
	ErrUnknownParam = errors.New("unknown parameter")
	// ErrParamRange is returned for values outside a parameter's range.
	ErrParamRange = errors.New("parameter value out of range")
)

// ParamInfo describes one named control.
type ParamInfo struct {
	Name     string
	Min, Max float64
	Integer  bool // wave and reverb select by index
}

type paramSpec struct {
	ParamInfo
	get func(e *Engine) float64
	set func(e *Engine, v float64)
}

var paramSpecs = []paramSpec{
	{ParamInfo{Name: "amplitude", Min: 0, Max: 1},
		(*Engine).Amplitude, (*Engine).SetAmplitude},
	{ParamInfo{Name: "attack", Min: 0, Max: 10},
		(*Engine).Attack, (*Engine).SetAttack},
	{ParamInfo{Name: "decay", Min: 0, Max: 10},
		(*Engine).Decay, (*Engine).SetDecay},
	{ParamInfo{Name: "sustain", Min: 0, Max: 1},
		(*Engine).Sustain, (*Engine).SetSustain},
	{ParamInfo{Name: "release", Min: 0, Max: 10},
		(*Engine).Release, (*Engine).SetRelease},
	{ParamInfo{Name: "wave", Min: 0, Max: float64(wavetable.NumWaveTypes - 1), Integer: true},
		func(e *Engine) float64 { return float64(e.Wave()) },
		func(e *Engine, v float64) { e.SetWave(wavetable.WaveType(v)) }},
	{ParamInfo{Name: "pan", Min: -1, Max: 1},
		(*Engine).Pan, (*Engine).SetPan},
	{ParamInfo{Name: "cutoff", Min: 10, Max: 22050},
		(*Engine).Cutoff, (*Engine).SetCutoff},
	{ParamInfo{Name: "resonance", Min: -24, Max: 24},
		(*Engine).Resonance, (*Engine).SetResonance},
	{ParamInfo{Name: "reverb", Min: 0, Max: float64(effects.NumPresets - 1), Integer: true},
		func(e *Engine) float64 { return float64(e.ReverbPreset()) },
		func(e *Engine, v float64) { e.SetReverbPreset(effects.Preset(v)) }},
}

func lookupParam(name string) (*paramSpec, error) {
	for i := range paramSpecs {
		if paramSpecs[i].Name == name {
			return &paramSpecs[i], nil
		}
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownParam, name)
}

// ParamList describes every named control in display order.
func ParamList() []ParamInfo {
	out := make([]ParamInfo, len(paramSpecs))
	for i := range paramSpecs {
		out[i] = paramSpecs[i].ParamInfo
	}
	return out
}

// Lookup returns the description of a named control.
func Lookup(name string) (ParamInfo, error) {
	p, err := lookupParam(name)
	if err != nil {
		return ParamInfo{}, err
	}
	return p.ParamInfo, nil
}

// Set assigns a named control. Integer controls round to the nearest index.
func (e *Engine) Set(name string, v float64) error {
	p, err := lookupParam(name)
	if err != nil {
		return err
	}
	if v != v || v < p.Min || v > p.Max {
		return fmt.Errorf("set %s: %w: %v not in [%v, %v]", name, ErrParamRange, v, p.Min, p.Max)
	}
	if p.Integer {
		v = math.Round(v)
	}
	p.set(e, v)
	return nil
}

// Get reads a named control.
func (e *Engine) Get(name string) (float64, error) {
	p, err := lookupParam(name)
	if err != nil {
		return 0, err
	}
	return p.get(e), nil
}

// SetPresetByName selects a reverb preset by name.
func (e *Engine) SetPresetByName(name string) error {
	p, err := effects.ParsePreset(name)
	if err != nil {
		return err
	}
	e.SetReverbPreset(p)
	return nil
}

// SetWaveByName selects an oscillator table by name.
func (e *Engine) SetWaveByName(name string) error {
	w, err := wavetable.ParseWaveType(name)
	if err != nil {
		return err
	}
	e.SetWave(w)
	return nil
}
