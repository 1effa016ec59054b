package effects

import (
	"errors"
	"fmt"
	"strings"
)

// Preset selects one of the built-in reverb rooms.
type Preset int

const (
	PresetDefault Preset = iota
	PresetSmallHall1
	PresetSmallHall2
	PresetMediumHall1
	PresetMediumHall2
	PresetLargeHall1
	PresetLargeHall2
	PresetSmallRoom1
	PresetSmallRoom2
	PresetMediumRoom1
	PresetMediumRoom2
	PresetLargeRoom1
	PresetLargeRoom2
	PresetMediumER1
	PresetMediumER2
	PresetPlateHigh
	PresetPlateLow
	PresetLongReverb1
	PresetLongReverb2

	NumPresets
)

// ErrUnknownPreset is returned for reverb preset names that do not exist.
var ErrUnknownPreset = errors.New("unknown reverb preset")

type presetSettings struct {
	Name  string
	Size  float64 // delay length multiplier
	Room  float64 // 0..1, comb feedback
	Damp  float64 // 0..1, high-frequency loss in the tail
	Wet   float64
	Dry   float64
	Width float64
}

const maxPresetSize = 1.5

var presetTable = [NumPresets]presetSettings{
	PresetDefault:     {"default", 1.0, 0.5, 0.5, 0.15, 1.0, 1.0},
	PresetSmallHall1:  {"smallhall1", 0.8, 0.6, 0.4, 0.2, 0.9, 1.0},
	PresetSmallHall2:  {"smallhall2", 0.8, 0.7, 0.3, 0.25, 0.85, 1.0},
	PresetMediumHall1: {"mediumhall1", 1.0, 0.75, 0.4, 0.25, 0.85, 1.0},
	PresetMediumHall2: {"mediumhall2", 1.0, 0.82, 0.3, 0.3, 0.8, 1.0},
	PresetLargeHall1:  {"largehall1", 1.3, 0.85, 0.35, 0.3, 0.8, 1.0},
	PresetLargeHall2:  {"largehall2", 1.3, 0.9, 0.25, 0.35, 0.75, 1.0},
	PresetSmallRoom1:  {"smallroom1", 0.5, 0.4, 0.6, 0.15, 0.95, 0.8},
	PresetSmallRoom2:  {"smallroom2", 0.5, 0.5, 0.5, 0.2, 0.9, 0.8},
	PresetMediumRoom1: {"mediumroom1", 0.7, 0.5, 0.55, 0.18, 0.9, 0.9},
	PresetMediumRoom2: {"mediumroom2", 0.7, 0.6, 0.45, 0.22, 0.88, 0.9},
	PresetLargeRoom1:  {"largeroom1", 0.9, 0.65, 0.5, 0.22, 0.88, 1.0},
	PresetLargeRoom2:  {"largeroom2", 0.9, 0.72, 0.4, 0.26, 0.85, 1.0},
	PresetMediumER1:   {"mediumer1", 0.7, 0.3, 0.7, 0.12, 1.0, 0.6},
	PresetMediumER2:   {"mediumer2", 0.75, 0.35, 0.6, 0.15, 1.0, 0.7},
	PresetPlateHigh:   {"platehigh", 0.6, 0.8, 0.1, 0.25, 0.85, 1.0},
	PresetPlateLow:    {"platelow", 0.6, 0.8, 0.6, 0.25, 0.85, 1.0},
	PresetLongReverb1: {"longreverb1", maxPresetSize, 0.95, 0.3, 0.3, 0.8, 1.0},
	PresetLongReverb2: {"longreverb2", maxPresetSize, 0.98, 0.2, 0.35, 0.75, 1.0},
}

func (p Preset) Valid() bool { return p >= 0 && p < NumPresets }

func (p Preset) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Preset(%d)", int(p))
	}
	return presetTable[p].Name
}

// ParsePreset looks a preset up by name, ignoring case.
func ParsePreset(name string) (Preset, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i := range presetTable {
		if presetTable[i].Name == n {
			return Preset(i), nil
		}
	}
	return PresetDefault, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// PresetNames lists every preset in index order.
func PresetNames() []string {
	names := make([]string, NumPresets)
	for i := range presetTable {
		names[i] = presetTable[i].Name
	}
	return names
}
