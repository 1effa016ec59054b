package voice

import (
	"math"

	"github.com/cbegin/polysynth-go/internal/wavetable"
)

// Pitch range and tuning reference. Pitch indices are semitones, with
// ReferenceNote sounding at ReferenceFreq.
const (
	MinNote       = 12
	MaxNote       = 131
	ReferenceNote = 57
	ReferenceFreq = 440.0
)

// ClampPitch limits p to [MinNote, MaxNote].
func ClampPitch(p int) int {
	if p < MinNote {
		return MinNote
	}
	if p > MaxNote {
		return MaxNote
	}
	return p
}

// Frequency returns the equal-tempered frequency in Hz for pitch p (clamped).
func Frequency(p int) float64 {
	return ReferenceFreq * math.Pow(2, float64(ClampPitch(p)-ReferenceNote)/12)
}

// PhaseIncrement is the table step per sample for pitch p at sampleRate.
func PhaseIncrement(p int, sampleRate float64) float64 {
	return Frequency(p) / sampleRate * wavetable.TableLength
}
