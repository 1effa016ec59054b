package wavetable

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const twoPi = math.Pi * 2

// TableLength is the number of samples in one cycle of every table.
const TableLength = 1024

// WaveType selects one of the built-in single-cycle waveforms.
type WaveType int

const (
	Sine WaveType = iota
	Sawtooth
	Square
	Triangle

	NumWaveTypes
)

// ErrUnknownWave is returned when a waveform name or index is not recognised.
var ErrUnknownWave = errors.New("unknown wave type")

var waveNames = [NumWaveTypes]string{"sine", "sawtooth", "square", "triangle"}

func (w WaveType) String() string {
	if w < 0 || w >= NumWaveTypes {
		return fmt.Sprintf("WaveType(%d)", int(w))
	}
	return waveNames[w]
}

// Valid reports whether w names one of the built-in tables.
func (w WaveType) Valid() bool {
	return w >= 0 && w < NumWaveTypes
}

// ParseWaveType accepts a waveform name ("saw" is an alias for "sawtooth").
func ParseWaveType(s string) (WaveType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "saw" {
		name = "sawtooth"
	}
	for i, n := range waveNames {
		if n == name {
			return WaveType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWave, s)
}

// Table holds one cycle of a waveform.
type Table [TableLength]float32

// Bank is the immutable set of band-limited tables shared by all voices.
type Bank struct {
	harmonics int
	tables    [NumWaveTypes]Table
}

// NewBank builds every table once. The harmonic count is chosen so that a
// tone at referenceFreq stays below Nyquist.
func NewBank(sampleRate int, referenceFreq float64) *Bank {
	b := &Bank{harmonics: Harmonics(sampleRate, referenceFreq)}
	for w := WaveType(0); w < NumWaveTypes; w++ {
		b.tables[w] = Generate(w, b.harmonics)
	}
	return b
}

// Harmonics returns floor(sampleRate / 2 / referenceFreq), at least 1.
func Harmonics(sampleRate int, referenceFreq float64) int {
	if referenceFreq <= 0 {
		return 1
	}
	n := int(math.Floor(float64(sampleRate) / 2 / referenceFreq))
	if n < 1 {
		n = 1
	}
	return n
}

// HarmonicCount reports how many partials the additive tables were built with.
func (b *Bank) HarmonicCount() int { return b.harmonics }

// Table returns the table for w. Callers must treat it as read-only.
// Unknown types fall back to the sine table.
func (b *Bank) Table(w WaveType) *Table {
	if !w.Valid() {
		w = Sine
	}
	return &b.tables[w]
}

// Sample returns entry i (wrapped) of the table for w.
func (b *Bank) Sample(w WaveType, i int) float32 {
	i %= TableLength
	if i < 0 {
		i += TableLength
	}
	return b.Table(w)[i]
}

// Generate computes one band-limited cycle of w using up to harmonics partials.
func Generate(w WaveType, harmonics int) Table {
	var t Table
	if harmonics < 1 {
		harmonics = 1
	}
	for i := range t {
		x := twoPi * float64(i) / TableLength
		var v float64
		switch w {
		case Sawtooth:
			for k := 1; k <= harmonics; k++ {
				term := math.Sin(float64(k)*x) / float64(k)
				if k%2 == 0 {
					term = -term
				}
				v += term
			}
			v *= 2 / math.Pi
		case Square:
			for k := 1; k <= harmonics; k += 2 {
				v += math.Sin(float64(k)*x) / float64(k)
			}
			v *= 4 / math.Pi
		case Triangle:
			for k := 1; k <= harmonics; k += 2 {
				term := math.Sin(float64(k)*x) / float64(k*k)
				if (k-1)/2%2 == 1 {
					term = -term
				}
				v += term
			}
			v *= 8 / (math.Pi * math.Pi)
		default:
			v = math.Sin(x)
		}
		t[i] = float32(v)
	}
	return t
}
