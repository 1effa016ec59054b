package wavetable

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/mjibson/go-dsp/fft"
)

func spectrum(t *Table) []float64 {
	x := make([]float64, TableLength)
	for i, v := range t {
		x[i] = float64(v)
	}
	bins := fft.FFTReal(x)
	mags := make([]float64, TableLength/2)
	for i := range mags {
		mags[i] = cmplx.Abs(bins[i]) / (TableLength / 2)
	}
	return mags
}

func TestHarmonicsForReference(t *testing.T) {
	if got := Harmonics(44100, 440); got != 50 {
		t.Fatalf("Harmonics(44100, 440) = %d, want 50", got)
	}
	if got := Harmonics(8000, 10000); got != 1 {
		t.Fatalf("Harmonics below one partial = %d, want 1", got)
	}
}

func TestSineTable(t *testing.T) {
	b := NewBank(44100, 440)
	tab := b.Table(Sine)
	if tab[0] != 0 {
		t.Errorf("sine[0] = %v, want 0", tab[0])
	}
	if math.Abs(float64(tab[TableLength/4])-1) > 1e-6 {
		t.Errorf("sine[quarter] = %v, want 1", tab[TableLength/4])
	}
	if math.Abs(float64(tab[3*TableLength/4])+1) > 1e-6 {
		t.Errorf("sine[3/4] = %v, want -1", tab[3*TableLength/4])
	}
}

func TestSquareHasOnlyOddHarmonics(t *testing.T) {
	b := NewBank(44100, 440)
	mags := spectrum(b.Table(Square))
	fundamental := mags[1]
	if math.Abs(fundamental-4/math.Pi) > 1e-3 {
		t.Fatalf("square fundamental = %v, want %v", fundamental, 4/math.Pi)
	}
	for k := 2; k <= 20; k += 2 {
		if mags[k] > fundamental*1e-3 {
			t.Errorf("even harmonic %d = %v, want ~0", k, mags[k])
		}
	}
	if math.Abs(mags[3]-4/(3*math.Pi)) > 1e-3 {
		t.Errorf("third harmonic = %v, want %v", mags[3], 4/(3*math.Pi))
	}
}

func TestTablesAreBandLimited(t *testing.T) {
	b := NewBank(44100, 440)
	limit := b.HarmonicCount()
	for _, w := range []WaveType{Sawtooth, Square, Triangle} {
		mags := spectrum(b.Table(w))
		for k := limit + 1; k < len(mags); k++ {
			if mags[k] > 1e-4 {
				t.Errorf("%s: partial %d above limit %d has magnitude %v", w, k, limit, mags[k])
				break
			}
		}
	}
}

func TestSawtoothHarmonicFalloff(t *testing.T) {
	tab := Generate(Sawtooth, 50)
	mags := spectrum(&tab)
	for _, k := range []int{1, 2, 5, 10} {
		want := 2 / math.Pi / float64(k)
		if math.Abs(mags[k]-want) > 1e-3 {
			t.Errorf("saw harmonic %d = %v, want %v", k, mags[k], want)
		}
	}
}

func TestTriangleAlternatingSigns(t *testing.T) {
	tab := Generate(Triangle, 50)
	if tab[TableLength/4] <= 0.9 {
		t.Errorf("triangle peak = %v, want close to 1", tab[TableLength/4])
	}
	if tab[3*TableLength/4] >= -0.9 {
		t.Errorf("triangle trough = %v, want close to -1", tab[3*TableLength/4])
	}
}

func TestParseWaveType(t *testing.T) {
	cases := map[string]WaveType{"sine": Sine, "SAW": Sawtooth, "sawtooth": Sawtooth, " square ": Square, "triangle": Triangle}
	for in, want := range cases {
		got, err := ParseWaveType(in)
		if err != nil || got != want {
			t.Errorf("ParseWaveType(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseWaveType("noise"); !errors.Is(err, ErrUnknownWave) {
		t.Errorf("ParseWaveType(noise) error = %v, want ErrUnknownWave", err)
	}
}

func TestSampleWraps(t *testing.T) {
	b := NewBank(44100, 440)
	if b.Sample(Sine, TableLength+TableLength/4) != b.Sample(Sine, TableLength/4) {
		t.Error("Sample should wrap indices past the table end")
	}
	if b.Sample(Sine, -TableLength*3/4) != b.Sample(Sine, TableLength/4) {
		t.Error("Sample should wrap negative indices")
	}
	if b.Table(WaveType(42)) != b.Table(Sine) {
		t.Error("unknown wave type should fall back to sine")
	}
}
