package main

import (
	"math"
	"math/cmplx"
	"sync/atomic"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	fftSize    = 2048
	ringBufLen = 16384
)

// analyzer keeps the most recent mono output for the scope and spectrum.
// The audio goroutine is the only writer; the UI reads without locking and
// may see a partly updated block.
type analyzer struct {
	sampleRate int
	ring       []atomic.Uint32
	writePos   atomic.Int64
}

func newAnalyzer(sampleRate int) *analyzer {
	return &analyzer{
		sampleRate: sampleRate,
		ring:       make([]atomic.Uint32, ringBufLen),
	}
}

// Tap is called from the audio thread.
func (a *analyzer) Tap(samples []float32) {
	pos := a.writePos.Load()
	for i := 0; i+1 < len(samples); i += 2 {
		mono := (samples[i] + samples[i+1]) * 0.5
		a.ring[pos%ringBufLen].Store(math.Float32bits(mono))
		pos++
	}
	a.writePos.Store(pos)
}

// Snapshot copies the newest n samples into dst, growing it if needed.
func (a *analyzer) Snapshot(dst []float32, n int) []float32 {
	n = min(n, ringBufLen)
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	start := a.writePos.Load() - int64(n)
	for i := range dst {
		idx := (start + int64(i)) % ringBufLen
		if idx < 0 {
			idx += ringBufLen
		}
		dst[i] = math.Float32frombits(a.ring[idx].Load())
	}
	return dst
}

// spectrumBars returns numBars log-frequency magnitudes in 0..1 from the last
// fftSize samples, covering 20 Hz to maxHz.
func spectrumBars(samples []float32, numBars, sampleRate int, maxHz float64) []float64 {
	bars := make([]float64, numBars)
	if len(samples) < fftSize || numBars <= 0 {
		return bars
	}
	buf := make([]float64, fftSize)
	for i := range buf {
		buf[i] = float64(samples[len(samples)-fftSize+i])
	}
	window.Apply(buf, window.Hann)
	bins := fft.FFTReal(buf)

	halfFFT := fftSize / 2
	binHz := float64(sampleRate) / fftSize
	minBin := max(1, int(20/binHz))
	maxBin := min(halfFFT, int(maxHz/binHz))
	logMin := math.Log(float64(minBin))
	logMax := math.Log(float64(maxBin))

	for i := range bars {
		frac0 := float64(i) / float64(numBars)
		frac1 := float64(i+1) / float64(numBars)
		binStart := int(math.Exp(logMin + frac0*(logMax-logMin)))
		binEnd := int(math.Exp(logMin + frac1*(logMax-logMin)))
		if binEnd <= binStart {
			binEnd = binStart + 1
		}
		binEnd = min(binEnd, halfFFT)

		peak := 0.0
		for b := binStart; b < binEnd; b++ {
			peak = max(peak, cmplx.Abs(bins[b]))
		}
		// Normalise so a full-scale sine reads 0 dB, then map -80..0 dB.
		db := 20 * math.Log10(peak/(fftSize/4)+1e-10)
		bars[i] = clamp((db+80)/80, 0, 1)
	}
	return bars
}
