package polysynth

import (
	"cmp"
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"time"

	wav "github.com/youpy/go-wav"

	"github.com/cbegin/polysynth-go/internal/engine"
	"github.com/cbegin/polysynth-go/internal/script"
)

// RenderSamples renders seconds of interleaved stereo audio without a device.
// Each event is applied before the block that contains its timestamp, the
// same granularity live playback has.
func RenderSamples(p engine.Params, events []script.Event, seconds float64) ([]int16, error) {
	if seconds < 0 || math.IsNaN(seconds) {
		return nil, fmt.Errorf("render: invalid duration %v", seconds)
	}
	eng, err := engine.New(p)
	if err != nil {
		return nil, err
	}
	sr := eng.SampleRate()
	frames := int(seconds * float64(sr))
	block := eng.BlockFrames()
	blocks := (frames + block - 1) / block

	pending := slices.Clone(events)
	slices.SortStableFunc(pending, func(a, b script.Event) int {
		return cmp.Compare(a.At, b.At)
	})

	out := make([]int16, blocks*block*2)
	for b := 0; b < blocks; b++ {
		end := time.Duration(float64((b+1)*block) / float64(sr) * float64(time.Second))
		for len(pending) > 0 && pending[0].At < end {
			ev := pending[0]
			pending = pending[1:]
			if err := ev.Apply(eng); err != nil {
				return nil, fmt.Errorf("render: event at %v: %w", ev.At, err)
			}
		}
		if err := eng.RenderInt16(out[b*block*2 : (b+1)*block*2]); err != nil {
			return nil, err
		}
		drainReports(eng)
	}
	return out[:frames*2], nil
}

func drainReports(eng *engine.Engine) {
	for {
		select {
		case r := <-eng.Reports():
			slog.Debug("offline render report", "reason", r.Kind.String(), "pitch", r.Pitch)
		default:
			return
		}
	}
}

// RenderWAV renders like RenderSamples and writes a 16-bit stereo WAV file.
func RenderWAV(w io.Writer, p engine.Params, events []script.Event, seconds float64) error {
	pcm, err := RenderSamples(p, events, seconds)
	if err != nil {
		return err
	}
	return EncodeWAV(w, pcm, p.SampleRate)
}

// EncodeWAV writes interleaved stereo samples as a 16-bit PCM WAV stream.
func EncodeWAV(w io.Writer, pcm []int16, sampleRate int) error {
	frames := len(pcm) / 2
	samples := make([]wav.Sample, frames)
	for i := range samples {
		samples[i].Values[0] = int(pcm[2*i])
		samples[i].Values[1] = int(pcm[2*i+1])
	}
	ww := wav.NewWriter(w, uint32(frames), 2, uint32(sampleRate), 16)
	if err := ww.WriteSamples(samples); err != nil {
		return fmt.Errorf("render: write wav: %w", err)
	}
	return nil
}
