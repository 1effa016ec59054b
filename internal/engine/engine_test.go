package engine

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/wavetable"
)

func newTestEngine(t *testing.T, mutate func(p *Params)) *Engine {
	t.Helper()
	p := DefaultParams()
	if mutate != nil {
		mutate(&p)
	}
	e, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func decode(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func rms(samples []int16, offset, stride int) float64 {
	var sum float64
	n := 0
	for i := offset; i < len(samples); i += stride {
		v := float64(samples[i])
		sum += v * v
		n++
	}
	return math.Sqrt(sum / float64(n))
}

func TestNewValidatesParams(t *testing.T) {
	for name, mutate := range map[string]func(*Params){
		"sample rate": func(p *Params) { p.SampleRate = 0 },
		"frames":      func(p *Params) { p.BufferFrames = -1 },
		"voices":      func(p *Params) { p.Voices = 0 },
		"wave":        func(p *Params) { p.Wave = wavetable.WaveType(9) },
		"reverb":      func(p *Params) { p.Reverb = effects.Preset(-1) },
	} {
		p := DefaultParams()
		mutate(&p)
		if _, err := New(p); err == nil {
			t.Errorf("%s: New succeeded with invalid params", name)
		}
	}
}

func TestDefaults(t *testing.T) {
	e := newTestEngine(t, nil)
	if e.BlockFrames() != 2048 || e.BlockBytes() != 2048*4 {
		t.Fatalf("block = %d frames / %d bytes", e.BlockFrames(), e.BlockBytes())
	}
	if got := e.Amplitude(); got != 1.0/8 {
		t.Errorf("Amplitude = %v, want 1/8", got)
	}
	if e.Cutoff() != 500 || e.Resonance() != 5 {
		t.Errorf("filter = %v Hz / %v dB, want 500 / 5", e.Cutoff(), e.Resonance())
	}
	if e.Attack() != 0.5 || e.Decay() != 0.5 || e.Sustain() != 0.5 || e.Release() != 0.5 {
		t.Errorf("ADSR = %v %v %v %v", e.Attack(), e.Decay(), e.Sustain(), e.Release())
	}
	if e.Wave() != wavetable.Sine || e.ReverbPreset() != effects.PresetDefault || e.Pan() != 0 {
		t.Errorf("wave/reverb/pan = %v %v %v", e.Wave(), e.ReverbPreset(), e.Pan())
	}
}

func TestRenderRejectsWrongSize(t *testing.T) {
	e := newTestEngine(t, func(p *Params) { p.BufferFrames = 64 })
	out := make([]byte, 64*4-4)
	for i := range out {
		out[i] = 0xAA
	}
	err := e.Render(out)
	if !errors.Is(err, ErrBufferSize) {
		t.Fatalf("Render error = %v, want ErrBufferSize", err)
	}
	if out[0] != 0xAA {
		t.Fatal("Render wrote into a mismatched buffer")
	}
	if e.Blocks() != 0 {
		t.Fatal("mismatched render should not advance the engine")
	}
	if err := e.RenderInt16(make([]int16, 10)); !errors.Is(err, ErrBufferSize) {
		t.Fatalf("RenderInt16 error = %v", err)
	}
	if err := e.RenderFloat(make([]float32, 10)); !errors.Is(err, ErrBufferSize) {
		t.Fatalf("RenderFloat error = %v", err)
	}
}

func TestSilenceWithoutNotes(t *testing.T) {
	e := newTestEngine(t, nil)
	out := make([]byte, e.BlockBytes())
	for i := 0; i < 3; i++ {
		if err := e.Render(out); err != nil {
			t.Fatal(err)
		}
		for j, b := range out {
			if b != 0 {
				t.Fatalf("block %d byte %d = %#x, want silence", i, j, b)
			}
		}
	}
}

func TestSingleSineLevel(t *testing.T) {
	e := newTestEngine(t, func(p *Params) {
		p.Amplitude = 1
		p.Bypass = Bypass{Compressor: true, Filter: true, Reverb: true}
	})
	if err := e.NoteOn(57); err != nil {
		t.Fatal(err)
	}
	out := make([]byte, e.BlockBytes())
	if err := e.Render(out); err != nil {
		t.Fatal(err)
	}
	samples := decode(out)

	// Centre pan scales each channel by sqrt(1/2) and the first block sits
	// inside the 0.5 s attack ramp, so RMS is 0.5 * (T/attack) / sqrt(3).
	block := float64(e.BlockFrames()) / float64(e.SampleRate())
	want := 0.5 * (block / 0.5) / math.Sqrt(3) * 32767
	for ch := 0; ch < 2; ch++ {
		got := rms(samples, ch, 2)
		if math.Abs(got-want)/want > 0.05 {
			t.Errorf("channel %d RMS = %.1f, want %.1f", ch, got, want)
		}
	}
	for i := 0; i < len(samples); i += 2 {
		if samples[i] != samples[i+1] {
			t.Fatalf("frame %d: centred mono voice differs between channels", i/2)
		}
	}
}

func TestHardLeftPan(t *testing.T) {
	e := newTestEngine(t, func(p *Params) {
		p.Pan = -1
		p.Bypass = Bypass{Compressor: true, Filter: true, Reverb: true}
	})
	e.NoteOn(60)
	out := make([]int16, e.BlockFrames()*2)
	if err := e.RenderInt16(out); err != nil {
		t.Fatal(err)
	}
	var left float64
	for i := 0; i < len(out); i += 2 {
		if out[i+1] != 0 {
			t.Fatalf("right channel frame %d = %d, want 0", i/2, out[i+1])
		}
		left += math.Abs(float64(out[i]))
	}
	if left == 0 {
		t.Fatal("left channel is silent")
	}
}

func TestNoteEventsApplyAtBlockStart(t *testing.T) {
	e := newTestEngine(t, func(p *Params) { p.BufferFrames = 256 })
	e.NoteOn(40)
	e.NoteOn(44)
	if e.Pending() != 2 || e.ActiveVoices() != 0 {
		t.Fatalf("before render: pending %d, active %d", e.Pending(), e.ActiveVoices())
	}
	out := make([]byte, e.BlockBytes())
	e.Render(out)
	if e.Pending() != 0 || e.ActiveVoices() != 2 {
		t.Fatalf("after render: pending %d, active %d", e.Pending(), e.ActiveVoices())
	}
	voices := e.Voices()
	if !voices[0].Active || voices[0].Pitch != 40 || !voices[1].Active || voices[1].Pitch != 44 {
		t.Fatalf("voices = %+v", voices[:2])
	}
	e.NoteOff(40)
	e.Render(out)
	if v := e.Voices()[0]; !v.Releasing || !v.Active {
		t.Fatalf("voice 0 after note-off = %+v, want active and releasing", v)
	}
}

func TestPolyphonyExhaustedReport(t *testing.T) {
	e := newTestEngine(t, func(p *Params) { p.BufferFrames = 128 })
	for i := 0; i < DefaultVoices+1; i++ {
		if err := e.NoteOn(48 + i); err != nil {
			t.Fatal(err)
		}
	}
	e.Render(make([]byte, e.BlockBytes()))
	if e.ActiveVoices() != DefaultVoices {
		t.Fatalf("ActiveVoices = %d, want %d", e.ActiveVoices(), DefaultVoices)
	}
	select {
	case r := <-e.Reports():
		if r.Kind != PolyphonyExhausted || r.Pitch != 48+DefaultVoices {
			t.Fatalf("report = %v", r)
		}
	default:
		t.Fatal("expected a polyphony report")
	}
}

func TestUnmatchedNoteOffReport(t *testing.T) {
	e := newTestEngine(t, func(p *Params) { p.BufferFrames = 128 })
	e.NoteOn(50)
	e.NoteOff(50)
	e.NoteOff(50)
	e.NoteOff(70)
	e.Render(make([]byte, e.BlockBytes()))
	var got []Report
	for len(got) < 2 {
		select {
		case r := <-e.Reports():
			got = append(got, r)
		default:
			t.Fatalf("got %d reports, want 2", len(got))
		}
	}
	if got[0] != (Report{NoteOffUnmatched, 50}) || got[1] != (Report{NoteOffUnmatched, 70}) {
		t.Fatalf("reports = %v", got)
	}
}

func TestQueueFull(t *testing.T) {
	e := newTestEngine(t, func(p *Params) { p.QueueSize = 4 })
	for i := 0; i < 4; i++ {
		if err := e.NoteOn(40 + i); err != nil {
			t.Fatalf("NoteOn %d: %v", i, err)
		}
	}
	if err := e.NoteOn(60); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("fifth NoteOn = %v, want ErrQueueFull", err)
	}
	if r := <-e.Reports(); r.Kind != QueueFull || r.Pitch != 60 {
		t.Fatalf("report = %v", r)
	}
}

func TestReportsDropWhenUnread(t *testing.T) {
	e := newTestEngine(t, func(p *Params) { p.BufferFrames = 64; p.QueueSize = 128 })
	for i := 0; i < reportBuffer+10; i++ {
		e.NoteOff(30)
	}
	e.Render(make([]byte, e.BlockBytes()))
	if e.DroppedReports() != 10 {
		t.Fatalf("DroppedReports = %d, want 10", e.DroppedReports())
	}
}

func TestAllNotesOff(t *testing.T) {
	e := newTestEngine(t, func(p *Params) { p.BufferFrames = 128 })
	e.NoteOn(40)
	e.NoteOn(47)
	e.AllNotesOff()
	e.Render(make([]byte, e.BlockBytes()))
	for i, v := range e.Voices()[:2] {
		if !v.Releasing {
			t.Fatalf("voice %d not releasing after AllNotesOff", i)
		}
	}
}

func TestVoicesReturnToIdle(t *testing.T) {
	e := newTestEngine(t, func(p *Params) {
		p.BufferFrames = 512
		p.Attack, p.Decay, p.Release = 0.001, 0.001, 0.005
	})
	out := make([]byte, e.BlockBytes())
	e.NoteOn(57)
	e.Render(out)
	e.NoteOff(57)
	e.Render(out)
	e.Render(out)
	if e.ActiveVoices() != 0 {
		t.Fatalf("ActiveVoices = %d after release, want 0", e.ActiveVoices())
	}
}

func TestFinishedVoiceIgnoresLongerRelease(t *testing.T) {
	e := newTestEngine(t, func(p *Params) {
		p.BufferFrames = 1024
		p.Release = 0.1
		p.Bypass = Bypass{Compressor: true, Filter: true, Reverb: true}
	})
	out := make([]float32, 2*e.BlockFrames())
	e.NoteOn(57)
	for range 40 {
		e.RenderFloat(out)
	}
	e.NoteOff(57)
	for range 40 {
		e.RenderFloat(out)
	}
	if e.ActiveVoices() != 0 {
		t.Fatalf("ActiveVoices = %d after release, want 0", e.ActiveVoices())
	}
	e.SetRelease(5)
	e.RenderFloat(out)
	if e.ActiveVoices() != 0 {
		t.Fatalf("ActiveVoices = %d after raising release, want 0", e.ActiveVoices())
	}
	var peak float32
	for range 4 {
		e.RenderFloat(out)
		for _, s := range out {
			peak = max(peak, s, -s)
		}
	}
	if peak != 0 {
		t.Fatalf("peak = %v after raising release, want silence", peak)
	}
}

func TestToInt16Wraps(t *testing.T) {
	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{1, 32767},
		{-1, -32767},
		{0.5, 16383},
		{1.5, -16386},
	}
	for _, tt := range tests {
		if got := toInt16(tt.in); got != tt.want {
			t.Errorf("toInt16(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestControlChangesReachEffects(t *testing.T) {
	e := newTestEngine(t, func(p *Params) { p.BufferFrames = 64 })
	e.SetReverbPreset(effects.PresetPlateLow)
	e.SetCutoff(1200)
	e.SetPan(0.25)
	e.Render(make([]byte, e.BlockBytes()))
	if e.reverb.Preset() != effects.PresetPlateLow {
		t.Errorf("reverb preset = %v", e.reverb.Preset())
	}
	if e.lpf.Cutoff() != 1200 {
		t.Errorf("filter cutoff = %v", e.lpf.Cutoff())
	}
	if e.pan.Position() != 0.25 {
		t.Errorf("pan = %v", e.pan.Position())
	}
}

func TestTapSeesProcessedBlock(t *testing.T) {
	var calls, size int
	e := newTestEngine(t, func(p *Params) {
		p.BufferFrames = 64
		p.Tap = func(s []float32) { calls++; size = len(s) }
	})
	e.Render(make([]byte, e.BlockBytes()))
	if calls != 1 || size != 128 {
		t.Fatalf("tap calls = %d, size = %d", calls, size)
	}
}

func TestConcurrentControlAndRender(t *testing.T) {
	e := newTestEngine(t, func(p *Params) { p.BufferFrames = 64 })
	stop := make(chan struct{})
	var wg sync.WaitGroup
	for w := 0; w < 3; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				p := 40 + (i+w)%24
				e.NoteOn(p)
				e.SetCutoff(float64(200 + i%2000))
				e.SetPan(float64(i%3 - 1))
				e.Set("reverb", float64(i%int(effects.NumPresets)))
				e.NoteOff(p)
			}
		}(w)
	}
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-e.Reports():
			}
		}
	}()
	out := make([]byte, e.BlockBytes())
	for i := 0; i < 500; i++ {
		if err := e.Render(out); err != nil {
			t.Fatal(err)
		}
		_ = e.Voices()
	}
	close(stop)
	wg.Wait()
}
