package polysynth

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cbegin/polysynth-go/internal/audio"
	"github.com/cbegin/polysynth-go/internal/engine"
)

func newHeadlessSynth(t *testing.T, opts ...Option) *Synth {
	t.Helper()
	base := []Option{
		WithBackend(audio.Headless),
		WithBufferFrames(256),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	s, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("new synth: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func waitFor(t *testing.T, ch <-chan Event, want EventKind) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("watch channel closed waiting for kind %d", want)
			}
			if ev.Kind == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for kind %d", want)
		}
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	if _, err := New(WithBackend("alsa")); !errors.Is(err, audio.ErrUnknownBackend) {
		t.Errorf("unknown backend err = %v", err)
	}
	if _, err := New(WithBackend(audio.Headless), WithVoices(0)); err == nil {
		t.Error("zero voices accepted")
	}
}

func TestOptionsReachEngine(t *testing.T) {
	s := newHeadlessSynth(t, WithVoices(3), WithQueueSize(16))
	if n := len(s.Engine().Voices()); n != 3 {
		t.Errorf("voices = %d, want 3", n)
	}
	if f := s.Engine().BlockFrames(); f != 256 {
		t.Errorf("block frames = %d, want 256", f)
	}
	if s.Backend() != audio.Headless {
		t.Errorf("backend = %s", s.Backend())
	}
}

func TestWithParamsKeepsTap(t *testing.T) {
	var taps atomic.Int32
	p := engine.DefaultParams()
	p.BufferFrames = 128
	s := newHeadlessSynth(t,
		WithSampleTap(func([]float32) { taps.Add(1) }),
		WithParams(p),
	)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for taps.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("sample tap never called")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if f := s.Engine().BlockFrames(); f != 128 {
		t.Errorf("block frames = %d, want 128", f)
	}
}

func TestStartStopEvents(t *testing.T) {
	s := newHeadlessSynth(t)
	events := s.Watch()
	if s.IsPlaying() {
		t.Fatal("playing before Start")
	}
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, EventStarted)
	if !s.IsPlaying() {
		t.Fatal("not playing after Start")
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, EventStopped)
	if s.IsPlaying() {
		t.Fatal("playing after Stop")
	}
}

func TestReportsReachWatch(t *testing.T) {
	s := newHeadlessSynth(t, WithVoices(1))
	events := s.Watch()
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	s.NoteOn(40)
	s.NoteOn(41)
	ev := waitFor(t, events, EventReport)
	if ev.Report.Kind != engine.PolyphonyExhausted || ev.Report.Pitch != 41 {
		t.Fatalf("report = %+v", ev.Report)
	}
	s.NoteOff(70)
	ev = waitFor(t, events, EventReport)
	if ev.Report.Kind != engine.NoteOffUnmatched || ev.Report.Pitch != 70 {
		t.Fatalf("report = %+v", ev.Report)
	}
}

func TestParameterPassThrough(t *testing.T) {
	s := newHeadlessSynth(t)
	if err := s.Set("cutoff", 1500); err != nil {
		t.Fatal(err)
	}
	if v, err := s.Get("cutoff"); err != nil || v != 1500 {
		t.Fatalf("cutoff = %v, %v", v, err)
	}
	if err := s.SetPresetByName("smallroom1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetWaveByName("square"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.Get("wave"); v != 2 {
		t.Errorf("wave = %v, want 2", v)
	}
	if err := s.Set("cutoff", -5); !errors.Is(err, engine.ErrParamRange) {
		t.Errorf("err = %v, want ErrParamRange", err)
	}
}

func TestCloseClosesWatch(t *testing.T) {
	s := newHeadlessSynth(t)
	events := s.Watch()
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	for range events {
	}
	if err := s.Start(); err == nil {
		t.Fatal("Start after Close succeeded")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestStopRacingClose(t *testing.T) {
	for range 20 {
		s := newHeadlessSynth(t)
		if err := s.Start(); err != nil {
			t.Fatal(err)
		}
		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); s.Stop() }()
		go func() { defer wg.Done(); s.Close() }()
		wg.Wait()
		if s.IsPlaying() {
			t.Fatal("synth still playing after Stop and Close")
		}
		if err := s.Stop(); err != nil {
			t.Fatalf("Stop after Close: %v", err)
		}
	}
}
