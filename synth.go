// Package polysynth is a polyphonic wavetable synthesizer. A Synth owns one
// engine and one audio output; note and parameter calls may come from any
// goroutine while the output pulls blocks from the engine.
package polysynth

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cbegin/polysynth-go/internal/audio"
	"github.com/cbegin/polysynth-go/internal/engine"
)

// EventKind classifies the values sent on Watch().
type EventKind int

const (
	EventStarted EventKind = iota
	EventStopped
	EventReport
)

// Event carries playback state changes and engine reports from Watch().
type Event struct {
	Kind   EventKind
	Report engine.Report // set for EventReport
}

const watchBuffer = 8

type Option func(*config)

type config struct {
	backend audio.Backend
	params  engine.Params
	logger  *slog.Logger
}

func defaultConfig() config {
	return config{
		backend: audio.Ebiten,
		params:  engine.DefaultParams(),
		logger:  slog.Default(),
	}
}

// WithBackend selects the audio output. The default is ebiten.
func WithBackend(b audio.Backend) Option {
	return func(cfg *config) {
		cfg.backend = b
	}
}

// WithParams replaces the whole engine configuration. Later options still
// apply on top of it.
func WithParams(p engine.Params) Option {
	return func(cfg *config) {
		tap := cfg.params.Tap
		cfg.params = p
		if cfg.params.Tap == nil {
			cfg.params.Tap = tap
		}
	}
}

func WithBufferFrames(frames int) Option {
	return func(cfg *config) {
		cfg.params.BufferFrames = frames
	}
}

func WithVoices(n int) Option {
	return func(cfg *config) {
		cfg.params.Voices = n
	}
}

func WithQueueSize(n int) Option {
	return func(cfg *config) {
		cfg.params.QueueSize = n
	}
}

// WithSampleTap installs a callback invoked with each processed stereo block.
// The callback runs on the audio thread; keep work brief and non-blocking.
func WithSampleTap(tap func([]float32)) Option {
	return func(cfg *config) {
		cfg.params.Tap = tap
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

type Synth struct {
	mu      sync.Mutex
	eng     *engine.Engine
	backend audio.Backend
	out     audio.Output
	logger  *slog.Logger

	eventCh   chan Event
	eventChMu sync.Mutex

	stop     chan struct{}
	pumpDone chan struct{}
	closed   bool
}

// New builds the engine and starts draining its reports. No audio device is
// opened until Start.
func New(opts ...Option) (*Synth, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if _, err := audio.ParseBackend(string(cfg.backend)); err != nil {
		return nil, err
	}
	eng, err := engine.New(cfg.params)
	if err != nil {
		return nil, err
	}
	s := &Synth{
		eng:      eng,
		backend:  cfg.backend,
		logger:   cfg.logger,
		stop:     make(chan struct{}),
		pumpDone: make(chan struct{}),
	}
	go s.pumpReports()
	return s, nil
}

func (s *Synth) pumpReports() {
	defer close(s.pumpDone)
	reports := s.eng.Reports()
	for {
		select {
		case <-s.stop:
			return
		case r := <-reports:
			s.logger.Warn("note event dropped", "reason", r.Kind.String(), "pitch", r.Pitch)
			s.sendEvent(Event{Kind: EventReport, Report: r})
		}
	}
}

// Engine exposes the underlying engine for stats and direct control.
func (s *Synth) Engine() *engine.Engine { return s.eng }

func (s *Synth) Backend() audio.Backend { return s.backend }

// Start opens the output on first use and begins playback.
func (s *Synth) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("synth closed")
	}
	if s.out == nil {
		out, err := audio.Open(s.backend, s.eng)
		if err != nil {
			return err
		}
		s.out = out
		s.logger.Info("audio output opened",
			"backend", string(s.backend),
			"sampleRate", s.eng.SampleRate(),
			"bufferFrames", s.eng.BlockFrames())
	}
	if s.out.IsPlaying() {
		return nil
	}
	if err := s.out.Play(); err != nil {
		return err
	}
	s.sendEvent(Event{Kind: EventStarted})
	return nil
}

// Stop pauses the output and releases every note. The output stays open.
func (s *Synth) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.out == nil || !s.out.IsPlaying() {
		return nil
	}
	s.eng.AllNotesOff()
	err := s.out.Pause()
	s.sendEvent(Event{Kind: EventStopped})
	return err
}

// Close stops playback, closes the output and the Watch channel.
func (s *Synth) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	out := s.out
	s.out = nil
	s.mu.Unlock()

	var err error
	if out != nil {
		if out.IsPlaying() {
			s.sendEvent(Event{Kind: EventStopped})
		}
		err = out.Close()
	}
	close(s.stop)
	<-s.pumpDone

	s.eventChMu.Lock()
	if s.eventCh != nil {
		close(s.eventCh)
		s.eventCh = nil
	}
	s.eventChMu.Unlock()
	return err
}

// IsPlaying reports whether the output is currently pulling audio.
func (s *Synth) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out != nil && s.out.IsPlaying()
}

// Watch returns a channel of playback events and engine reports. Events are
// dropped when the channel is full.
func (s *Synth) Watch() <-chan Event {
	s.eventChMu.Lock()
	defer s.eventChMu.Unlock()
	if s.eventCh == nil {
		s.eventCh = make(chan Event, watchBuffer)
	}
	return s.eventCh
}

func (s *Synth) sendEvent(ev Event) {
	s.eventChMu.Lock()
	defer s.eventChMu.Unlock()
	if s.eventCh == nil {
		return
	}
	select {
	case s.eventCh <- ev:
	default:
	}
}

func (s *Synth) NoteOn(pitch int) error  { return s.eng.NoteOn(pitch) }
func (s *Synth) NoteOff(pitch int) error { return s.eng.NoteOff(pitch) }
func (s *Synth) AllNotesOff() error      { return s.eng.AllNotesOff() }

func (s *Synth) Set(name string, v float64) error  { return s.eng.Set(name, v) }
func (s *Synth) Get(name string) (float64, error)  { return s.eng.Get(name) }
func (s *Synth) SetPresetByName(name string) error { return s.eng.SetPresetByName(name) }
func (s *Synth) SetWaveByName(name string) error   { return s.eng.SetWaveByName(name) }
