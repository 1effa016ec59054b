// Package midiin feeds a MIDI input port into the synth control interface.
// A driver (for example rtmididrv) must be imported by the program.
package midiin

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// KeyOffset converts MIDI key numbers to pitch indices (key 69 is pitch 57).
const KeyOffset = 12

// Sink receives note and controller events.
type Sink interface {
	NoteOn(pitch int) error
	NoteOff(pitch int) error
	AllNotesOff() error
	Set(name string, v float64) error
}

// Mapping binds a controller number to a named parameter.
type Mapping struct {
	Param    string
	Min, Max float64
	Exp      bool // exponential scaling, for frequencies
}

// DefaultMappings follow the General MIDI sound-controller assignments.
func DefaultMappings() map[uint8]Mapping {
	return map[uint8]Mapping{
		7:  {Param: "amplitude", Min: 0, Max: 1},
		10: {Param: "pan", Min: -1, Max: 1},
		71: {Param: "resonance", Min: -12, Max: 24},
		72: {Param: "release", Min: 0, Max: 5},
		73: {Param: "attack", Min: 0, Max: 5},
		74: {Param: "cutoff", Min: 20, Max: 20000, Exp: true},
		75: {Param: "decay", Min: 0, Max: 5},
		79: {Param: "sustain", Min: 0, Max: 1},
	}
}

const (
	ccAllSoundOff = 120
	ccAllNotesOff = 123
)

// Scale maps a 7-bit controller value onto the mapping's range.
func (m Mapping) Scale(value uint8) float64 {
	x := float64(value) / 127
	if m.Exp && m.Min > 0 {
		return m.Min * math.Pow(m.Max/m.Min, x)
	}
	return m.Min + (m.Max-m.Min)*x
}

// Listener dispatches messages from one input port.
type Listener struct {
	sink     Sink
	logger   *slog.Logger
	mappings map[uint8]Mapping
	channel  int // -1 for omni

	mu   sync.Mutex
	in   drivers.In
	stop func()
}

// Option configures a Listener.
type Option func(*Listener)

// WithChannel restricts the listener to one MIDI channel (0-15).
func WithChannel(ch int) Option {
	return func(l *Listener) { l.channel = ch }
}

// WithMappings replaces the controller map.
func WithMappings(m map[uint8]Mapping) Option {
	return func(l *Listener) { l.mappings = m }
}

// WithLogger sets the logger used for dropped or unhandled messages.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) { l.logger = logger }
}

// NewListener builds a listener that is not yet attached to a port.
func NewListener(sink Sink, opts ...Option) *Listener {
	l := &Listener{
		sink:     sink,
		logger:   slog.Default(),
		mappings: DefaultMappings(),
		channel:  -1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Ports lists the available input port names.
func Ports() ([]string, error) {
	ins, err := drivers.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

// Open attaches to the named port, or the first port if name is empty.
func (l *Listener) Open(name string) error {
	ins, err := drivers.Ins()
	if err != nil {
		return fmt.Errorf("midi: list inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if name == "" || in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		if name == "" {
			return fmt.Errorf("midi: no input ports")
		}
		return fmt.Errorf("midi: input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("midi: open %q: %w", found.String(), err)
	}
	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		l.Handle(msg)
	}, midi.HandleError(func(err error) {
		l.logger.Warn("MIDI listener error, releasing all notes", "device", found.String(), "err", err)
		l.sink.AllNotesOff()
	}))
	if err != nil {
		found.Close()
		return fmt.Errorf("midi: listen %q: %w", found.String(), err)
	}
	l.mu.Lock()
	l.in, l.stop = found, stop
	l.mu.Unlock()
	l.logger.Info("MIDI input connected", "device", found.String())
	return nil
}

// Close stops listening and releases any held notes.
func (l *Listener) Close() error {
	l.mu.Lock()
	in, stop := l.in, l.stop
	l.in, l.stop = nil, nil
	l.mu.Unlock()
	if stop != nil {
		stop()
	}
	var err error
	if in != nil {
		err = in.Close()
	}
	l.sink.AllNotesOff()
	return err
}

// Handle applies one message to the sink.
func (l *Listener) Handle(msg midi.Message) {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if !l.accept(ch) {
			return
		}
		if err := l.sink.NoteOn(int(key) - KeyOffset); err != nil {
			l.logger.Warn("note-on dropped", "key", key, "err", err)
		}
	case msg.GetNoteEnd(&ch, &key):
		if !l.accept(ch) {
			return
		}
		if err := l.sink.NoteOff(int(key) - KeyOffset); err != nil {
			l.logger.Warn("note-off dropped", "key", key, "err", err)
		}
	case msg.GetControlChange(&ch, &cc, &val):
		if !l.accept(ch) {
			return
		}
		l.control(cc, val)
	default:
		l.logger.Debug("unhandled MIDI message", "msg", msg.String())
	}
}

func (l *Listener) control(cc, val uint8) {
	if cc == ccAllSoundOff || cc == ccAllNotesOff {
		l.sink.AllNotesOff()
		return
	}
	m, ok := l.mappings[cc]
	if !ok {
		l.logger.Debug("unmapped controller", "cc", cc, "value", val)
		return
	}
	if err := l.sink.Set(m.Param, m.Scale(val)); err != nil {
		l.logger.Warn("controller rejected", "cc", cc, "param", m.Param, "err", err)
	}
}

func (l *Listener) accept(ch uint8) bool {
	return l.channel < 0 || int(ch) == l.channel
}
