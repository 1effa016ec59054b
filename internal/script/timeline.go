package script

import (
	"context"
	"fmt"
	"time"
)

// Control is the part of the engine a script drives.
type Control interface {
	NoteOn(pitch int) error
	NoteOff(pitch int) error
	AllNotesOff() error
	Set(name string, v float64) error
	SetPresetByName(name string) error
	SetWaveByName(name string) error
}

// Live plays a script in real time against a Control.
type Live struct {
	Control
}

// Wait sleeps for d or until ctx is done.
func (l Live) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// EventKind identifies a recorded action.
type EventKind int

const (
	NoteOn EventKind = iota
	NoteOff
	AllNotesOff
	SetParam
	SetPreset
	SetWave
)

// Event is one timestamped action on a Timeline.
type Event struct {
	At    time.Duration
	Kind  EventKind
	Pitch int
	Name  string
	Value float64
}

// Timeline records a script without waiting: Wait only advances the clock.
// Parameter names are checked against Validate, if set, so errors surface
// while recording rather than during rendering.
type Timeline struct {
	Events   []Event
	Validate func(name string, v float64) error
	now      time.Duration
}

func (t *Timeline) add(ev Event) error {
	ev.At = t.now
	t.Events = append(t.Events, ev)
	return nil
}

func (t *Timeline) NoteOn(p int) error  { return t.add(Event{Kind: NoteOn, Pitch: p}) }
func (t *Timeline) NoteOff(p int) error { return t.add(Event{Kind: NoteOff, Pitch: p}) }
func (t *Timeline) AllNotesOff() error  { return t.add(Event{Kind: AllNotesOff}) }

func (t *Timeline) Set(name string, v float64) error {
	if t.Validate != nil {
		if err := t.Validate(name, v); err != nil {
			return err
		}
	}
	return t.add(Event{Kind: SetParam, Name: name, Value: v})
}

func (t *Timeline) SetPresetByName(name string) error {
	return t.add(Event{Kind: SetPreset, Name: name})
}

func (t *Timeline) SetWaveByName(name string) error {
	return t.add(Event{Kind: SetWave, Name: name})
}

func (t *Timeline) Wait(_ context.Context, d time.Duration) error {
	t.now += d
	return nil
}

// Duration is the clock position after the last wait.
func (t *Timeline) Duration() time.Duration { return t.now }

// Apply performs ev on c.
func (ev Event) Apply(c Control) error {
	switch ev.Kind {
	case NoteOn:
		return c.NoteOn(ev.Pitch)
	case NoteOff:
		return c.NoteOff(ev.Pitch)
	case AllNotesOff:
		return c.AllNotesOff()
	case SetParam:
		return c.Set(ev.Name, ev.Value)
	case SetPreset:
		return c.SetPresetByName(ev.Name)
	case SetWave:
		return c.SetWaveByName(ev.Name)
	default:
		return fmt.Errorf("unknown event kind %d", ev.Kind)
	}
}
