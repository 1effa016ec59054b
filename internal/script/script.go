// Package script runs Lua performance scripts against the synth's control
// interface, either live or into a timeline for offline rendering.
//
// Scripts see these globals:
//
//	note_on(p)        p is a pitch index or a note name such as "A4"
//	note_off(p)
//	all_off()
//	play(p, seconds)  note_on, wait, note_off
//	wait(seconds)
//	set(name, value)  any engine parameter
//	preset(name)      reverb preset
//	wave(name)        oscillator table
//	pitch(name)       note name to pitch index
package script

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Target receives the actions a script performs.
type Target interface {
	Control
	Wait(ctx context.Context, d time.Duration) error
}

// Run executes src against t. Cancelling ctx aborts the script.
func Run(ctx context.Context, src string, t Target) error {
	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)
	register(ctx, L, t)
	if err := L.DoString(src); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// RunFile reads and executes a script file.
func RunFile(ctx context.Context, path string, t Target) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Run(ctx, string(src), t)
}

func register(ctx context.Context, L *lua.LState, t Target) {
	check := func(L *lua.LState, err error) {
		if err != nil {
			L.RaiseError("%s", err.Error())
		}
	}
	fns := map[string]lua.LGFunction{
		"note_on": func(L *lua.LState) int {
			check(L, t.NoteOn(checkPitch(L, 1)))
			return 0
		},
		"note_off": func(L *lua.LState) int {
			check(L, t.NoteOff(checkPitch(L, 1)))
			return 0
		},
		"all_off": func(L *lua.LState) int {
			check(L, t.AllNotesOff())
			return 0
		},
		"play": func(L *lua.LState) int {
			p := checkPitch(L, 1)
			d := checkSeconds(L, 2)
			check(L, t.NoteOn(p))
			check(L, t.Wait(ctx, d))
			check(L, t.NoteOff(p))
			return 0
		},
		"wait": func(L *lua.LState) int {
			check(L, t.Wait(ctx, checkSeconds(L, 1)))
			return 0
		},
		"set": func(L *lua.LState) int {
			check(L, t.Set(L.CheckString(1), float64(L.CheckNumber(2))))
			return 0
		},
		"preset": func(L *lua.LState) int {
			check(L, t.SetPresetByName(L.CheckString(1)))
			return 0
		},
		"wave": func(L *lua.LState) int {
			check(L, t.SetWaveByName(L.CheckString(1)))
			return 0
		},
		"pitch": func(L *lua.LState) int {
			L.Push(lua.LNumber(checkPitch(L, 1)))
			return 1
		},
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
}

func checkPitch(L *lua.LState, n int) int {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		return int(v)
	case lua.LString:
		p, err := ParseNote(string(v))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return p
	default:
		L.ArgError(n, "pitch or note name expected")
		return 0
	}
}

func checkSeconds(L *lua.LState, n int) time.Duration {
	s := float64(L.CheckNumber(n))
	if s < 0 || s != s {
		L.ArgError(n, "duration must not be negative")
	}
	return time.Duration(s * float64(time.Second))
}

var semitones = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseNote converts a note name ("C4", "f#3", "Bb2") to a pitch index, where
// A4 is the 440 Hz reference.
func ParseNote(name string) (int, error) {
	s := strings.TrimSpace(name)
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid note %q", name)
	}
	base, ok := semitones[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note %q", name)
	}
	rest := s[1:]
	switch rest[0] {
	case '#':
		base++
		rest = rest[1:]
	case 'b':
		base--
		rest = rest[1:]
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid note %q", name)
	}
	// MIDI numbering puts C4 at 60; pitch indices sit one octave lower.
	return (octave+1)*12 + base - 12, nil
}
