package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/engine"
	"github.com/cbegin/polysynth-go/internal/patch"
	"github.com/cbegin/polysynth-go/internal/script"
)

var errQuit = errors.New("quit")

type repl struct {
	ctx   context.Context
	synth *polysynth.Synth
	out   io.Writer
}

func newREPL(ctx context.Context, s *polysynth.Synth, out io.Writer) *repl {
	return &repl{ctx: ctx, synth: s, out: out}
}

type command struct {
	name    string
	usage   string
	run     func(*repl, []string) error
	minArgs int
	maxArgs int // -1 for no limit
}

var commands []command

func init() {
	commands = []command{
		{"on", "on <note>...", onCommand, 1, -1},
		{"off", "off <note>...", offCommand, 1, -1},
		{"play", "play <note> <seconds>", playCommand, 2, 2},
		{"panic", "panic", panicCommand, 0, 0},
		{"set", "set <param> <value>", setCommand, 2, 2},
		{"get", "get [param]", getCommand, 0, 1},
		{"params", "params", paramsCommand, 0, 0},
		{"wave", "wave <name>", waveCommand, 1, 1},
		{"preset", "preset <name>", presetCommand, 1, 1},
		{"presets", "presets", presetsCommand, 0, 0},
		{"voices", "voices", voicesCommand, 0, 0},
		{"save", "save <file>", saveCommand, 1, 1},
		{"load", "load <file>", loadCommand, 1, 1},
		{"run", "run <script.lua>", runCommand, 1, 1},
		{"help", "help", helpCommand, 0, 0},
		{"quit", "quit", quitCommand, 0, 0},
	}
}

func (r *repl) eval(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	if name == "exit" {
		name = "quit"
	}
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if len(args) < cmd.minArgs || (cmd.maxArgs >= 0 && len(args) > cmd.maxArgs) {
			return fmt.Errorf("usage: %s", cmd.usage)
		}
		if err := cmd.run(r, args); err != nil {
			if err == errQuit {
				return err
			}
			return fmt.Errorf("%s: %w", cmd.name, err)
		}
		return nil
	}
	return fmt.Errorf("unknown command %q (try help)", name)
}

func (r *repl) completer() *readline.PrefixCompleter {
	var params, presets []readline.PrefixCompleterInterface
	for _, p := range engine.ParamList() {
		params = append(params, readline.PcItem(p.Name))
	}
	for _, name := range effects.PresetNames() {
		presets = append(presets, readline.PcItem(name))
	}
	var items []readline.PrefixCompleterInterface
	for _, cmd := range commands {
		switch cmd.name {
		case "set", "get":
			items = append(items, readline.PcItem(cmd.name, params...))
		case "preset":
			items = append(items, readline.PcItem(cmd.name, presets...))
		case "wave":
			items = append(items, readline.PcItem(cmd.name,
				readline.PcItem("sine"), readline.PcItem("sawtooth"),
				readline.PcItem("square"), readline.PcItem("triangle")))
		default:
			items = append(items, readline.PcItem(cmd.name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// interactive reads commands from the terminal until quit, EOF or ^C on an
// empty line.
func (r *repl) interactive() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		AutoComplete:    r.completer(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := r.eval(line); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintln(r.out, err)
		}
	}
}

// batch runs one command per line from in. Errors are printed and skipped.
func (r *repl) batch(in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := r.eval(line); err != nil {
			if err == errQuit {
				return nil
			}
			fmt.Fprintln(r.out, err)
		}
	}
	return sc.Err()
}

func parsePitch(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	return script.ParseNote(s)
}

func onCommand(r *repl, args []string) error {
	for _, a := range args {
		p, err := parsePitch(a)
		if err != nil {
			return err
		}
		if err := r.synth.NoteOn(p); err != nil {
			return err
		}
	}
	return nil
}

func offCommand(r *repl, args []string) error {
	for _, a := range args {
		p, err := parsePitch(a)
		if err != nil {
			return err
		}
		if err := r.synth.NoteOff(p); err != nil {
			return err
		}
	}
	return nil
}

func playCommand(r *repl, args []string) error {
	p, err := parsePitch(args[0])
	if err != nil {
		return err
	}
	secs, err := strconv.ParseFloat(args[1], 64)
	if err != nil || secs < 0 {
		return fmt.Errorf("invalid duration %q", args[1])
	}
	if err := r.synth.NoteOn(p); err != nil {
		return err
	}
	waitErr := script.Live{Control: r.synth}.Wait(r.ctx, time.Duration(secs*float64(time.Second)))
	if err := r.synth.NoteOff(p); err != nil {
		return err
	}
	return waitErr
}

func panicCommand(r *repl, _ []string) error {
	return r.synth.AllNotesOff()
}

func setCommand(r *repl, args []string) error {
	v, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", args[1])
	}
	return r.synth.Set(args[0], v)
}

func getCommand(r *repl, args []string) error {
	names := args
	if len(names) == 0 {
		for _, p := range engine.ParamList() {
			names = append(names, p.Name)
		}
	}
	for _, name := range names {
		v, err := r.synth.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "%-10s %g\n", name, v)
	}
	return nil
}

func paramsCommand(r *repl, _ []string) error {
	for _, p := range engine.ParamList() {
		kind := "real"
		if p.Integer {
			kind = "index"
		}
		fmt.Fprintf(r.out, "%-10s %-5s [%g, %g]\n", p.Name, kind, p.Min, p.Max)
	}
	return nil
}

func waveCommand(r *repl, args []string) error {
	return r.synth.SetWaveByName(args[0])
}

func presetCommand(r *repl, args []string) error {
	return r.synth.SetPresetByName(args[0])
}

func presetsCommand(r *repl, _ []string) error {
	current := r.synth.Engine().ReverbPreset().String()
	for _, name := range effects.PresetNames() {
		mark := " "
		if name == current {
			mark = "*"
		}
		fmt.Fprintf(r.out, "%s %s\n", mark, name)
	}
	return nil
}

func voicesCommand(r *repl, _ []string) error {
	e := r.synth.Engine()
	fmt.Fprintf(r.out, "%d active, %d reports dropped\n", e.ActiveVoices(), e.DroppedReports())
	for i, v := range e.Voices() {
		state := "idle"
		switch {
		case v.Releasing:
			state = "release"
		case v.Active:
			state = "held"
		}
		fmt.Fprintf(r.out, "%2d  %-7s pitch %d\n", i, state, v.Pitch)
	}
	return nil
}

func saveCommand(r *repl, args []string) error {
	return patch.Save(args[0], patch.Capture(r.synth.Engine()))
}

func loadCommand(r *repl, args []string) error {
	e := r.synth.Engine()
	p, err := patch.Load(args[0], patch.Capture(e))
	if err != nil {
		return err
	}
	return p.Apply(e)
}

func runCommand(r *repl, args []string) error {
	return script.RunFile(r.ctx, args[0], script.Live{Control: r.synth})
}

func helpCommand(r *repl, _ []string) error {
	for _, cmd := range commands {
		fmt.Fprintln(r.out, cmd.usage)
	}
	fmt.Fprintln(r.out, "notes are pitch indices (57 = A4) or names such as C#4")
	return nil
}

func quitCommand(*repl, []string) error { return errQuit }
