package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"golang.org/x/term"

	"github.com/cbegin/polysynth-go"
	"github.com/cbegin/polysynth-go/internal/audio"
	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/engine"
	"github.com/cbegin/polysynth-go/internal/midiin"
	"github.com/cbegin/polysynth-go/internal/patch"
	"github.com/cbegin/polysynth-go/internal/script"
	"github.com/cbegin/polysynth-go/internal/wavetable"
)

// logger is replaced by initLogger before anything else runs.
var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func main() {
	var (
		backendName = flag.String("backend", "oto", "audio backend: ebiten|oto|portaudio|headless")
		buffer      = flag.Int("buffer", engine.DefaultBufferFrames, "stereo frames per audio block")
		voices      = flag.Int("voices", engine.DefaultVoices, "number of voices")
		waveName    = flag.String("wave", "sine", "oscillator table: sine|sawtooth|square|triangle")
		reverbName  = flag.String("reverb", "default", "reverb preset")
		interp      = flag.Bool("interp", false, "linear interpolation between table samples")
		patchPath   = flag.String("patch", "", "JSON patch to load at startup")
		midiPort    = flag.String("midi", "", `MIDI input port name ("-" for the first port)`)
		midiChannel = flag.Int("midi-channel", -1, "MIDI channel 0-15 (-1 = all)")
		listMIDI    = flag.Bool("list-midi", false, "list MIDI input ports and exit")
		scriptPath  = flag.String("script", "", "Lua performance script")
		renderPath  = flag.String("render", "", "render -script to this WAV file instead of playing")
		seconds     = flag.Float64("seconds", 0, "render length (0 = script length plus release tail)")
		debug       = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()
	initLogger(*debug)

	if *listMIDI {
		ports, err := midiin.Ports()
		if err != nil {
			log.Fatal(err)
		}
		for i, name := range ports {
			fmt.Printf("%d: %s\n", i, name)
		}
		return
	}

	params, err := buildParams(*buffer, *voices, *waveName, *reverbName, *interp, *patchPath)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *renderPath != "" {
		if err := renderOffline(ctx, params, *scriptPath, *renderPath, *seconds); err != nil {
			log.Fatal(err)
		}
		return
	}

	backend, err := audio.ParseBackend(*backendName)
	if err != nil {
		log.Fatal(err)
	}
	s, err := polysynth.New(
		polysynth.WithBackend(backend),
		polysynth.WithParams(params),
		polysynth.WithLogger(logger),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()
	if err := s.Start(); err != nil {
		log.Fatal(err)
	}

	if *midiPort != "" {
		name := *midiPort
		if name == "-" {
			name = ""
		}
		l := midiin.NewListener(s, midiin.WithChannel(*midiChannel), midiin.WithLogger(logger))
		if err := l.Open(name); err != nil {
			log.Fatal(err)
		}
		defer l.Close()
	}

	var scriptDone chan struct{}
	if *scriptPath != "" {
		scriptDone = make(chan struct{})
		go func() {
			defer close(scriptDone)
			err := script.RunFile(ctx, *scriptPath, script.Live{Control: s})
			switch {
			case err == nil:
				logger.Info("script finished", "path", *scriptPath)
			case errors.Is(err, context.Canceled):
			default:
				logger.Error("script failed", "path", *scriptPath, "err", err)
			}
		}()
	}

	r := newREPL(ctx, s, os.Stdout)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		if err := r.interactive(); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := r.batch(os.Stdin); err != nil {
		log.Fatal(err)
	}
	// Piped input has ended; keep sounding while a script or MIDI port is live.
	switch {
	case scriptDone != nil:
		select {
		case <-scriptDone:
		case <-ctx.Done():
		}
	case *midiPort != "":
		<-ctx.Done()
	}
	s.AllNotesOff()
	tail := time.Duration(s.Engine().Release() * float64(time.Second))
	select {
	case <-time.After(tail):
	case <-ctx.Done():
	}
}

func buildParams(buffer, voices int, waveName, reverbName string, interp bool, patchPath string) (engine.Params, error) {
	p := engine.DefaultParams()
	p.BufferFrames = buffer
	p.Voices = voices
	p.Interpolate = interp
	w, err := wavetable.ParseWaveType(waveName)
	if err != nil {
		return p, err
	}
	p.Wave = w
	r, err := effects.ParsePreset(reverbName)
	if err != nil {
		return p, err
	}
	p.Reverb = r
	if patchPath == "" {
		return p, nil
	}
	base := patch.Patch{
		Amplitude: 1 / float64(max(voices, 1)),
		Attack:    p.Attack,
		Decay:     p.Decay,
		Sustain:   p.Sustain,
		Release:   p.Release,
		Wave:      w.String(),
		Pan:       p.Pan,
		Cutoff:    p.Cutoff,
		Resonance: p.Resonance,
		Reverb:    r.String(),
	}
	loaded, err := patch.Load(patchPath, base)
	if err != nil {
		return p, err
	}
	logger.Info("patch loaded", "path", patchPath)
	return loaded.Params(p)
}

func renderOffline(ctx context.Context, params engine.Params, scriptPath, outPath string, seconds float64) error {
	if scriptPath == "" {
		return errors.New("-render needs -script")
	}
	probe, err := engine.New(params)
	if err != nil {
		return err
	}
	tl := script.Timeline{Validate: probe.Set}
	if err := script.RunFile(ctx, scriptPath, &tl); err != nil {
		return err
	}
	if seconds <= 0 {
		seconds = tl.Duration().Seconds() + probe.Release() + 1
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := polysynth.RenderWAV(f, params, tl.Events, seconds); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info("rendered", "path", outPath, "seconds", seconds, "events", len(tl.Events))
	return nil
}
