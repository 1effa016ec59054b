// Package engine owns the audio-thread side of the synthesizer: it drains
// note events, mixes the voice pool, runs the effects chain and converts the
// result to 16-bit PCM.
package engine

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/cbegin/polysynth-go/internal/effects"
	"github.com/cbegin/polysynth-go/internal/envelope"
	"github.com/cbegin/polysynth-go/internal/voice"
	"github.com/cbegin/polysynth-go/internal/wavetable"
)

const (
	DefaultSampleRate   = 44100
	DefaultBufferFrames = 2048
	DefaultVoices       = 8
	DefaultQueueSize    = 256

	reportBuffer  = 64
	bytesPerFrame = 4
)

var (
	// ErrBufferSize is returned when a render buffer does not hold exactly
	// one block.
	ErrBufferSize = errors.New("render buffer size mismatch")
	// ErrQueueFull is returned when a note event cannot be queued.
	ErrQueueFull = errors.New("note event queue full")
)

// Bypass removes stages from the effects chain. Panning always runs.
type Bypass struct {
	Compressor bool
	Filter     bool
	Reverb     bool
}

// Params configures an Engine. Zero fields are filled from DefaultParams
// where a zero value would be meaningless.
type Params struct {
	SampleRate   int
	BufferFrames int // stereo frames per render call
	Voices       int
	QueueSize    int

	Amplitude float64 // per voice; 0 selects 1/Voices
	Attack    float64
	Decay     float64
	Sustain   float64
	Release   float64
	Wave      wavetable.WaveType

	Pan         float64
	Cutoff      float64
	Resonance   float64
	Reverb      effects.Preset
	Compressor  effects.CompressorParams
	Bypass      Bypass
	Interpolate bool

	// Tap, if set, receives every processed block as interleaved float32
	// samples on the audio goroutine. It must not retain the slice.
	Tap func(samples []float32)
}

// DefaultParams returns the stock patch.
func DefaultParams() Params {
	return Params{
		SampleRate:   DefaultSampleRate,
		BufferFrames: DefaultBufferFrames,
		Voices:       DefaultVoices,
		QueueSize:    DefaultQueueSize,
		Attack:       envelope.DefaultAttack,
		Decay:        envelope.DefaultDecay,
		Sustain:      envelope.DefaultSustain,
		Release:      envelope.DefaultRelease,
		Wave:         wavetable.Sine,
		Cutoff:       effects.DefaultCutoff,
		Resonance:    effects.DefaultResonance,
		Reverb:       effects.PresetDefault,
		Compressor:   effects.DefaultCompressorParams(),
	}
}

// VoiceState is a snapshot of one pool slot.
type VoiceState struct {
	Pitch     int
	Active    bool
	Releasing bool
}

// Engine renders fixed-size blocks. Render and its variants must be called
// from a single goroutine; every other method is safe for concurrent use.
type Engine struct {
	sampleRate int
	frames     int
	bank       *wavetable.Bank
	pool       *voice.Pool
	pan        *effects.Pan
	comp       *effects.Compressor
	lpf        *effects.LowPass
	reverb     *effects.Reverb
	chain      *effects.Chain
	mix        []float32
	queue      *eventQueue
	reports    chan Report
	tap        func([]float32)

	// control values, stored as float bits
	amplitude atomic.Uint64
	attack    atomic.Uint64
	decay     atomic.Uint64
	sustain   atomic.Uint64
	release   atomic.Uint64
	panPos    atomic.Uint64
	cutoff    atomic.Uint64
	resonance atomic.Uint64
	wave      atomic.Int32
	preset    atomic.Int32
	interp    atomic.Bool

	// published by the render goroutine
	activeVoices   atomic.Int32
	slots          []atomic.Uint32
	blocks         atomic.Uint64
	droppedReports atomic.Uint64
}

// New builds an engine. The wavetable bank, voices, effect delay lines and
// mix buffer are all allocated here; rendering allocates nothing.
func New(p Params) (*Engine, error) {
	if p.SampleRate <= 0 {
		return nil, fmt.Errorf("engine: sample rate must be positive, got %d", p.SampleRate)
	}
	if p.BufferFrames <= 0 {
		return nil, fmt.Errorf("engine: buffer frames must be positive, got %d", p.BufferFrames)
	}
	if p.Voices <= 0 {
		return nil, fmt.Errorf("engine: voice count must be positive, got %d", p.Voices)
	}
	if p.QueueSize <= 0 {
		p.QueueSize = DefaultQueueSize
	}
	if p.Amplitude <= 0 {
		p.Amplitude = 1 / float64(p.Voices)
	}
	if !p.Wave.Valid() {
		return nil, fmt.Errorf("engine: %w: %d", wavetable.ErrUnknownWave, p.Wave)
	}
	if !p.Reverb.Valid() {
		return nil, fmt.Errorf("engine: %w: %d", effects.ErrUnknownPreset, p.Reverb)
	}

	e := &Engine{
		sampleRate: p.SampleRate,
		frames:     p.BufferFrames,
		bank:       wavetable.NewBank(p.SampleRate, voice.ReferenceFreq),
		mix:        make([]float32, p.BufferFrames*2),
		queue:      newEventQueue(nextPowerOfTwo(p.QueueSize)),
		reports:    make(chan Report, reportBuffer),
		tap:        p.Tap,
		slots:      make([]atomic.Uint32, p.Voices),
	}
	e.pool = voice.NewPool(p.Voices, e.bank, p.SampleRate, float32(p.Amplitude))
	e.pan = effects.NewPan(p.Pan)
	e.comp = effects.NewCompressor(p.SampleRate, p.Compressor)
	e.lpf = effects.NewLowPass(p.SampleRate, p.Cutoff, p.Resonance)
	e.reverb = effects.NewReverb(p.SampleRate, p.Reverb)

	e.chain = effects.NewChain(e.pan)
	if !p.Bypass.Compressor {
		e.chain.Add(e.comp)
	}
	if !p.Bypass.Filter {
		e.chain.Add(e.lpf)
	}
	if !p.Bypass.Reverb {
		e.chain.Add(e.reverb)
	}

	e.SetAmplitude(p.Amplitude)
	e.SetAttack(p.Attack)
	e.SetDecay(p.Decay)
	e.SetSustain(p.Sustain)
	e.SetRelease(p.Release)
	e.SetWave(p.Wave)
	e.SetPan(p.Pan)
	e.SetCutoff(p.Cutoff)
	e.SetResonance(p.Resonance)
	e.SetReverbPreset(p.Reverb)
	e.SetInterpolate(p.Interpolate)
	e.applyControls()
	return e, nil
}

func (e *Engine) SampleRate() int { return e.sampleRate }

// BlockFrames is the number of stereo frames every render call must fill.
func (e *Engine) BlockFrames() int { return e.frames }

// BlockBytes is the size of one block of 16-bit little-endian stereo PCM.
func (e *Engine) BlockBytes() int { return e.frames * bytesPerFrame }

// Reports delivers polyphony and note-off problems. Reports are dropped
// when the channel is full.
func (e *Engine) Reports() <-chan Report { return e.reports }

// DroppedReports counts reports discarded because nobody was reading.
func (e *Engine) DroppedReports() uint64 { return e.droppedReports.Load() }

// NoteOn queues a note start for the next block.
func (e *Engine) NoteOn(pitch int) error {
	return e.enqueue(noteEvent{kind: eventNoteOn, pitch: int32(pitch)})
}

// NoteOff queues a note release for the next block.
func (e *Engine) NoteOff(pitch int) error {
	return e.enqueue(noteEvent{kind: eventNoteOff, pitch: int32(pitch)})
}

// AllNotesOff queues a release of every sounding voice.
func (e *Engine) AllNotesOff() error {
	return e.enqueue(noteEvent{kind: eventAllNotesOff})
}

func (e *Engine) enqueue(ev noteEvent) error {
	if e.queue.push(ev) {
		return nil
	}
	e.report(QueueFull, int(ev.pitch))
	return ErrQueueFull
}

// Pending returns the number of queued, unprocessed note events.
func (e *Engine) Pending() int { return e.queue.len() }

// Render fills out with one block of interleaved stereo signed 16-bit
// little-endian PCM. Samples outside [-1, 1] wrap rather than clip.
func (e *Engine) Render(out []byte) error {
	if len(out) != e.BlockBytes() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrBufferSize, len(out), e.BlockBytes())
	}
	e.process()
	for i, s := range e.mix {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(toInt16(s)))
	}
	return nil
}

// RenderInt16 is Render for callers that take native int16 samples.
func (e *Engine) RenderInt16(out []int16) error {
	if len(out) != len(e.mix) {
		return fmt.Errorf("%w: got %d samples, want %d", ErrBufferSize, len(out), len(e.mix))
	}
	e.process()
	for i, s := range e.mix {
		out[i] = toInt16(s)
	}
	return nil
}

// RenderFloat writes the processed block before integer conversion.
func (e *Engine) RenderFloat(out []float32) error {
	if len(out) != len(e.mix) {
		return fmt.Errorf("%w: got %d samples, want %d", ErrBufferSize, len(out), len(e.mix))
	}
	e.process()
	copy(out, e.mix)
	return nil
}

func (e *Engine) process() {
	e.drainEvents()
	e.applyControls()

	clear(e.mix)
	e.pool.AddSamples(e.mix)
	e.chain.ProcessInterleaved(e.mix)

	e.publish()
	if e.tap != nil {
		e.tap(e.mix)
	}
}

func (e *Engine) drainEvents() {
	for {
		ev, ok := e.queue.pop()
		if !ok {
			return
		}
		switch ev.kind {
		case eventNoteOn:
			if _, err := e.pool.Allocate(int(ev.pitch)); err != nil {
				e.report(PolyphonyExhausted, int(ev.pitch))
			}
		case eventNoteOff:
			if _, err := e.pool.Release(int(ev.pitch)); err != nil {
				e.report(NoteOffUnmatched, int(ev.pitch))
			}
		case eventAllNotesOff:
			e.pool.ReleaseAll()
		}
	}
}

// applyControls copies the control values into the voices and effects.
// Filter and reverb only recompute when their settings actually changed.
func (e *Engine) applyControls() {
	e.pool.SetEnvelope(e.Attack(), e.Decay(), e.Sustain(), e.Release())
	e.pool.SetAmplitude(float32(e.Amplitude()))
	e.pool.SetWave(e.Wave())
	e.pool.SetInterpolate(e.interp.Load())
	e.pan.SetPosition(e.Pan())
	e.lpf.Set(e.Cutoff(), e.Resonance())
	e.reverb.SetPreset(e.ReverbPreset())
}

func (e *Engine) publish() {
	active := 0
	for i := range e.slots {
		v := e.pool.Voice(i)
		var state uint32
		if v.Active() {
			active++
			state |= 1
		}
		if v.Releasing() {
			state |= 2
		}
		state |= uint32(v.Pitch()) << 2
		e.slots[i].Store(state)
	}
	e.activeVoices.Store(int32(active))
	e.blocks.Add(1)
}

// ActiveVoices is the number of audible voices after the last block.
func (e *Engine) ActiveVoices() int { return int(e.activeVoices.Load()) }

// Voices snapshots every slot as of the last block.
func (e *Engine) Voices() []VoiceState {
	out := make([]VoiceState, len(e.slots))
	for i := range e.slots {
		s := e.slots[i].Load()
		out[i] = VoiceState{Pitch: int(s >> 2), Active: s&1 != 0, Releasing: s&2 != 0}
	}
	return out
}

// Blocks counts rendered blocks.
func (e *Engine) Blocks() uint64 { return e.blocks.Load() }

// --- parameters ---

func (e *Engine) SetAmplitude(v float64) { storeFloat(&e.amplitude, nonNegative(v)) }
func (e *Engine) SetAttack(v float64)    { storeFloat(&e.attack, nonNegative(v)) }
func (e *Engine) SetDecay(v float64)     { storeFloat(&e.decay, nonNegative(v)) }
func (e *Engine) SetRelease(v float64)   { storeFloat(&e.release, nonNegative(v)) }
func (e *Engine) SetSustain(v float64)   { storeFloat(&e.sustain, clamp(v, 0, 1)) }

// SetPan positions the mix, -1 hard left to 1 hard right.
func (e *Engine) SetPan(v float64) {
	if v != v {
		v = 0
	}
	storeFloat(&e.panPos, clamp(v, -1, 1))
}

// SetResonance sets the low-pass resonance in dB.
func (e *Engine) SetResonance(db float64) {
	if db != db {
		db = 0
	}
	storeFloat(&e.resonance, db)
}

// SetCutoff sets the low-pass corner in Hz. Values at or above Nyquist
// disable filtering.
func (e *Engine) SetCutoff(hz float64) {
	if hz != hz || hz < 1 {
		hz = 1
	}
	storeFloat(&e.cutoff, hz)
}

// SetWave selects the oscillator table. Unknown types are ignored.
func (e *Engine) SetWave(w wavetable.WaveType) {
	if w.Valid() {
		e.wave.Store(int32(w))
	}
}

// SetReverbPreset selects a reverb room. Unknown presets are ignored.
func (e *Engine) SetReverbPreset(p effects.Preset) {
	if p.Valid() {
		e.preset.Store(int32(p))
	}
}

// SetInterpolate toggles linear interpolation of table reads.
func (e *Engine) SetInterpolate(on bool) { e.interp.Store(on) }

func (e *Engine) Amplitude() float64           { return loadFloat(&e.amplitude) }
func (e *Engine) Attack() float64              { return loadFloat(&e.attack) }
func (e *Engine) Decay() float64               { return loadFloat(&e.decay) }
func (e *Engine) Sustain() float64             { return loadFloat(&e.sustain) }
func (e *Engine) Release() float64             { return loadFloat(&e.release) }
func (e *Engine) Pan() float64                 { return loadFloat(&e.panPos) }
func (e *Engine) Cutoff() float64              { return loadFloat(&e.cutoff) }
func (e *Engine) Resonance() float64           { return loadFloat(&e.resonance) }
func (e *Engine) Wave() wavetable.WaveType     { return wavetable.WaveType(e.wave.Load()) }
func (e *Engine) ReverbPreset() effects.Preset { return effects.Preset(e.preset.Load()) }
func (e *Engine) Interpolate() bool            { return e.interp.Load() }

// --- internal helpers ---

func storeFloat(a *atomic.Uint64, v float64) { a.Store(math.Float64bits(v)) }
func loadFloat(a *atomic.Uint64) float64     { return math.Float64frombits(a.Load()) }

// toInt16 truncates toward zero; out-of-range samples wrap.
func toInt16(s float32) int16 {
	return int16(int32(s * 32767))
}

func nonNegative(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v != v {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
