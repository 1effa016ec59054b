// Package envelope implements a time-based ADSR amplitude envelope.
//
// The envelope holds no running level. Its output is a pure function of the
// query time, the note-on time, and (once released) the note-off time and the
// level captured at note-off.
package envelope

// Stage identifies the segment an envelope is in at a given time.
type Stage int

const (
	Idle Stage = iota
	Attack
	Decay
	Sustain
	Release
)

func (s Stage) String() string {
	switch s {
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	default:
		return "idle"
	}
}

// Default stage settings applied by Default.
const (
	DefaultAttack  = 0.5
	DefaultDecay   = 0.5
	DefaultSustain = 0.5
	DefaultRelease = 0.5
)

// Envelope is an ADSR generator. Times are in seconds.
type Envelope struct {
	attack  float64
	decay   float64
	sustain float64
	release float64

	startTime    float64
	releaseTime  float64
	releaseLevel float64
}

// New returns an idle envelope with the given (clamped) settings.
func New(attack, decay, sustain, release float64) Envelope {
	e := Envelope{startTime: -1, releaseTime: -1}
	e.SetAttack(attack)
	e.SetDecay(decay)
	e.SetSustain(sustain)
	e.SetRelease(release)
	return e
}

// Default returns an idle envelope with every stage set to 0.5.
func Default() Envelope {
	return New(DefaultAttack, DefaultDecay, DefaultSustain, DefaultRelease)
}

func (e *Envelope) SetAttack(v float64)  { e.attack = nonNegative(v) }
func (e *Envelope) SetDecay(v float64)   { e.decay = nonNegative(v) }
func (e *Envelope) SetRelease(v float64) { e.release = nonNegative(v) }

// SetSustain sets the sustain level, clamped to [0, 1].
func (e *Envelope) SetSustain(v float64) {
	switch {
	case v < 0 || v != v:
		v = 0
	case v > 1:
		v = 1
	}
	e.sustain = v
}

func (e *Envelope) Attack() float64  { return e.attack }
func (e *Envelope) Decay() float64   { return e.decay }
func (e *Envelope) Sustain() float64 { return e.sustain }
func (e *Envelope) Release() float64 { return e.release }

// Set updates all four stages at once.
func (e *Envelope) Set(attack, decay, sustain, release float64) {
	e.SetAttack(attack)
	e.SetDecay(decay)
	e.SetSustain(sustain)
	e.SetRelease(release)
}

// NoteOn starts (or restarts) the envelope at now and clears any release.
func (e *Envelope) NoteOn(now float64) {
	e.startTime = now
	e.releaseTime = -1
	e.releaseLevel = 0
}

// NoteOff begins the release at now, capturing the current level so the
// release ramps down from wherever the envelope was. It is a no-op if the
// envelope was never triggered or is already releasing.
func (e *Envelope) NoteOff(now float64) {
	if e.startTime < 0 || e.releaseTime >= 0 {
		return
	}
	e.releaseLevel = e.held(now)
	e.releaseTime = now
}

// Triggered reports whether NoteOn has ever been called.
func (e *Envelope) Triggered() bool { return e.startTime >= 0 }

// Releasing reports whether NoteOff has been applied since the last NoteOn.
func (e *Envelope) Releasing() bool { return e.releaseTime >= 0 }

// ReleaseTime returns the note-off time, or -1 when not releasing.
func (e *Envelope) ReleaseTime() float64 { return e.releaseTime }

// Expire returns a released envelope to idle once its release has run out
// at now, so later release changes cannot revive it. It reports whether the
// envelope went idle.
func (e *Envelope) Expire(now float64) bool {
	if e.releaseTime < 0 || now < e.releaseTime+e.release {
		return false
	}
	e.startTime = -1
	e.releaseTime = -1
	e.releaseLevel = 0
	return true
}

// Active reports whether the envelope produces sound at now.
func (e *Envelope) Active(now float64) bool {
	if e.startTime < 0 {
		return false
	}
	if e.releaseTime < 0 {
		return true
	}
	return now < e.releaseTime+e.release
}

// Amplitude returns the envelope level in [0, 1] at now.
func (e *Envelope) Amplitude(now float64) float64 {
	if e.startTime < 0 || now < e.startTime {
		return 0
	}
	if e.releaseTime < 0 {
		return e.held(now)
	}
	if now < e.releaseTime {
		return e.held(now)
	}
	end := e.releaseTime + e.release
	if now >= end {
		return 0
	}
	return e.releaseLevel * (1 - (now-e.releaseTime)/e.release)
}

// Stage reports which segment the envelope is in at now.
func (e *Envelope) Stage(now float64) Stage {
	if !e.Active(now) || now < e.startTime {
		return Idle
	}
	if e.releaseTime >= 0 && now >= e.releaseTime {
		return Release
	}
	t := now - e.startTime
	if e.attack > 0 && t < e.attack {
		return Attack
	}
	t -= e.attack
	if e.decay > 0 && t < e.decay {
		return Decay
	}
	return Sustain
}

// held is the attack/decay/sustain level, ignoring any release.
func (e *Envelope) held(now float64) float64 {
	t := now - e.startTime
	if t < 0 {
		return 0
	}
	if e.attack > 0 && t < e.attack {
		return t / e.attack
	}
	t -= e.attack
	if e.decay > 0 && t < e.decay {
		return e.sustain + (1-e.sustain)*(1-t/e.decay)
	}
	return e.sustain
}

func nonNegative(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	return v
}
