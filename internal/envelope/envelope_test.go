package envelope

import (
	"math"
	"testing"
)

const eps = 1e-9

func TestAmplitudeThroughStages(t *testing.T) {
	e := New(0.1, 0.1, 0.5, 0.2)
	e.NoteOn(0)

	tests := []struct {
		at   float64
		want float64
	}{
		{0, 0},
		{0.05, 0.5},
		{0.1, 1.0},
		{0.15, 0.75},
		{0.2, 0.5},
		{0.5, 0.5},
		{1.0, 0.5},
	}
	for _, tt := range tests {
		if got := e.Amplitude(tt.at); math.Abs(got-tt.want) > eps {
			t.Errorf("Amplitude(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}

	e.NoteOff(1.0)
	if got := e.Amplitude(1.0); math.Abs(got-0.5) > eps {
		t.Errorf("Amplitude at note-off = %v, want 0.5", got)
	}
	if got := e.Amplitude(1.1); math.Abs(got-0.25) > 1e-6 {
		t.Errorf("Amplitude mid-release = %v, want 0.25", got)
	}
	if got := e.Amplitude(1.2); got != 0 {
		t.Errorf("Amplitude(1.2) = %v, want 0", got)
	}
	if !e.Active(1.1999) {
		t.Error("Active(1.1999) = false, want true")
	}
	if e.Active(1.2) {
		t.Error("Active(1.2) = true, want false")
	}
}

func TestIdleEnvelope(t *testing.T) {
	e := Default()
	if e.Active(0) || e.Active(100) {
		t.Fatal("untriggered envelope should be inactive")
	}
	if e.Amplitude(1) != 0 {
		t.Fatal("untriggered envelope should be silent")
	}
	e.NoteOff(1)
	if e.Releasing() {
		t.Fatal("note-off on an idle envelope should be ignored")
	}
	if e.Stage(0) != Idle {
		t.Fatalf("Stage = %v, want idle", e.Stage(0))
	}
}

func TestReleaseBeforeAttackCompletes(t *testing.T) {
	e := New(1.0, 0.5, 0.5, 1.0)
	e.NoteOn(0)
	e.NoteOff(0.25)
	if got := e.Amplitude(0.25); math.Abs(got-0.25) > eps {
		t.Fatalf("level at early release = %v, want 0.25", got)
	}
	if got := e.Amplitude(0.75); math.Abs(got-0.125) > eps {
		t.Fatalf("half-way through release = %v, want 0.125", got)
	}
}

func TestNoteOffIsIdempotent(t *testing.T) {
	e := New(0.1, 0.1, 0.5, 0.2)
	e.NoteOn(0)
	e.NoteOff(1.0)
	e.NoteOff(1.1)
	if e.ReleaseTime() != 1.0 {
		t.Fatalf("second note-off moved release time to %v", e.ReleaseTime())
	}
	if e.Active(1.2) {
		t.Fatal("second note-off should not extend the release")
	}
}

func TestRetriggerClearsRelease(t *testing.T) {
	e := New(0.1, 0.1, 0.5, 0.2)
	e.NoteOn(0)
	e.NoteOff(1.0)
	e.NoteOn(1.1)
	if e.Releasing() {
		t.Fatal("NoteOn should clear the release")
	}
	if !e.Active(5) {
		t.Fatal("retriggered envelope should sustain")
	}
	if got := e.Amplitude(1.15); math.Abs(got-0.5) > 1e-6 {
		t.Fatalf("retriggered attack = %v, want 0.5", got)
	}
}

func TestZeroLengthStages(t *testing.T) {
	e := New(0, 0, 0.7, 0)
	e.NoteOn(2)
	if got := e.Amplitude(2); math.Abs(got-0.7) > eps {
		t.Fatalf("zero attack/decay should jump to sustain, got %v", got)
	}
	e.NoteOff(3)
	if e.Active(3) {
		t.Fatal("zero release should deactivate immediately")
	}
	if got := e.Amplitude(3); got != 0 {
		t.Fatalf("zero release amplitude = %v, want 0", got)
	}
}

func TestSettersClamp(t *testing.T) {
	e := New(-1, -2, 3, -4)
	if e.Attack() != 0 || e.Decay() != 0 || e.Release() != 0 {
		t.Fatalf("negative durations not clamped: %v %v %v", e.Attack(), e.Decay(), e.Release())
	}
	if e.Sustain() != 1 {
		t.Fatalf("Sustain = %v, want 1", e.Sustain())
	}
	e.SetSustain(-0.5)
	if e.Sustain() != 0 {
		t.Fatalf("Sustain = %v, want 0", e.Sustain())
	}
	e.SetSustain(math.NaN())
	if e.Sustain() != 0 {
		t.Fatalf("NaN sustain = %v, want 0", e.Sustain())
	}
}

func TestStage(t *testing.T) {
	e := New(0.1, 0.1, 0.5, 0.2)
	e.NoteOn(0)
	for _, tt := range []struct {
		at   float64
		want Stage
	}{
		{0.05, Attack},
		{0.15, Decay},
		{0.5, Sustain},
	} {
		if got := e.Stage(tt.at); got != tt.want {
			t.Errorf("Stage(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
	e.NoteOff(1)
	if got := e.Stage(1.1); got != Release {
		t.Errorf("Stage(1.1) = %v, want release", got)
	}
	if got := e.Stage(1.3); got != Idle {
		t.Errorf("Stage(1.3) = %v, want idle", got)
	}
}

func TestAmplitudeStaysInRange(t *testing.T) {
	e := New(0.01, 0.02, 0.3, 0.05)
	e.NoteOn(0)
	e.NoteOff(0.02)
	for i := 0; i < 1000; i++ {
		now := float64(i) * 0.0001
		a := e.Amplitude(now)
		if a < 0 || a > 1 {
			t.Fatalf("Amplitude(%v) = %v out of range", now, a)
		}
	}
}

func TestExpiredReleaseStaysIdle(t *testing.T) {
	e := New(0, 0, 1, 0.1)
	e.NoteOn(0)
	e.NoteOff(1)
	if e.Expire(1.05) {
		t.Fatal("Expire mid-release reported idle")
	}
	if !e.Expire(1.1) {
		t.Fatal("Expire at release end did not report idle")
	}
	if e.Triggered() || e.Releasing() {
		t.Fatal("expired envelope should be untriggered")
	}
	e.SetRelease(5)
	if e.Active(1.2) || e.Amplitude(1.2) != 0 {
		t.Fatal("longer release revived an expired envelope")
	}
	if e.Expire(2) {
		t.Fatal("Expire on an idle envelope reported a change")
	}
}
