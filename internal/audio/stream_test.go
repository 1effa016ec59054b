package audio

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// countingSource renders blocks whose bytes count up across calls.
type countingSource struct {
	frames  int
	next    byte
	renders atomic.Int32
	fail    bool
}

func (s *countingSource) BlockBytes() int  { return s.frames * 4 }
func (s *countingSource) BlockFrames() int { return s.frames }
func (s *countingSource) SampleRate() int  { return 44100 }

func (s *countingSource) Render(out []byte) error {
	if s.fail {
		return errors.New("render failed")
	}
	if len(out) != s.BlockBytes() {
		return errors.New("wrong block size")
	}
	for i := range out {
		out[i] = s.next
		s.next++
	}
	s.renders.Add(1)
	return nil
}

func (s *countingSource) RenderInt16(out []int16) error {
	s.renders.Add(1)
	return nil
}

func TestBlockReaderServesArbitrarySizes(t *testing.T) {
	src := &countingSource{frames: 16}
	r := NewBlockReader(src)
	var want byte
	for _, size := range []int{1, 7, 64, 3, 200, 5} {
		p := make([]byte, size)
		n, err := r.Read(p)
		if err != nil || n != size {
			t.Fatalf("Read(%d) = %d, %v", size, n, err)
		}
		for i, b := range p {
			if b != want {
				t.Fatalf("Read(%d)[%d] = %d, want %d", size, i, b, want)
			}
			want++
		}
	}
	if got := src.renders.Load(); got != int32((280+63)/64) {
		t.Fatalf("renders = %d, want %d", got, (280+63)/64)
	}
}

func TestBlockReaderPropagatesErrors(t *testing.T) {
	src := &countingSource{frames: 4, fail: true}
	r := NewBlockReader(src)
	if _, err := r.Read(make([]byte, 8)); err == nil {
		t.Fatal("expected render error")
	}
}

func TestParseBackend(t *testing.T) {
	for _, b := range Backends() {
		got, err := ParseBackend(" " + string(b) + " ")
		if err != nil || got != b {
			t.Errorf("ParseBackend(%q) = %q, %v", b, got, err)
		}
	}
	if _, err := ParseBackend("alsa"); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("ParseBackend(alsa) error = %v", err)
	}
	if _, err := Open(Backend("alsa"), &countingSource{frames: 4}); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("Open(alsa) error = %v", err)
	}
}

func TestBlockDuration(t *testing.T) {
	src := &countingSource{frames: 441}
	if d := blockDuration(src); d != 10*time.Millisecond {
		t.Fatalf("blockDuration = %v, want 10ms", d)
	}
}

func TestHeadlessPullsBlocks(t *testing.T) {
	src := &countingSource{frames: 64}
	out, err := Open(Headless, src)
	if err != nil {
		t.Fatal(err)
	}
	if out.IsPlaying() {
		t.Fatal("output should start paused")
	}
	if err := out.Play(); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for src.renders.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !out.IsPlaying() {
		t.Fatal("IsPlaying = false after Play")
	}
	if err := out.Close(); err != nil {
		t.Fatal(err)
	}
	n := src.renders.Load()
	if n < 3 {
		t.Fatalf("renders = %d, want at least 3", n)
	}
	time.Sleep(20 * time.Millisecond)
	if src.renders.Load() != n {
		t.Fatal("output kept rendering after Close")
	}
}
