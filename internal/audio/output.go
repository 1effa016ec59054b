package audio

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Backend names an audio output implementation.
type Backend string

const (
	Ebiten    Backend = "ebiten"
	Oto       Backend = "oto"
	PortAudio Backend = "portaudio"
	Headless  Backend = "headless"
)

var (
	ErrUnknownBackend     = errors.New("unknown audio backend")
	ErrBackendUnavailable = errors.New("audio backend not available in this build")
)

// Backends lists every backend name accepted by ParseBackend.
func Backends() []Backend {
	return []Backend{Ebiten, Oto, PortAudio, Headless}
}

func ParseBackend(s string) (Backend, error) {
	b := Backend(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Backends() {
		if b == known {
			return b, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownBackend, s)
}

// Output is a running connection between a Source and an audio device.
type Output interface {
	Play() error
	Pause() error
	IsPlaying() bool
	Close() error
}

// Open connects src to the named backend. The output starts paused.
func Open(b Backend, src Source) (Output, error) {
	switch b {
	case Ebiten:
		return openEbiten(src)
	case Oto:
		return openOto(src)
	case PortAudio:
		return openPortAudio(src)
	case Headless:
		return newHeadless(src), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownBackend, string(b))
	}
}

// blockDuration is the playback time of one block.
func blockDuration(src Source) time.Duration {
	return time.Duration(src.BlockFrames()) * time.Second / time.Duration(src.SampleRate())
}
