//go:build portaudio

package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
)

type portAudioOutput struct {
	mu       sync.Mutex
	stream   *portaudio.Stream
	playing  bool
	failures atomic.Uint64
}

// openPortAudio drives src from the PortAudio callback. The stream is opened
// with the source block size so every callback is exactly one block.
func openPortAudio(src Source) (Output, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	o := &portAudioOutput{}
	cb := func(out []int16) {
		if err := src.RenderInt16(out); err != nil {
			clear(out)
			o.failures.Add(1)
		}
	}
	stream, err := portaudio.OpenDefaultStream(0, 2, float64(src.SampleRate()), src.BlockFrames(), cb)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("portaudio open: %w", err)
	}
	o.stream = stream
	return o, nil
}

func (o *portAudioOutput) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.playing {
		return nil
	}
	if err := o.stream.Start(); err != nil {
		return err
	}
	o.playing = true
	return nil
}

func (o *portAudioOutput) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.playing {
		return nil
	}
	o.playing = false
	return o.stream.Stop()
}

func (o *portAudioOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.playing
}

func (o *portAudioOutput) Close() error {
	if err := o.Pause(); err != nil {
		return err
	}
	err := o.stream.Close()
	portaudio.Terminate()
	return err
}
