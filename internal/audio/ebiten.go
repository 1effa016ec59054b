package audio

import (
	"fmt"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// sharedAudioContext returns the process-wide ebiten audio context. Ebiten
// allows only one, so a second sample rate is an error.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

type ebitenOutput struct {
	player *ebitaudio.Player
	reader *BlockReader
}

func openEbiten(src Source) (Output, error) {
	ctx, err := sharedAudioContext(src.SampleRate())
	if err != nil {
		return nil, err
	}
	reader := NewBlockReader(src)
	pl, err := ctx.NewPlayer(reader)
	if err != nil {
		return nil, fmt.Errorf("ebiten player: %w", err)
	}
	pl.SetBufferSize(2 * blockDuration(src))
	return &ebitenOutput{player: pl, reader: reader}, nil
}

func (o *ebitenOutput) Play() error {
	o.player.Play()
	return nil
}

func (o *ebitenOutput) Pause() error {
	o.player.Pause()
	return nil
}

func (o *ebitenOutput) IsPlaying() bool { return o.player.IsPlaying() }

func (o *ebitenOutput) Close() error {
	o.player.Pause()
	if err := o.player.Close(); err != nil {
		return err
	}
	return o.reader.Close()
}
