package audio

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

var (
	otoOnce       sync.Once
	otoContext    *oto.Context
	otoErr        error
	otoSampleRate int
)

func sharedOtoContext(src Source) (*oto.Context, error) {
	otoOnce.Do(func() {
		otoSampleRate = src.SampleRate()
		op := &oto.NewContextOptions{
			SampleRate:   src.SampleRate(),
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   blockDuration(src),
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("oto context: %w", err)
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoSampleRate != src.SampleRate() {
		return nil, fmt.Errorf("oto context already initialized at %d Hz (requested %d Hz)", otoSampleRate, src.SampleRate())
	}
	return otoContext, nil
}

type otoOutput struct {
	mu     sync.Mutex
	player *oto.Player
}

func openOto(src Source) (Output, error) {
	ctx, err := sharedOtoContext(src)
	if err != nil {
		return nil, err
	}
	return &otoOutput{player: ctx.NewPlayer(NewBlockReader(src))}, nil
}

func (o *otoOutput) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.player.Play()
	return nil
}

func (o *otoOutput) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.player.Pause()
	return nil
}

func (o *otoOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.player.IsPlaying()
}

func (o *otoOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.player.Pause()
	return o.player.Close()
}
