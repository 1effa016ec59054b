package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// headlessOutput pulls blocks on a timer at the real-time rate and throws
// them away. It keeps the engine clock moving where no device exists.
type headlessOutput struct {
	src    Source
	period time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	blocks   atomic.Uint64
	failures atomic.Uint64
}

func newHeadless(src Source) *headlessOutput {
	return &headlessOutput{src: src, period: blockDuration(src)}
}

func (o *headlessOutput) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.done = make(chan struct{})
	go o.run(ctx, o.done)
	return nil
}

func (o *headlessOutput) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	buf := make([]byte, o.src.BlockBytes())
	ticker := time.NewTicker(o.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := o.src.Render(buf); err != nil {
				o.failures.Add(1)
				continue
			}
			o.blocks.Add(1)
		}
	}
}

func (o *headlessOutput) Pause() error {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.cancel, o.done = nil, nil
	o.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (o *headlessOutput) IsPlaying() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancel != nil
}

func (o *headlessOutput) Close() error { return o.Pause() }
