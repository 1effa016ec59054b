package audio

import (
	"sync"
)

// Renderer produces fixed-size blocks of interleaved stereo signed 16-bit
// little-endian PCM.
type Renderer interface {
	Render(out []byte) error
	BlockBytes() int
}

// Source is a Renderer that can also fill native int16 buffers, for
// callback-driven outputs that hand over exactly one block at a time.
type Source interface {
	Renderer
	RenderInt16(out []int16) error
	BlockFrames() int
	SampleRate() int
}

// BlockReader adapts a fixed-block Renderer to io.Reader. Pull-based players
// ask for arbitrary byte counts; the reader renders whole blocks into its own
// buffer and hands them out piecewise.
type BlockReader struct {
	mu       sync.Mutex
	renderer Renderer
	block    []byte
	pos      int
}

func NewBlockReader(r Renderer) *BlockReader {
	block := make([]byte, r.BlockBytes())
	return &BlockReader{renderer: r, block: block, pos: len(block)}
}

func (r *BlockReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for n < len(p) {
		if r.pos == len(r.block) {
			if err := r.renderer.Render(r.block); err != nil {
				return n, err
			}
			r.pos = 0
		}
		c := copy(p[n:], r.block[r.pos:])
		r.pos += c
		n += c
	}
	return n, nil
}

func (r *BlockReader) Close() error { return nil }
