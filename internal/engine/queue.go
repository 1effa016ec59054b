package engine

import (
	"sync"
	"sync/atomic"
)

type eventKind uint8

const (
	eventNoteOn eventKind = iota
	eventNoteOff
	eventAllNotesOff
)

type noteEvent struct {
	kind  eventKind
	pitch int32
}

// eventQueue is a bounded ring with a lock-free consumer. Producers take
// pushMu so several control goroutines can share it; the audio goroutine
// only ever pops.
type eventQueue struct {
	events      []noteEvent
	mask        uint32
	read, write atomic.Uint32
	pushMu      sync.Mutex
}

func newEventQueue(size int) *eventQueue {
	if size <= 0 || size&(size-1) != 0 {
		panic("event queue size must be a power of 2")
	}
	return &eventQueue{
		events: make([]noteEvent, size),
		mask:   uint32(size - 1),
	}
}

// push appends ev, returning false if the queue is full.
func (q *eventQueue) push(ev noteEvent) bool {
	q.pushMu.Lock()
	defer q.pushMu.Unlock()
	write := q.write.Load()
	if write-q.read.Load() == uint32(len(q.events)) {
		return false
	}
	q.events[write&q.mask] = ev
	q.write.Store(write + 1)
	return true
}

// pop removes the oldest event. Only the consumer may call it.
func (q *eventQueue) pop() (noteEvent, bool) {
	read := q.read.Load()
	if read == q.write.Load() {
		return noteEvent{}, false
	}
	ev := q.events[read&q.mask]
	q.read.Store(read + 1)
	return ev, true
}

func (q *eventQueue) len() int {
	return int(q.write.Load() - q.read.Load())
}

// nextPowerOfTwo rounds n up, with a minimum of 1.
func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
