// Package chunkbuffer reorders out-of-order video chunk deliveries back
// into a strictly monotone stream before they reach the player.
package chunkbuffer

import "sync"

// Buffer accumulates chunks keyed by index and releases them to a
// delivery callback in strict order, starting from 0. A chunk that
// arrives ahead of next_expected_index is held; one that arrives behind
// it is a duplicate or a stale retransmit and is discarded.
type Buffer struct {
	mu      sync.Mutex
	next    uint32
	pending map[uint32][]byte
	deliver func(index uint32, data []byte)
}

// New creates an empty Buffer. deliver is invoked, in order, for every
// chunk that becomes ready — including chunks released from the pending
// set once a gap is filled. deliver must not block.
func New(deliver func(index uint32, data []byte)) *Buffer {
	return &Buffer{
		pending: make(map[uint32][]byte),
		deliver: deliver,
	}
}

// PushChunk accepts one chunk. If index equals the next expected index,
// it is delivered immediately, and any subsequently-contiguous chunks
// already buffered are drained and delivered too. If index is ahead of
// next expected, it is buffered. If index is behind next expected, it is
// discarded as a duplicate.
func (b *Buffer) PushChunk(index uint32, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case index < b.next:
		return
	case index > b.next:
		b.pending[index] = data
		return
	}

	b.deliver(index, data)
	b.next++
	for {
		buffered, ok := b.pending[b.next]
		if !ok {
			break
		}
		delete(b.pending, b.next)
		b.deliver(b.next, buffered)
		b.next++
	}
}

// Reset drops all buffered state and restarts expectation at index 0,
// used when a fresh request_video call begins a new chunk stream.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = 0
	b.pending = make(map[uint32][]byte)
}

// NextExpected reports the next index this Buffer will deliver, mostly
// useful for tests and diagnostics.
func (b *Buffer) NextExpected() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next
}

// Pending reports how many chunks are currently held awaiting a gap fill.
func (b *Buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
