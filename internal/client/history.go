package client

import (
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

// historyKey identifies one in-flight (unacked) fragment.
type historyKey struct {
	fragmentIndex uint32
	session       netid.SessionId
}

// sentPacket is whatever send.go needs back from history on an ack/nack:
// the packet itself plus the order it was inserted, for LRU eviction.
type sentPacket struct {
	packet wire.Packet
	seq    uint64
}

// history tracks packets sent but not yet acked, keyed by
// (fragment_index, session_id), so a nack can find the original packet to
// retransmit and an ack can evict it. maxEntries bounds its size; once
// exceeded, the oldest entry by insertion order is evicted, mirroring the
// resource policy that unacked fragments are bounded in practice.
type history struct {
	entries    map[historyKey]sentPacket
	nextSeq    uint64
	maxEntries int
}

func newHistory(maxEntries int) *history {
	return &history{
		entries:    make(map[historyKey]sentPacket),
		maxEntries: maxEntries,
	}
}

func (h *history) record(fragmentIndex uint32, session netid.SessionId, p wire.Packet) {
	key := historyKey{fragmentIndex, session}
	h.entries[key] = sentPacket{packet: p, seq: h.nextSeq}
	h.nextSeq++
	if h.maxEntries > 0 && len(h.entries) > h.maxEntries {
		h.evictOldest()
	}
}

func (h *history) evictOldest() {
	var oldestKey historyKey
	oldestSeq := uint64(0)
	first := true
	for k, v := range h.entries {
		if first || v.seq < oldestSeq {
			oldestKey = k
			oldestSeq = v.seq
			first = false
		}
	}
	if !first {
		delete(h.entries, oldestKey)
	}
}

func (h *history) lookup(fragmentIndex uint32, session netid.SessionId) (wire.Packet, bool) {
	sp, ok := h.entries[historyKey{fragmentIndex, session}]
	return sp.packet, ok
}

func (h *history) remove(fragmentIndex uint32, session netid.SessionId) bool {
	key := historyKey{fragmentIndex, session}
	if _, ok := h.entries[key]; !ok {
		return false
	}
	delete(h.entries, key)
	return true
}

func (h *history) len() int {
	return len(h.entries)
}
