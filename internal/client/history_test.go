package client

import (
	"testing"

	"github.com/dronecast/overlay-client/internal/wire"
)

func TestHistory_RecordLookupRemove(t *testing.T) {
	h := newHistory(0)
	pkt := wire.Packet{Kind: wire.KindFragment}
	h.record(0, 1, pkt)

	if _, ok := h.lookup(0, 1); !ok {
		t.Fatal("expected lookup to find recorded fragment")
	}
	if !h.remove(0, 1) {
		t.Fatal("expected remove to find the recorded fragment")
	}
	if _, ok := h.lookup(0, 1); ok {
		t.Fatal("expected lookup to miss after remove")
	}
	if h.remove(0, 1) {
		t.Fatal("expected second remove to report not found")
	}
}

func TestHistory_EvictsOldestWhenOverCapacity(t *testing.T) {
	h := newHistory(2)
	h.record(0, 1, wire.Packet{})
	h.record(1, 1, wire.Packet{})
	h.record(2, 1, wire.Packet{})

	if h.len() != 2 {
		t.Fatalf("len() = %d, want 2", h.len())
	}
	if _, ok := h.lookup(0, 1); ok {
		t.Fatal("expected oldest entry to have been evicted")
	}
	if _, ok := h.lookup(2, 1); !ok {
		t.Fatal("expected newest entry to still be present")
	}
}

func TestHistory_SessionsAreIndependent(t *testing.T) {
	h := newHistory(0)
	h.record(0, 1, wire.Packet{Session: 1})
	h.record(0, 2, wire.Packet{Session: 2})

	if h.len() != 2 {
		t.Fatalf("len() = %d, want 2", h.len())
	}
	p, ok := h.lookup(0, 2)
	if !ok || p.Session != 2 {
		t.Fatalf("lookup(0, 2) = %+v, %v", p, ok)
	}
}
