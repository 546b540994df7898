package wire

import (
	"testing"

	"github.com/dronecast/overlay-client/internal/netid"
)

func TestSRH_CurrentAndNextHop(t *testing.T) {
	srh := NewSRH(5, 2, 7)
	cur, err := srh.CurrentHop()
	if err != nil || cur != 5 {
		t.Fatalf("CurrentHop() = %v, %v, want 5, nil", cur, err)
	}
	next, err := srh.NextHop()
	if err != nil || next != 2 {
		t.Fatalf("NextHop() = %v, %v, want 2, nil", next, err)
	}
}

func TestSRH_Advance(t *testing.T) {
	srh := NewSRH(5, 2, 7)
	advanced := srh.Advance()
	if advanced.HopIndex != 1 {
		t.Fatalf("HopIndex = %d, want 1", advanced.HopIndex)
	}
	if srh.HopIndex != 0 {
		t.Fatalf("original header mutated, HopIndex = %d", srh.HopIndex)
	}
	cur, _ := advanced.CurrentHop()
	if cur != 2 {
		t.Fatalf("CurrentHop() after advance = %v, want 2", cur)
	}
}

func TestSRH_Reverse(t *testing.T) {
	srh := NewSRH(5, 2, 7)
	srh.HopIndex = 2
	rev := srh.Reverse()
	if rev.HopIndex != 0 {
		t.Fatalf("Reverse() HopIndex = %d, want 0", rev.HopIndex)
	}
	want := []netid.NodeId{7, 2, 5}
	for i, h := range want {
		if rev.Hops[i] != h {
			t.Fatalf("Reverse().Hops[%d] = %v, want %v", i, rev.Hops[i], h)
		}
	}
}

func TestSRH_NextHopOutOfRange(t *testing.T) {
	srh := NewSRH(5)
	if _, err := srh.NextHop(); err == nil {
		t.Fatal("expected error for NextHop on single-hop SRH")
	}
}

func TestNewFragment_TooBig(t *testing.T) {
	data := make([]byte, MaxFragmentPayload+1)
	if _, err := NewFragment(0, 1, data); err == nil {
		t.Fatal("expected error for oversized fragment")
	}
}

func TestFloodRequest_GenerateResponse(t *testing.T) {
	req := FloodRequest{
		FloodID:     1,
		InitiatorID: 5,
		PathTrace: []PathHop{
			{Node: 5, Type: netid.NodeTypeClient},
			{Node: 1, Type: netid.NodeTypeDrone},
			{Node: 7, Type: netid.NodeTypeServer},
		},
	}
	resp := req.GenerateResponse()
	want := []netid.NodeId{7, 1, 5}
	for i, h := range want {
		if resp.Routing.Hops[i] != h {
			t.Fatalf("response hop %d = %v, want %v", i, resp.Routing.Hops[i], h)
		}
	}
	if resp.Routing.HopIndex != 0 {
		t.Fatalf("response HopIndex = %d, want 0", resp.Routing.HopIndex)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	frag, err := NewFragment(1, 2, []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	p := Packet{
		Kind:     KindFragment,
		Routing:  NewSRH(5, 1, 7),
		Session:  42,
		Fragment: frag,
	}

	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Session != p.Session || got.Kind != p.Kind {
		t.Fatalf("round-trip mismatch: %+v vs %+v", got, p)
	}
	if string(got.Fragment.Payload()) != "hello" {
		t.Fatalf("payload = %q, want hello", got.Fragment.Payload())
	}
}

func TestEncodeDecode_FloodResponse(t *testing.T) {
	p := Packet{
		Kind:    KindFloodResponse,
		Routing: NewSRH(),
		Session: 1,
		FloodRes: FloodResponse{
			FloodID:     3,
			InitiatorID: 5,
			PathTrace: []PathHop{
				{Node: 5, Type: netid.NodeTypeClient},
				{Node: 7, Type: netid.NodeTypeServer},
			},
			Routing: NewSRH(7, 5),
		},
	}
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.FloodRes.PathTrace) != 2 || got.FloodRes.PathTrace[1].Node != 7 {
		t.Fatalf("unexpected path trace: %+v", got.FloodRes.PathTrace)
	}
}
