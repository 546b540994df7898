package forge

import (
	"math/rand"
	"testing"

	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

func shuffledFragments(packets []wire.Packet) []wire.Fragment {
	frags := make([]wire.Fragment, len(packets))
	for i, p := range packets {
		frags[i] = p.Fragment
	}
	rand.Shuffle(len(frags), func(i, j int) { frags[i], frags[j] = frags[j], frags[i] })
	return frags
}

func TestDisassembleAssemble_RoundTripSmallMessage(t *testing.T) {
	f := New()
	msg := Message{
		Kind: MsgAckSubscribeClient,
		AckSubscribeClient: AckSubscribeClient{
			ClientID: 9,
		},
	}
	packets, err := f.Disassemble(msg, wire.NewSRH(1, 2, 3))
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected single-fragment message, got %d fragments", len(packets))
	}

	got, err := f.AssembleDynamic(shuffledFragments(packets))
	if err != nil {
		t.Fatalf("AssembleDynamic: %v", err)
	}
	if got.Kind != MsgAckSubscribeClient || got.AckSubscribeClient.ClientID != 9 {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestDisassembleAssemble_RoundTripMultiFragment(t *testing.T) {
	f := New()
	var videos []VideoMetaData
	for i := 0; i < 10; i++ {
		videos = append(videos, VideoMetaData{
			ID:          netid.FileHash(i),
			Title:       "a fairly long video title that helps pad out the payload size",
			Description: "an equally long description used purely to force multiple fragments",
			Duration:    123.45,
			MimeType:    "video/mp4",
			CreatedAt:   "2026-01-01T00:00:00Z",
		})
	}
	msg := Message{
		Kind: MsgSubscribeClient,
		SubscribeClient: SubscribeClient{
			ClientID:        3,
			ClientType:      ClientTypeVideo,
			AvailableVideos: videos,
		},
	}

	packets, err := f.Disassemble(msg, wire.NewSRH(3, 1, 7))
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}
	if len(packets) < 2 {
		t.Fatalf("expected multiple fragments for a large payload, got %d", len(packets))
	}
	for _, p := range packets {
		if p.Session != packets[0].Session {
			t.Fatalf("fragments of one message must share a session id")
		}
	}

	got, err := f.AssembleDynamic(shuffledFragments(packets))
	if err != nil {
		t.Fatalf("AssembleDynamic: %v", err)
	}
	if got.Kind != MsgSubscribeClient {
		t.Fatalf("got kind %v, want MsgSubscribeClient", got.Kind)
	}
	if len(got.SubscribeClient.AvailableVideos) != len(videos) {
		t.Fatalf("got %d videos, want %d", len(got.SubscribeClient.AvailableVideos), len(videos))
	}
	if got.SubscribeClient.AvailableVideos[4].Title != videos[4].Title {
		t.Fatalf("video content mismatch after reassembly")
	}
}

func TestAssembleDynamic_GapFails(t *testing.T) {
	f := New()
	packets, err := f.Disassemble(Message{Kind: MsgRequestFileList, RequestFileList: RequestFileList{}}, wire.NewSRH(1, 2))
	if err != nil {
		t.Fatal(err)
	}
	// Indices 0 and 2 of 3, with nothing at index 1.
	first := packets[0].Fragment
	first.TotalFragments = 3
	bogus := first
	bogus.FragmentIndex = 2
	if _, err := f.AssembleDynamic([]wire.Fragment{first, bogus}); err == nil {
		t.Fatal("expected an error for a fragment sequence with a gap")
	}
}

func TestAssembleDynamic_LengthMismatchFails(t *testing.T) {
	f := New()
	a, err := wire.NewFragment(0, 2, []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := wire.NewFragment(1, 3, []byte("b"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.AssembleDynamic([]wire.Fragment{a, b}); err == nil {
		t.Fatal("expected an error for mismatched TotalFragments across the sequence")
	}
}

func TestNextSessionID_Monotonic(t *testing.T) {
	f := New()
	prev := f.NextSessionID()
	for i := 0; i < 100; i++ {
		next := f.NextSessionID()
		if next <= prev {
			t.Fatalf("session ids not strictly increasing: %d then %d", prev, next)
		}
		prev = next
	}
}
