package main

import (
	"context"
	"testing"
	"time"

	"github.com/dronecast/overlay-client/internal/bridge"
	"github.com/dronecast/overlay-client/internal/client"
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

type fakeTransport struct {
	started bool
	sent    []wire.Packet
	pktFn   bridge.PacketHandler
}

func (f *fakeTransport) Start(ctx context.Context) error {
	f.started = true
	return nil
}

func (f *fakeTransport) Stop() error { return nil }

func (f *fakeTransport) IsConnected() bool { return f.started }

func (f *fakeTransport) SetPacketHandler(fn bridge.PacketHandler) { f.pktFn = fn }

func (f *fakeTransport) SetStateHandler(fn bridge.StateHandler) {}

func (f *fakeTransport) SendPacket(to netid.NodeId, pkt wire.Packet) error {
	f.sent = append(f.sent, pkt)
	return nil
}

func TestWireBridge_ForwardsInboundAndRegistersSender(t *testing.T) {
	transport := &fakeTransport{}
	packetRecv := make(chan wire.Packet, 4)
	controllerRecv := make(chan client.DroneCommand, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := wireBridge(ctx, transport, 7, packetRecv, controllerRecv); err != nil {
		t.Fatalf("wireBridge: %v", err)
	}
	if !transport.started {
		t.Fatal("expected transport.Start to have been called")
	}

	select {
	case cmd := <-controllerRecv:
		if cmd.Kind != client.CommandAddSender || cmd.SenderID != 7 {
			t.Fatalf("unexpected command: %+v", cmd)
		}
		cmd.SenderChannel <- wire.Packet{Session: 42}
	case <-time.After(time.Second):
		t.Fatal("expected an AddSender command")
	}

	deadline := time.After(time.Second)
	for {
		select {
		case <-deadline:
			t.Fatal("transport never received the forwarded packet")
		default:
		}
		if len(transport.sent) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if transport.sent[0].Session != 42 {
		t.Fatalf("forwarded packet session = %v, want 42", transport.sent[0].Session)
	}

	transport.pktFn(wire.Packet{Session: 99}, 7)
	select {
	case pkt := <-packetRecv:
		if pkt.Session != 99 {
			t.Fatalf("inbound packet session = %v, want 99", pkt.Session)
		}
	case <-time.After(time.Second):
		t.Fatal("expected the inbound packet to be forwarded onto packetRecv")
	}
}
