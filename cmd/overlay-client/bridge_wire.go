package main

import (
	"context"
	"log/slog"

	"github.com/dronecast/overlay-client/internal/bridge"
	"github.com/dronecast/overlay-client/internal/client"
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

// sendQueueDepth bounds how many outbound packets may queue toward the
// bridge before the forwarding goroutine is still draining the previous
// one; a full queue means the transport has fallen behind.
const sendQueueDepth = 64

// wireBridge starts transport and connects it to the client's channel
// API: inbound packets are forwarded onto packetRecv, and a neighbour
// sender registered for neighbourID forwards outbound packets through
// transport.SendPacket.
func wireBridge(
	ctx context.Context,
	transport bridge.Transport,
	neighbourID netid.NodeId,
	packetRecv chan<- wire.Packet,
	controllerRecv chan<- client.DroneCommand,
) error {
	transport.SetPacketHandler(func(pkt wire.Packet, from netid.NodeId) {
		select {
		case packetRecv <- pkt:
		default:
			slog.Default().Warn("bridge: packetRecv full, dropping inbound packet", "from", from)
		}
	})
	transport.SetStateHandler(func(ev bridge.Event) {
		slog.Default().Info("bridge transport state change", "event", ev)
	})

	if err := transport.Start(ctx); err != nil {
		return err
	}

	sendCh := make(chan wire.Packet, sendQueueDepth)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case pkt, ok := <-sendCh:
				if !ok {
					return
				}
				if err := transport.SendPacket(neighbourID, pkt); err != nil {
					slog.Default().Warn("bridge: send failed", "neighbour", neighbourID, "error", err)
				}
			}
		}
	}()

	controllerRecv <- client.DroneCommand{
		Kind:          client.CommandAddSender,
		SenderID:      neighbourID,
		SenderChannel: sendCh,
	}
	return nil
}
