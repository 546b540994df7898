// Package bridge carries wire.Packet values between this client and its
// direct neighbours over a real transport, for deployments where
// neighbour channels aren't wired in-process (e.g. a simulated
// topology). Two transports are supported: MQTT and serial.
package bridge

import (
	"context"

	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

// PacketHandler is invoked for every packet a Transport receives from the
// far side, tagged with the packet's origin (the first hop of its routing
// header). For a header with no hops, MQTT reports this node's own id and
// serial reports 0.
type PacketHandler func(pkt wire.Packet, from netid.NodeId)

// StateHandler is invoked on transport connectivity changes.
type StateHandler func(event Event)

// Event enumerates transport connectivity state changes.
type Event int

const (
	EventConnected Event = iota
	EventDisconnected
	EventReconnecting
	EventError
)

func (e Event) String() string {
	switch e {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventReconnecting:
		return "reconnecting"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Transport is the interface both the MQTT and serial bridges implement.
type Transport interface {
	Start(ctx context.Context) error
	Stop() error
	IsConnected() bool
	SetPacketHandler(fn PacketHandler)
	SetStateHandler(fn StateHandler)
	// SendPacket encodes and transmits pkt toward the given neighbour.
	SendPacket(to netid.NodeId, pkt wire.Packet) error
}
