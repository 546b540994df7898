package client

import (
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

// ControllerEventKind tags the variant carried by a ControllerEvent.
type ControllerEventKind uint8

const (
	EventPacketSent ControllerEventKind = iota
	EventControllerShortcut
)

// ControllerEvent is emitted on the controller_send channel, mirroring
// every packet this client transmits (or asks the controller to deliver
// directly, when no direct neighbour sender is available).
type ControllerEvent struct {
	Kind   ControllerEventKind
	Packet wire.Packet
}

// DroneCommandKind tags the variant carried by a DroneCommand.
type DroneCommandKind uint8

const (
	CommandCrash DroneCommandKind = iota
	CommandAddSender
	CommandRemoveSender
	CommandSetPacketDropRate
)

// DroneCommand arrives on the controller_recv channel. Only the fields
// relevant to Kind are read.
type DroneCommand struct {
	Kind           DroneCommandKind
	SenderID       netid.NodeId
	SenderChannel  chan<- wire.Packet
	PacketDropRate float64
}
