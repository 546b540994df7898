package client

import "github.com/dronecast/overlay-client/internal/wire"

// HandlePacket is the packet dispatcher: it takes the writer lock once
// per inbound packet, applies the congestion signal where applicable,
// and routes to the specialized handler for pkt.Kind.
func (c *Client) HandlePacket(pkt wire.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch pkt.Kind {
	case wire.KindFragment, wire.KindAck, wire.KindFloodResponse:
		// FloodRequest bypasses this step: its SRH is empty by construction.
		c.graph.NodesCongestion(pkt.Routing)
	}

	switch pkt.Kind {
	case wire.KindFragment:
		c.handleFragmentLocked(pkt)
	case wire.KindAck:
		c.handleAckLocked(pkt)
	case wire.KindNack:
		c.handleNackLocked(pkt)
	case wire.KindFloodRequest:
		c.handleFloodRequestLocked(pkt)
	case wire.KindFloodResponse:
		c.handleFloodResponseLocked(pkt)
	default:
		c.log.Warn("dropping packet of unknown kind", "kind", pkt.Kind)
	}
}

// HandleCommand processes one controller command under the writer lock.
func (c *Client) HandleCommand(cmd DroneCommand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handleCommandLocked(cmd)
}

func (c *Client) handleCommandLocked(cmd DroneCommand) {
	switch cmd.Kind {
	case CommandCrash:
		c.fsm = c.fsm.advance(Terminated)
		c.log.Info("received Crash command, terminating")
	case CommandAddSender:
		c.senders[cmd.SenderID] = cmd.SenderChannel
		c.log.Info("added neighbour sender", "node", cmd.SenderID)
		c.triggerFloodLocked()
	case CommandRemoveSender:
		if _, ok := c.senders[cmd.SenderID]; !ok {
			c.log.Warn("RemoveSender for unknown neighbour", "node", cmd.SenderID)
		} else {
			delete(c.senders, cmd.SenderID)
		}
		c.triggerFloodLocked()
	case CommandSetPacketDropRate:
		c.log.Info("SetPacketDropRate received, ignoring", "rate", cmd.PacketDropRate)
	default:
		c.log.Warn("unknown controller command", "kind", cmd.Kind)
	}
}
