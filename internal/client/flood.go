package client

import (
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

// triggerFloodLocked implements the unconditional flood initiator used
// by the periodic scheduler, AddSender, RemoveSender, and a manual
// /flood-req trigger. It allocates a fresh flood id and session id,
// builds a FloodRequest whose path trace starts with this node, and
// broadcasts it to every direct neighbour.
func (c *Client) triggerFloodLocked() {
	c.floodID++
	req := wire.FloodRequest{
		FloodID:     c.floodID,
		InitiatorID: c.id,
		PathTrace:   []wire.PathHop{{Node: c.id, Type: netid.NodeTypeClient}},
	}
	pkt := wire.Packet{
		Kind:    wire.KindFloodRequest,
		Routing: wire.NewSRH(),
		Session: c.forge.NextSessionID(),
		Flood:   req,
	}

	for neighbour, sender := range c.senders {
		select {
		case sender <- pkt:
			if err := c.sendSCPacketLocked(ControllerEvent{Kind: EventPacketSent, Packet: pkt}); err != nil {
				c.log.Warn("failed to mirror flood request to controller", "error", err)
			}
		default:
			c.log.Warn("flood request dropped, neighbour channel full", "neighbour", neighbour)
		}
	}
	if c.metrics != nil {
		c.metrics.FloodsInitiated.Inc()
	}
}

// triggerRateLimitedFloodLocked re-floods at most once per
// routingErrorFloodGuard window, per the routing-error storm protection
// requirement.
func (c *Client) triggerRateLimitedFloodLocked() {
	now := c.clock.Now()
	elapsed := int64(now) - int64(c.lastRoutingErrorFloodUnix)
	if c.lastRoutingErrorFloodUnix != 0 && elapsed < int64(c.routingErrorFloodGuard.Seconds()) {
		return
	}
	c.lastRoutingErrorFloodUnix = now
	c.triggerFloodLocked()
}

// handleFloodRequestLocked implements the responder half of §4.10:
// append self to the path trace, generate a response, and forward it
// toward the initiator one hop at a time.
func (c *Client) handleFloodRequestLocked(pkt wire.Packet) {
	req := pkt.Flood
	req.PathTrace = append(append([]wire.PathHop(nil), req.PathTrace...), wire.PathHop{Node: c.id, Type: netid.NodeTypeClient})

	resp := req.GenerateResponse()
	advanced := resp.Routing.Advance()
	resp.Routing = advanced

	current, err := resp.Routing.CurrentHop()
	if err != nil {
		c.log.Warn("flood response has no next hop to forward to", "error", err)
		return
	}

	respPkt := wire.Packet{
		Kind:     wire.KindFloodResponse,
		Routing:  resp.Routing,
		Session:  wire.FloodResponseSessionID,
		FloodRes: resp,
	}

	sender, ok := c.senders[current]
	if !ok {
		if err := c.shortcutLocked(respPkt); err != nil {
			c.log.Error("failed to shortcut flood response through controller", "error", err)
		}
		return
	}
	select {
	case sender <- respPkt:
		if err := c.sendSCPacketLocked(ControllerEvent{Kind: EventPacketSent, Packet: respPkt}); err != nil {
			c.log.Warn("failed to mirror flood response to controller", "error", err)
		}
	default:
		if err := c.shortcutLocked(respPkt); err != nil {
			c.log.Error("failed to shortcut flood response through controller", "error", err)
		}
	}
}

// handleFloodResponseLocked implements the response-merge half of §4.10:
// fold the observed path into the topology graph, discover any new
// servers, subscribe to them, and advance the FSM out of ServerNotFound.
func (c *Client) handleFloodResponseLocked(pkt wire.Packet) {
	c.graph.UpdateGraph(pkt.FloodRes)

	foundNewServer := false
	for _, hop := range pkt.FloodRes.PathTrace {
		if hop.Type != netid.NodeTypeServer {
			continue
		}
		if _, known := c.servers[hop.Node]; known {
			continue
		}
		c.servers[hop.Node] = nil
		foundNewServer = true
		c.subscribeToServerLocked(hop.Node)
	}

	if foundNewServer {
		c.fsm = c.fsm.advance(NotSubscribedToServer)
	}
}
