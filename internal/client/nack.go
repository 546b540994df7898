package client

import "github.com/dronecast/overlay-client/internal/wire"

// handleNackLocked implements §4.7.
func (c *Client) handleNackLocked(pkt wire.Packet) {
	original, ok := c.history.lookup(pkt.Nack.FragmentIndex, pkt.Session)
	if !ok {
		c.log.Warn("nack for unknown fragment, already acked or never sent",
			"session", pkt.Session, "fragment", pkt.Nack.FragmentIndex, "kind", pkt.Nack.Kind)
		return
	}

	if c.metrics != nil {
		c.metrics.PacketsNacked.WithLabelValues(pkt.Nack.Kind.String()).Inc()
	}

	switch pkt.Nack.Kind {
	case wire.NackDropped:
		c.handleDroppedNackLocked(pkt, original)
	case wire.NackErrorInRouting:
		c.handleRoutingErrorNackLocked(pkt)
	case wire.NackDestinationIsDrone, wire.NackUnexpectedRecipient:
		c.log.Warn("protocol-level nack from peer, no retransmission",
			"kind", pkt.Nack.Kind, "offender", pkt.Nack.Offender)
	default:
		c.log.Warn("unknown nack kind", "kind", pkt.Nack.Kind)
	}
}

// handleDroppedNackLocked penalizes the dropper and retransmits the
// original packet along a freshly computed path. original_destination is
// hops[len(hops)-1] of the retained packet's routing header — the source
// had an off-by-one bug using hops[len(hops)], which is out of bounds;
// the corrected value is the last hop, the packet's true destination.
func (c *Client) handleDroppedNackLocked(nack wire.Packet, original wire.Packet) {
	if len(nack.Routing.Hops) > 0 {
		c.graph.NodeNack(nack.Routing.Hops[0])
	}

	hops := original.Routing.Hops
	if len(hops) == 0 {
		c.log.Error("cannot retransmit, original packet has an empty route")
		return
	}
	destination := hops[len(hops)-1]

	srh, ok := c.graph.BestPath(c.id, destination)
	if !ok {
		c.log.Warn("no path to retransmit dropped fragment", "destination", destination)
		return
	}
	if len(srh.Hops) < 2 {
		c.log.Warn("retransmit path has no next hop", "destination", destination)
		return
	}
	nextHop := srh.Hops[1]
	sender, ok := c.senders[nextHop]
	if !ok {
		c.log.Warn("no neighbour sender for retransmit next hop", "node", nextHop)
		return
	}

	retransmit := original
	retransmit.Routing = srh.Advance()
	if err := c.sendPacketLocked(sender, retransmit); err != nil {
		c.log.Error("retransmit failed", "error", err)
	}
}

// handleRoutingErrorNackLocked implements the ErrorInRouting branch:
// forget the offending server if known, then trigger a re-flood subject
// to the 5-second rate-limit window.
func (c *Client) handleRoutingErrorNackLocked(pkt wire.Packet) {
	offender := pkt.Nack.Offender
	if _, known := c.servers[offender]; known {
		delete(c.servers, offender)
	}
	c.triggerRateLimitedFloodLocked()
}
