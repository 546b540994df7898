package client

import (
	"fmt"

	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

// sendPacketLocked pushes pkt onto sender, records it in history, and
// mirrors it to the controller as a PacketSent event. Callers must
// already hold c.mu as a writer.
func (c *Client) sendPacketLocked(sender chan<- wire.Packet, pkt wire.Packet) error {
	select {
	case sender <- pkt:
	default:
		return fmt.Errorf("client: send packet: neighbour channel is full or closed")
	}

	if pkt.Kind == wire.KindFragment {
		c.history.record(pkt.Fragment.FragmentIndex, pkt.Session, pkt)
		if c.metrics != nil {
			c.metrics.HistorySize.Set(float64(c.history.len()))
		}
	}
	if err := c.sendSCPacketLocked(ControllerEvent{Kind: EventPacketSent, Packet: pkt}); err != nil {
		c.log.Warn("failed to mirror sent packet to controller", "error", err)
	}
	if c.metrics != nil {
		c.metrics.PacketsSent.Inc()
	}
	return nil
}

// sendSCPacketLocked enqueues an event onto the controller channel.
func (c *Client) sendSCPacketLocked(event ControllerEvent) error {
	if c.controllerSend == nil {
		return nil
	}
	select {
	case c.controllerSend <- event:
		return nil
	default:
		return fmt.Errorf("client: controller channel is full or closed")
	}
}

// shortcutLocked emits a ControllerShortcut event for a packet this
// client could not hand to a direct neighbour sender.
func (c *Client) shortcutLocked(pkt wire.Packet) error {
	return c.sendSCPacketLocked(ControllerEvent{Kind: EventControllerShortcut, Packet: pkt})
}

// sendMsgLocked computes the best path to dest, disassembles msg into
// fragments, and sends each one via the first hop's neighbour sender.
func (c *Client) sendMsgLocked(dest netid.NodeId, msg forge.Message) error {
	srh, ok := c.graph.BestPath(c.id, dest)
	if !ok {
		return fmt.Errorf("client: no known path to node %v", dest)
	}
	if len(srh.Hops) < 2 {
		return fmt.Errorf("client: destination %v is this node", dest)
	}
	nextHop := srh.Hops[1]
	sender, ok := c.senders[nextHop]
	if !ok {
		return fmt.Errorf("client: no neighbour sender for next hop %v", nextHop)
	}

	packets, err := c.forge.Disassemble(msg, srh)
	if err != nil {
		return fmt.Errorf("client: disassemble message: %w", err)
	}
	for _, pkt := range packets {
		if err := c.sendPacketLocked(sender, pkt); err != nil {
			return fmt.Errorf("client: send fragment %d: %w", pkt.Fragment.FragmentIndex, err)
		}
	}
	return nil
}

// broadcastMsgLocked sends msg to every node in dests, collecting (not
// short-circuiting on) individual failures.
func (c *Client) broadcastMsgLocked(dests []netid.NodeId, msg forge.Message) error {
	if len(dests) == 0 {
		return fmt.Errorf("client: no known servers to broadcast to")
	}
	var firstErr error
	for _, dest := range dests {
		if err := c.sendMsgLocked(dest, msg); err != nil {
			c.log.Warn("broadcast send failed", "dest", dest, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// sendAckLocked builds and sends a per-fragment ack for an inbound
// fragment packet. It does not touch history: acks are never retransmitted.
func (c *Client) sendAckLocked(inbound wire.Packet) error {
	reversed := inbound.Routing.Reverse().Advance()
	if len(reversed.Hops) < 2 {
		return fmt.Errorf("client: cannot ack, reversed route has no next hop")
	}
	nextHop := reversed.Hops[1]
	sender, ok := c.senders[nextHop]
	if !ok {
		return fmt.Errorf("client: no neighbour sender for ack next hop %v", nextHop)
	}

	ack := wire.Packet{
		Kind:    wire.KindAck,
		Routing: reversed,
		Session: inbound.Session,
		Ack:     wire.Ack{FragmentIndex: inbound.Fragment.FragmentIndex},
	}

	select {
	case sender <- ack:
	default:
		return fmt.Errorf("client: send ack: neighbour channel is full or closed")
	}
	if err := c.sendSCPacketLocked(ControllerEvent{Kind: EventPacketSent, Packet: ack}); err != nil {
		c.log.Warn("failed to mirror ack to controller", "error", err)
	}
	return nil
}

// SendMsg is the exported, lock-acquiring entry point for outbound
// application actions originating from the HTTP surface (as opposed to
// packet handlers, which already hold the lock via the dispatcher).
func (c *Client) SendMsg(dest netid.NodeId, msg forge.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendMsgLocked(dest, msg)
}
