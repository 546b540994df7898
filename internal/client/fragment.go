package client

import "github.com/dronecast/overlay-client/internal/wire"

// handleFragmentLocked implements §4.5: accumulate the fragment, ack it
// immediately, and once the session is complete, reassemble and dispatch
// the decoded message. Callers must already hold c.mu as a writer.
func (c *Client) handleFragmentLocked(pkt wire.Packet) {
	if err := c.sendAckLocked(pkt); err != nil {
		c.log.Warn("failed to send fragment ack", "session", pkt.Session, "fragment", pkt.Fragment.FragmentIndex, "error", err)
	}

	fragments, complete := c.reassembler.HandleFragment(pkt.Session, pkt.Fragment)
	if !complete {
		return
	}

	msg, err := c.forge.AssembleDynamic(fragments)
	if err != nil {
		c.log.Error("failed to reassemble message", "session", pkt.Session, "error", err)
		return
	}
	c.dispatchMessageLocked(pkt, msg)
}
