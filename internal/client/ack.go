package client

import "github.com/dronecast/overlay-client/internal/wire"

// handleAckLocked implements §4.6: reward the path and evict the
// matching history entry. A missing history entry is a protocol warning,
// not fatal — it means the fragment was already acked or never sent by
// this client.
func (c *Client) handleAckLocked(pkt wire.Packet) {
	c.graph.NodesAck(pkt.Routing)

	if !c.history.remove(pkt.Ack.FragmentIndex, pkt.Session) {
		c.log.Warn("ack for unknown in-flight fragment", "session", pkt.Session, "fragment", pkt.Ack.FragmentIndex)
		return
	}
	if c.metrics != nil {
		c.metrics.PacketsAcked.Inc()
		c.metrics.HistorySize.Set(float64(c.history.len()))
	}
}
