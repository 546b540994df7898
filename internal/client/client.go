package client

import (
	"context"
	"fmt"
	"time"

	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/netid"
)

// DefaultFloodInterval is how often the client re-floods the network to
// refresh its view of the topology and discover new servers, absent any
// routing-error-triggered re-flood in between.
const DefaultFloodInterval = 180 * time.Second

// Start runs the client's event loop until ctx is cancelled: it drains
// inbound packets and controller commands, and periodically re-floods on
// its own schedule. It blocks, so callers typically invoke it as
// `go client.Start(ctx, interval)`.
func (c *Client) Start(ctx context.Context, floodInterval time.Duration) {
	if floodInterval <= 0 {
		floodInterval = DefaultFloodInterval
	}
	ticker := time.NewTicker(floodInterval)
	defer ticker.Stop()

	c.mu.Lock()
	c.triggerFloodLocked()
	c.mu.Unlock()

	for {
		// Controller commands are served with priority over data packets,
		// so drain whatever is already queued here before falling into the
		// combined select below.
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-c.controllerRecv:
			if !ok {
				return
			}
			c.HandleCommand(cmd)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-c.controllerRecv:
			if !ok {
				return
			}
			c.HandleCommand(cmd)
		case pkt, ok := <-c.packetRecv:
			if !ok {
				return
			}
			c.HandlePacket(pkt)
		case <-ticker.C:
			c.mu.Lock()
			c.triggerFloodLocked()
			c.mu.Unlock()
		}
	}
}

// Terminated reports whether the FSM has reached its terminal state.
func (c *Client) Terminated() bool {
	return c.FSMState() == Terminated
}

// TriggerFlood issues an unconditional flood, for the manual HTTP
// /flood-req endpoint.
func (c *Client) TriggerFlood() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.triggerFloodLocked()
}

// RequestFileList broadcasts a RequestFileList to every known server.
// Returns an error if no server has been discovered yet.
func (c *Client) RequestFileList() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestFileListLocked()
}

// LocalVideos reports every video this client's own store knows about,
// for the /req-video-list-from-db endpoint.
func (c *Client) LocalVideos() ([]forge.VideoMetaData, error) {
	return c.store.ListMetadata()
}

// KnownServers reports every server discovered so far, for HTTP
// introspection.
func (c *Client) KnownServers() []netid.NodeId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]netid.NodeId, 0, len(c.servers))
	for id := range c.servers {
		out = append(out, id)
	}
	return out
}

// RequestVideo implements the /req-video/<video_id> entry point of §6: it
// resets the chunk reorder buffer, marks videoID as the active request,
// and either serves it straight from the local store or asks a known
// server for the peers that can.
func (c *Client) RequestVideo(videoID netid.FileHash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.chunkBuf.Reset()
	c.activeVideoRequest = videoID

	if content, ok, err := c.store.GetContent(videoID); err != nil {
		return fmt.Errorf("client: local lookup for video %v: %w", videoID, err)
	} else if ok {
		c.deliverLocalVideoLocked(content)
		return nil
	}

	return c.requestPeerListLocked(videoID)
}

// deliverLocalVideoLocked pushes locally stored content straight through
// the chunk buffer, as if it had arrived as a single in-order chunk.
func (c *Client) deliverLocalVideoLocked(content []byte) {
	c.chunkBuf.PushChunk(0, content)
}

// RequestPeerList issues a RequestPeerList for videoID to whichever known
// server advertises it. Exposed for callers that want to retry peer
// discovery without resetting an in-progress chunk stream.
func (c *Client) RequestPeerList(videoID netid.FileHash) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestPeerListLocked(videoID)
}

// SubscribeVideo is a convenience wrapper for sending an ad-hoc
// SubscribeClient to a specific server, used by tests and by HTTP-driven
// manual resubscription.
func (c *Client) SubscribeVideo(serverID netid.NodeId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeToServerLocked(serverID)
}
