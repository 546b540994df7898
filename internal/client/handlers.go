package client

import (
	"fmt"

	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

// chunkSize bounds the payload carried by a single ChunkResponse.
const chunkSize = 2048

// dispatchMessageLocked implements §4.8: route a freshly reassembled
// application message to its handler. Callers must already hold c.mu.
func (c *Client) dispatchMessageLocked(pkt wire.Packet, msg forge.Message) {
	sender, err := pkt.Routing.Origin()
	if err != nil {
		c.log.Warn("cannot determine message origin", "kind", msg.Kind, "error", err)
		return
	}

	switch msg.Kind {
	case forge.MsgSubscribeClient:
		c.log.Warn("unexpected SubscribeClient at a client, ignoring", "sender", sender)
	case forge.MsgAckSubscribeClient:
		c.handleAckSubscribeClientLocked(msg.AckSubscribeClient)
	case forge.MsgRequestFileList:
		c.log.Warn("unexpected RequestFileList at a client, ignoring", "sender", sender)
	case forge.MsgResponseFileList:
		c.handleResponseFileListLocked(sender, msg.ResponseFileList)
	case forge.MsgRequestPeerList:
		c.log.Warn("unexpected RequestPeerList at a client, ignoring", "sender", sender)
	case forge.MsgResponsePeerList:
		c.handleResponsePeerListLocked(msg.ResponsePeerList)
	case forge.MsgChunkRequest:
		c.handleChunkRequestLocked(msg.ChunkRequest)
	case forge.MsgChunkResponse:
		c.handleChunkResponseLocked(msg.ChunkResponse)
	default:
		c.log.Warn("dropping message of unknown kind", "kind", msg.Kind)
	}
}

// subscribeToServerLocked sends a SubscribeClient to a newly discovered
// server, advertising this client's locally stored videos.
func (c *Client) subscribeToServerLocked(serverID netid.NodeId) {
	videos, err := c.store.ListMetadata()
	if err != nil {
		c.log.Error("failed to list local videos for subscription", "error", err)
		videos = nil
	}
	msg := forge.Message{
		Kind: forge.MsgSubscribeClient,
		SubscribeClient: forge.SubscribeClient{
			ClientID:        c.id,
			ClientType:      c.clientType,
			AvailableVideos: videos,
		},
	}
	if err := c.sendMsgLocked(serverID, msg); err != nil {
		c.log.Error("failed to send SubscribeClient", "server", serverID, "error", err)
	}
}

// handleAckSubscribeClientLocked implements the AckSubscribeClient branch
// of §4.8: on confirmation addressed to this client, advance the FSM.
func (c *Client) handleAckSubscribeClientLocked(ack forge.AckSubscribeClient) {
	if ack.ClientID != c.id {
		c.log.Warn("AckSubscribeClient addressed to another client, ignoring", "client_id", ack.ClientID)
		return
	}
	c.fsm = c.fsm.advance(SubscribedToServer)
}

// requestFileListLocked broadcasts a RequestFileList to every known server.
func (c *Client) requestFileListLocked() error {
	dests := make([]netid.NodeId, 0, len(c.servers))
	for server := range c.servers {
		dests = append(dests, server)
	}
	return c.broadcastMsgLocked(dests, forge.Message{Kind: forge.MsgRequestFileList})
}

// handleResponseFileListLocked records which videos a server advertises,
// advances the FSM if this was still pending a first file list, and
// publishes the update for HTTP subscribers.
func (c *Client) handleResponseFileListLocked(server netid.NodeId, resp forge.ResponseFileList) {
	videos := make([]forge.VideoMetaData, 0, len(resp.FileList))
	ids := make([]netid.FileHash, 0, len(resp.FileList))
	for _, fm := range resp.FileList {
		if fm.Kind != forge.FileMetadataVideo {
			continue
		}
		videos = append(videos, fm.Video)
		ids = append(ids, fm.Video.ID)
	}
	c.servers[server] = ids

	if c.fsm == NotSubscribedToServer {
		c.fsm = c.fsm.advance(SubscribedToServer)
	}
	c.publishFileList(FileListEvent{ServerID: server, Videos: videos})
}

// requestPeerListLocked finds a server advertising videoID and asks it for
// the peers that can serve that video.
func (c *Client) requestPeerListLocked(videoID netid.FileHash) error {
	for server, ids := range c.servers {
		for _, id := range ids {
			if id == videoID {
				return c.sendMsgLocked(server, forge.Message{
					Kind:            forge.MsgRequestPeerList,
					RequestPeerList: forge.RequestPeerList{VideoID: videoID},
				})
			}
		}
	}
	return fmt.Errorf("client: no known server advertises video %v", videoID)
}

// handleResponsePeerListLocked issues a ChunkRequest to the first
// advertised peer, per §4.8's "peers[0]" selection rule.
func (c *Client) handleResponsePeerListLocked(resp forge.ResponsePeerList) {
	if len(resp.Peers) == 0 {
		c.log.Info("no peers available for video", "file_hash", resp.FileHash)
		return
	}
	peer := resp.Peers[0]
	msg := forge.Message{
		Kind: forge.MsgChunkRequest,
		ChunkRequest: forge.ChunkRequest{
			ClientID: c.id,
			FileHash: resp.FileHash,
			Index:    forge.ChunkIndexAll,
		},
	}
	if err := c.sendMsgLocked(peer.ClientID, msg); err != nil {
		c.log.Error("failed to request chunks from peer", "peer", peer.ClientID, "error", err)
	}
}

// handleChunkRequestLocked implements the peer-serving side of §4.8: load
// the content from local storage, split it into chunks, and send each one
// back to the requester.
func (c *Client) handleChunkRequestLocked(req forge.ChunkRequest) {
	content, ok, err := c.store.GetContent(req.FileHash)
	if err != nil {
		c.log.Error("failed to load content for chunk request", "file_hash", req.FileHash, "error", err)
		return
	}
	if !ok {
		c.log.Warn("chunk request for unknown content", "file_hash", req.FileHash, "requester", req.ClientID)
		return
	}

	total := uint32((len(content) + chunkSize - 1) / chunkSize)
	if total == 0 {
		total = 1
	}
	for i := uint32(0); i < total; i++ {
		start := int(i) * chunkSize
		end := start + chunkSize
		if end > len(content) {
			end = len(content)
		}
		resp := forge.Message{
			Kind: forge.MsgChunkResponse,
			ChunkResponse: forge.ChunkResponse{
				FileHash:    req.FileHash,
				ChunkIndex:  i,
				TotalChunks: total,
				ChunkData:   append([]byte(nil), content[start:end]...),
			},
		}
		if err := c.sendMsgLocked(req.ClientID, resp); err != nil {
			c.log.Error("failed to send chunk response", "chunk", i, "error", err)
			return
		}
		if c.metrics != nil {
			c.metrics.ChunkBytesServed.Add(float64(end - start))
		}
	}
}

// handleChunkResponseLocked feeds one chunk into the reorder buffer for
// the video currently being requested.
func (c *Client) handleChunkResponseLocked(resp forge.ChunkResponse) {
	if resp.FileHash != c.activeVideoRequest {
		c.log.Warn("chunk response for a video that is not the active request, ignoring",
			"file_hash", resp.FileHash, "active", c.activeVideoRequest)
		return
	}
	c.chunkBuf.PushChunk(resp.ChunkIndex, resp.ChunkData)
}
