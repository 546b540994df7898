package client

import "sync"

// broadcastSlots holds the video and file-list broadcast subscriber
// channels under their own lock, independent of the main client lock, so
// HTTP handlers can install or replace a subscription without contending
// with the event loop's per-packet writer lock.
type broadcastSlots struct {
	mu       sync.RWMutex
	video    chan<- []byte
	fileList chan<- FileListEvent
}

// SetVideoSubscriber installs (or clears, with nil) the channel that
// receives chunk bytes as they become ready for delivery.
func (c *Client) SetVideoSubscriber(ch chan<- []byte) {
	c.broadcast.mu.Lock()
	defer c.broadcast.mu.Unlock()
	c.broadcast.video = ch
}

// SetFileListSubscriber installs (or clears, with nil) the channel that
// receives a FileListEvent as each ResponseFileList arrives.
func (c *Client) SetFileListSubscriber(ch chan<- FileListEvent) {
	c.broadcast.mu.Lock()
	defer c.broadcast.mu.Unlock()
	c.broadcast.fileList = ch
}

func (c *Client) publishVideoChunk(data []byte) {
	c.broadcast.mu.RLock()
	ch := c.broadcast.video
	c.broadcast.mu.RUnlock()
	if ch == nil {
		return
	}
	select {
	case ch <- data:
	default:
		c.log.Warn("video broadcast channel full, dropping chunk")
	}
}

func (c *Client) publishFileList(ev FileListEvent) {
	c.broadcast.mu.RLock()
	ch := c.broadcast.fileList
	c.broadcast.mu.RUnlock()
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
		c.log.Warn("file-list broadcast channel full, dropping event")
	}
}

// deliverChunk is the chunkbuffer.Buffer's delivery callback: publish the
// bytes and track received volume.
func (c *Client) deliverChunk(index uint32, data []byte) {
	c.publishVideoChunk(data)
	if c.metrics != nil {
		c.metrics.ChunkBytesRecv.Add(float64(len(data)))
	}
}
