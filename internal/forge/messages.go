// Package forge is the message codec ("packet_forge"): it serializes
// application-level messages, splits them into ordered fragment sequences
// sized to wire.MaxFragmentPayload, and reassembles a fragment sequence
// back into a typed message. It also owns the monotonically increasing
// session id allocator.
package forge

import "github.com/dronecast/overlay-client/internal/netid"

// ClientType distinguishes the kind of client subscribing to a server.
// The spec leaves the concrete values open; Video is the only one this
// client ever sends.
type ClientType uint8

const (
	ClientTypeVideo ClientType = iota
)

// VideoMetaData describes one piece of content a server or client knows
// about. ID is the Fletcher-16 digest of the remaining fields.
type VideoMetaData struct {
	ID          netid.FileHash
	Title       string
	Description string
	Duration    float32
	MimeType    string
	CreatedAt   string
}

// FileMetadataKind tags the single FileMetadata variant this client
// understands. The original protocol leaves room for other kinds (the
// spec quotes it as FileMetadata::Video(..)); this client only ever
// produces or consumes the Video variant, but the tag is kept so a future
// variant doesn't require a wire-format break.
type FileMetadataKind uint8

const (
	FileMetadataVideo FileMetadataKind = iota
)

// FileMetadata is a tagged union over content kinds advertised by a
// server's file list.
type FileMetadata struct {
	Kind  FileMetadataKind
	Video VideoMetaData
}

// PeerInfo identifies one peer known to serve a given video.
type PeerInfo struct {
	ClientID netid.NodeId
}

// ChunkIndexAll requests every chunk of a video, in order. The original
// protocol's Index type allows narrower ranges; this client only ever
// asks for everything, so ChunkRequest.Index is fixed to this value.
const ChunkIndexAll = "all"

// SubscribeClient registers this client with a content server, advertising
// the videos it can itself serve to peers.
type SubscribeClient struct {
	ClientID        netid.NodeId
	ClientType      ClientType
	AvailableVideos []VideoMetaData
}

// AckSubscribeClient confirms a SubscribeClient was accepted.
type AckSubscribeClient struct {
	ClientID netid.NodeId
}

// RequestFileList asks a server for its known content.
type RequestFileList struct{}

// ResponseFileList is a server's answer to RequestFileList.
type ResponseFileList struct {
	FileList []FileMetadata
}

// RequestPeerList asks a server which peers can serve a given video.
type RequestPeerList struct {
	VideoID netid.FileHash
}

// ResponsePeerList answers RequestPeerList.
type ResponsePeerList struct {
	FileHash netid.FileHash
	Peers    []PeerInfo
}

// ChunkRequest asks a peer to serve the named video's content, chunked.
type ChunkRequest struct {
	ClientID netid.NodeId
	FileHash netid.FileHash
	Index    string // always ChunkIndexAll today
}

// ChunkResponse carries one chunk of a video's content.
type ChunkResponse struct {
	FileHash    netid.FileHash
	ChunkIndex  uint32
	TotalChunks uint32
	ChunkData   []byte
}
