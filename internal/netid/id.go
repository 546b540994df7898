// Package netid defines the small identifier types shared across the
// overlay client: node identities, session identifiers, and the content
// hash used to name videos.
package netid

import "fmt"

// NodeId identifies any participant in the drone-relayed network: a
// client, a server, or a drone. The network is small enough that a single
// byte is sufficient, matching the source-routing header's hop encoding.
type NodeId uint8

// String renders the id for logging.
func (n NodeId) String() string {
	return fmt.Sprintf("%d", uint8(n))
}

// SessionId names one application-level message. All fragments produced
// by disassembling that message share the same SessionId.
type SessionId uint64

// FileHash is the stable content identifier for a video, a 16-bit
// deterministic digest over its descriptor fields.
type FileHash uint16

// NodeType distinguishes the role a NodeId plays, as observed through
// flood path traces.
type NodeType uint8

const (
	NodeTypeClient NodeType = iota
	NodeTypeServer
	NodeTypeDrone
)

func (t NodeType) String() string {
	switch t {
	case NodeTypeClient:
		return "client"
	case NodeTypeServer:
		return "server"
	case NodeTypeDrone:
		return "drone"
	default:
		return "unknown"
	}
}
