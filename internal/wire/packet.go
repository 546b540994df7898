// Package wire defines the packet vocabulary this client consumes from the
// drone transport: source routing, fragments, acks/nacks, and flood
// request/response framing. The byte format of the underlying transport is
// given (owned by the drone network); this package models the Go-side
// shape of that vocabulary plus the codec needed to carry it over a real
// link when bridged (see internal/bridge).
package wire

import (
	"errors"
	"fmt"

	"github.com/dronecast/overlay-client/internal/netid"
)

// MaxFragmentPayload bounds a single fragment's data length.
const MaxFragmentPayload = 128

var (
	ErrEmptyHops      = errors.New("source routing header has no hops")
	ErrHopIndexRange  = errors.New("hop index out of range")
	ErrFragmentTooBig = errors.New("fragment payload exceeds maximum size")
)

// SourceRoutingHeader (SRH) carries the explicit hop list a packet travels
// and the index of the hop the packet currently sits at.
type SourceRoutingHeader struct {
	Hops     []netid.NodeId
	HopIndex int
}

// NewSRH builds a fresh SRH with HopIndex at the origin.
func NewSRH(hops ...netid.NodeId) SourceRoutingHeader {
	cp := make([]netid.NodeId, len(hops))
	copy(cp, hops)
	return SourceRoutingHeader{Hops: cp, HopIndex: 0}
}

// CurrentHop returns hops[HopIndex].
func (s SourceRoutingHeader) CurrentHop() (netid.NodeId, error) {
	if len(s.Hops) == 0 {
		return 0, ErrEmptyHops
	}
	if s.HopIndex < 0 || s.HopIndex >= len(s.Hops) {
		return 0, ErrHopIndexRange
	}
	return s.Hops[s.HopIndex], nil
}

// NextHop returns hops[HopIndex+1].
func (s SourceRoutingHeader) NextHop() (netid.NodeId, error) {
	if len(s.Hops) == 0 {
		return 0, ErrEmptyHops
	}
	if s.HopIndex+1 >= len(s.Hops) {
		return 0, ErrHopIndexRange
	}
	return s.Hops[s.HopIndex+1], nil
}

// Origin returns hops[0], the packet's source.
func (s SourceRoutingHeader) Origin() (netid.NodeId, error) {
	if len(s.Hops) == 0 {
		return 0, ErrEmptyHops
	}
	return s.Hops[0], nil
}

// Destination returns the last hop, the packet's final recipient.
func (s SourceRoutingHeader) Destination() (netid.NodeId, error) {
	if len(s.Hops) == 0 {
		return 0, ErrEmptyHops
	}
	return s.Hops[len(s.Hops)-1], nil
}

// Advance increments HopIndex, returning a new header (the receiver is not
// mutated in place so callers can retain the original for history).
func (s SourceRoutingHeader) Advance() SourceRoutingHeader {
	next := s
	next.Hops = s.Hops
	next.HopIndex = s.HopIndex + 1
	return next
}

// Reverse yields the hops in reverse order with HopIndex reset to 0,
// used to route an ack or flood response back toward the sender.
func (s SourceRoutingHeader) Reverse() SourceRoutingHeader {
	reversed := make([]netid.NodeId, len(s.Hops))
	for i, h := range s.Hops {
		reversed[len(s.Hops)-1-i] = h
	}
	return SourceRoutingHeader{Hops: reversed, HopIndex: 0}
}

// Clone returns a deep copy.
func (s SourceRoutingHeader) Clone() SourceRoutingHeader {
	hops := make([]netid.NodeId, len(s.Hops))
	copy(hops, s.Hops)
	return SourceRoutingHeader{Hops: hops, HopIndex: s.HopIndex}
}

// PacketKind tags the variant carried by a Packet.
type PacketKind uint8

const (
	KindFragment PacketKind = iota
	KindAck
	KindNack
	KindFloodRequest
	KindFloodResponse
)

func (k PacketKind) String() string {
	switch k {
	case KindFragment:
		return "fragment"
	case KindAck:
		return "ack"
	case KindNack:
		return "nack"
	case KindFloodRequest:
		return "flood_request"
	case KindFloodResponse:
		return "flood_response"
	default:
		return "unknown"
	}
}

// Fragment is one unit of the fragmented transport; TotalFragments is
// identical across every fragment sharing a SessionId.
type Fragment struct {
	FragmentIndex  uint32
	TotalFragments uint32
	Length         uint32
	Data           [MaxFragmentPayload]byte
}

// Payload returns the fragment's valid data slice.
func (f Fragment) Payload() []byte {
	return f.Data[:f.Length]
}

// NewFragment packs data into a Fragment, validating its size.
func NewFragment(index, total uint32, data []byte) (Fragment, error) {
	if len(data) > MaxFragmentPayload {
		return Fragment{}, fmt.Errorf("%w: %d > %d", ErrFragmentTooBig, len(data), MaxFragmentPayload)
	}
	var f Fragment
	f.FragmentIndex = index
	f.TotalFragments = total
	f.Length = uint32(len(data))
	copy(f.Data[:], data)
	return f, nil
}

// NackKind classifies why a fragment was not delivered.
type NackKind uint8

const (
	NackDropped NackKind = iota
	NackDestinationIsDrone
	NackErrorInRouting
	NackUnexpectedRecipient
)

func (k NackKind) String() string {
	switch k {
	case NackDropped:
		return "dropped"
	case NackDestinationIsDrone:
		return "destination_is_drone"
	case NackErrorInRouting:
		return "error_in_routing"
	case NackUnexpectedRecipient:
		return "unexpected_recipient"
	default:
		return "unknown"
	}
}

// Nack is a negative acknowledgement for one fragment. Offender is only
// meaningful for NackErrorInRouting and NackUnexpectedRecipient.
type Nack struct {
	FragmentIndex uint32
	Kind          NackKind
	Offender      netid.NodeId
}

// Ack is a positive, per-fragment (non-cumulative) acknowledgement.
type Ack struct {
	FragmentIndex uint32
}

// PathHop is one entry of a flood's observed path trace.
type PathHop struct {
	Node netid.NodeId
	Type netid.NodeType
}

// FloodRequest propagates outward during topology discovery, accumulating
// a path trace as it is observed by each participant that handles it.
type FloodRequest struct {
	FloodID     uint64
	InitiatorID netid.NodeId
	PathTrace   []PathHop
}

// FloodResponseSessionID is the session id every flood response is sent
// under, mirroring the mesh firmware's own generate_response(session_id=1).
// Nothing downstream depends on it being exactly 1; it is kept verbatim
// for wire compatibility.
const FloodResponseSessionID = 1

// GenerateResponse derives a FloodResponse from a completed request, with
// the SRH set to the reversed path trace and HopIndex at 0.
func (r FloodRequest) GenerateResponse() FloodResponse {
	hops := make([]netid.NodeId, len(r.PathTrace))
	for i, h := range r.PathTrace {
		hops[i] = h.Node
	}
	srh := NewSRH(hops...).Reverse()
	return FloodResponse{
		FloodID:     r.FloodID,
		InitiatorID: r.InitiatorID,
		PathTrace:   append([]PathHop(nil), r.PathTrace...),
		Routing:     srh,
	}
}

// FloodResponse carries the full observed path back to the initiator.
type FloodResponse struct {
	FloodID     uint64
	InitiatorID netid.NodeId
	PathTrace   []PathHop
	Routing     SourceRoutingHeader
}

// Packet is the envelope common to every inbound/outbound unit: a source
// routing header, a session id, and exactly one payload variant.
type Packet struct {
	Kind     PacketKind
	Routing  SourceRoutingHeader
	Session  netid.SessionId
	Fragment Fragment
	Ack      Ack
	Nack     Nack
	Flood    FloodRequest
	FloodRes FloodResponse
}

// Clone returns a copy whose routing header can be mutated independently
// of the original.
func (p Packet) Clone() Packet {
	cp := p
	cp.Routing = p.Routing.Clone()
	return cp
}
