package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/dronecast/overlay-client/internal/netid"
)

// wireEnvelope is the CBOR-serializable mirror of Packet, used only when a
// Packet needs to cross a real transport (internal/bridge). In-process
// delivery over Go channels never touches this type.
type wireEnvelope struct {
	Kind     PacketKind
	Hops     []uint8
	HopIndex int
	Session  uint64

	FragIndex uint32
	FragTotal uint32
	FragLen   uint32
	FragData  []byte

	AckIndex uint32

	NackIndex    uint32
	NackKind     NackKind
	NackOffender uint8

	FloodID      uint64
	FloodInit    uint8
	FloodTrace   []wirePathHop
	FloodResHops []uint8
}

type wirePathHop struct {
	Node uint8
	Type uint8
}

// Encode serializes a Packet to CBOR for transmission over a bridged
// transport (MQTT/serial).
func Encode(p Packet) ([]byte, error) {
	env := wireEnvelope{
		Kind:     p.Kind,
		HopIndex: p.Routing.HopIndex,
		Session:  uint64(p.Session),
	}
	for _, h := range p.Routing.Hops {
		env.Hops = append(env.Hops, uint8(h))
	}

	switch p.Kind {
	case KindFragment:
		env.FragIndex = p.Fragment.FragmentIndex
		env.FragTotal = p.Fragment.TotalFragments
		env.FragLen = p.Fragment.Length
		env.FragData = append([]byte(nil), p.Fragment.Payload()...)
	case KindAck:
		env.AckIndex = p.Ack.FragmentIndex
	case KindNack:
		env.NackIndex = p.Nack.FragmentIndex
		env.NackKind = p.Nack.Kind
		env.NackOffender = uint8(p.Nack.Offender)
	case KindFloodRequest:
		env.FloodID = p.Flood.FloodID
		env.FloodInit = uint8(p.Flood.InitiatorID)
		for _, h := range p.Flood.PathTrace {
			env.FloodTrace = append(env.FloodTrace, wirePathHop{Node: uint8(h.Node), Type: uint8(h.Type)})
		}
	case KindFloodResponse:
		env.FloodID = p.FloodRes.FloodID
		env.FloodInit = uint8(p.FloodRes.InitiatorID)
		for _, h := range p.FloodRes.PathTrace {
			env.FloodTrace = append(env.FloodTrace, wirePathHop{Node: uint8(h.Node), Type: uint8(h.Type)})
		}
		for _, h := range p.FloodRes.Routing.Hops {
			env.FloodResHops = append(env.FloodResHops, uint8(h))
		}
	default:
		return nil, fmt.Errorf("wire: unknown packet kind %d", p.Kind)
	}

	return cbor.Marshal(env)
}

// Decode reconstructs a Packet from bytes produced by Encode.
func Decode(data []byte) (Packet, error) {
	var env wireEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return Packet{}, fmt.Errorf("wire: decode envelope: %w", err)
	}

	var p Packet
	p.Kind = env.Kind
	p.Session = netid.SessionId(env.Session)
	for _, h := range env.Hops {
		p.Routing.Hops = append(p.Routing.Hops, netid.NodeId(h))
	}
	p.Routing.HopIndex = env.HopIndex

	switch env.Kind {
	case KindFragment:
		frag, err := NewFragment(env.FragIndex, env.FragTotal, env.FragData[:env.FragLen])
		if err != nil {
			return Packet{}, fmt.Errorf("wire: decode fragment: %w", err)
		}
		p.Fragment = frag
	case KindAck:
		p.Ack = Ack{FragmentIndex: env.AckIndex}
	case KindNack:
		p.Nack = Nack{FragmentIndex: env.NackIndex, Kind: env.NackKind, Offender: netid.NodeId(env.NackOffender)}
	case KindFloodRequest:
		p.Flood = FloodRequest{FloodID: env.FloodID, InitiatorID: netid.NodeId(env.FloodInit)}
		for _, h := range env.FloodTrace {
			p.Flood.PathTrace = append(p.Flood.PathTrace, PathHop{Node: netid.NodeId(h.Node), Type: netid.NodeType(h.Type)})
		}
	case KindFloodResponse:
		p.FloodRes = FloodResponse{FloodID: env.FloodID, InitiatorID: netid.NodeId(env.FloodInit)}
		for _, h := range env.FloodTrace {
			p.FloodRes.PathTrace = append(p.FloodRes.PathTrace, PathHop{Node: netid.NodeId(h.Node), Type: netid.NodeType(h.Type)})
		}
		for _, h := range env.FloodResHops {
			p.FloodRes.Routing.Hops = append(p.FloodRes.Routing.Hops, netid.NodeId(h))
		}
	default:
		return Packet{}, fmt.Errorf("wire: unknown packet kind %d", env.Kind)
	}

	return p, nil
}
