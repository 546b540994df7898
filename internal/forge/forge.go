package forge

import (
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"

	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

// MessageKind tags the variant carried by a Message.
type MessageKind uint8

const (
	MsgSubscribeClient MessageKind = iota
	MsgAckSubscribeClient
	MsgRequestFileList
	MsgResponseFileList
	MsgRequestPeerList
	MsgResponsePeerList
	MsgChunkRequest
	MsgChunkResponse
)

func (k MessageKind) String() string {
	switch k {
	case MsgSubscribeClient:
		return "subscribe_client"
	case MsgAckSubscribeClient:
		return "ack_subscribe_client"
	case MsgRequestFileList:
		return "request_file_list"
	case MsgResponseFileList:
		return "response_file_list"
	case MsgRequestPeerList:
		return "request_peer_list"
	case MsgResponsePeerList:
		return "response_peer_list"
	case MsgChunkRequest:
		return "chunk_request"
	case MsgChunkResponse:
		return "chunk_response"
	default:
		return "unknown"
	}
}

// Message is the tagged union over every application-level message this
// client sends or receives. Exactly one of the payload fields is set,
// matching MessageKind.
type Message struct {
	Kind               MessageKind
	SubscribeClient    SubscribeClient
	AckSubscribeClient AckSubscribeClient
	RequestFileList    RequestFileList
	ResponseFileList   ResponseFileList
	RequestPeerList    RequestPeerList
	ResponsePeerList   ResponsePeerList
	ChunkRequest       ChunkRequest
	ChunkResponse      ChunkResponse
}

// wireMessage is the CBOR-serializable form: kind plus the raw bytes of
// the matching payload struct, so the decoder only needs the tag to know
// how to interpret the rest.
type wireMessage struct {
	Kind    MessageKind
	Payload []byte
}

var (
	ErrLengthMismatch = errors.New("forge: fragment length mismatch across session")
	ErrGap            = errors.New("forge: fragment sequence has a gap")
	ErrDecode         = errors.New("forge: failed to decode message")
)

// Forge assembles and disassembles application messages and allocates
// session ids. It has no mutable state beyond the session counter, so a
// single Forge may be shared across every send in a client.
type Forge struct {
	nextSession atomic.Uint64
}

// New creates a Forge with a fresh session id allocator.
func New() *Forge {
	return &Forge{}
}

// NextSessionID returns a fresh, monotonically increasing session id.
func (f *Forge) NextSessionID() netid.SessionId {
	return netid.SessionId(f.nextSession.Add(1))
}

// Disassemble serializes msg and splits it into an ordered sequence of
// MsgFragment packets, all sharing a fresh session id and a copy of the
// given routing header advanced one hop (HopIndex 1, the first neighbour).
func (f *Forge) Disassemble(msg Message, routing wire.SourceRoutingHeader) ([]wire.Packet, error) {
	payload, err := cbor.Marshal(msg.payloadValue())
	if err != nil {
		return nil, fmt.Errorf("forge: marshal payload: %w", err)
	}
	wm := wireMessage{Kind: msg.Kind, Payload: payload}
	raw, err := cbor.Marshal(wm)
	if err != nil {
		return nil, fmt.Errorf("forge: marshal envelope: %w", err)
	}

	total := (len(raw) + wire.MaxFragmentPayload - 1) / wire.MaxFragmentPayload
	if total == 0 {
		total = 1
	}
	session := f.NextSessionID()

	packets := make([]wire.Packet, 0, total)
	for i := 0; i < total; i++ {
		start := i * wire.MaxFragmentPayload
		end := start + wire.MaxFragmentPayload
		if end > len(raw) {
			end = len(raw)
		}
		frag, err := wire.NewFragment(uint32(i), uint32(total), raw[start:end])
		if err != nil {
			return nil, fmt.Errorf("forge: build fragment %d: %w", i, err)
		}
		packets = append(packets, wire.Packet{
			Kind:     wire.KindFragment,
			Routing:  routing.Clone().Advance(),
			Session:  session,
			Fragment: frag,
		})
	}
	return packets, nil
}

// AssembleDynamic re-concatenates fragment payloads ordered by
// FragmentIndex and decodes the result into a Message. It tolerates
// fragments arriving out of order, but fails on a length mismatch, a gap
// in the sequence, or a decode error.
func (f *Forge) AssembleDynamic(fragments []wire.Fragment) (Message, error) {
	if len(fragments) == 0 {
		return Message{}, fmt.Errorf("%w: no fragments", ErrDecode)
	}

	total := fragments[0].TotalFragments
	for _, frag := range fragments {
		if frag.TotalFragments != total {
			return Message{}, ErrLengthMismatch
		}
	}

	sorted := append([]wire.Fragment(nil), fragments...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FragmentIndex < sorted[j].FragmentIndex })

	for i, frag := range sorted {
		if frag.FragmentIndex != uint32(i) {
			return Message{}, ErrGap
		}
	}

	var raw []byte
	for _, frag := range sorted {
		raw = append(raw, frag.Payload()...)
	}

	var wm wireMessage
	if err := cbor.Unmarshal(raw, &wm); err != nil {
		return Message{}, fmt.Errorf("%w: envelope: %v", ErrDecode, err)
	}

	msg := Message{Kind: wm.Kind}
	var err error
	switch wm.Kind {
	case MsgSubscribeClient:
		err = cbor.Unmarshal(wm.Payload, &msg.SubscribeClient)
	case MsgAckSubscribeClient:
		err = cbor.Unmarshal(wm.Payload, &msg.AckSubscribeClient)
	case MsgRequestFileList:
		err = cbor.Unmarshal(wm.Payload, &msg.RequestFileList)
	case MsgResponseFileList:
		err = cbor.Unmarshal(wm.Payload, &msg.ResponseFileList)
	case MsgRequestPeerList:
		err = cbor.Unmarshal(wm.Payload, &msg.RequestPeerList)
	case MsgResponsePeerList:
		err = cbor.Unmarshal(wm.Payload, &msg.ResponsePeerList)
	case MsgChunkRequest:
		err = cbor.Unmarshal(wm.Payload, &msg.ChunkRequest)
	case MsgChunkResponse:
		err = cbor.Unmarshal(wm.Payload, &msg.ChunkResponse)
	default:
		return Message{}, fmt.Errorf("%w: unknown kind %d", ErrDecode, wm.Kind)
	}
	if err != nil {
		return Message{}, fmt.Errorf("%w: payload: %v", ErrDecode, err)
	}
	return msg, nil
}

// payloadValue returns the field matching m.Kind, for marshaling.
func (m Message) payloadValue() any {
	switch m.Kind {
	case MsgSubscribeClient:
		return m.SubscribeClient
	case MsgAckSubscribeClient:
		return m.AckSubscribeClient
	case MsgRequestFileList:
		return m.RequestFileList
	case MsgResponseFileList:
		return m.ResponseFileList
	case MsgRequestPeerList:
		return m.RequestPeerList
	case MsgResponsePeerList:
		return m.ResponsePeerList
	case MsgChunkRequest:
		return m.ChunkRequest
	case MsgChunkResponse:
		return m.ChunkResponse
	default:
		return nil
	}
}
