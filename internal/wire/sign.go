package wire

import (
	"crypto/ed25519"
	"encoding/binary"
	"fmt"
)

// SignFloodResponse signs the observed path trace of a flood response using
// Ed25519, so a peer can tell the trace wasn't tampered with between the
// initiator and here. FloodResponse has no signature field and the codec
// does not carry one; the client itself neither signs nor verifies flood
// responses.
func SignFloodResponse(priv ed25519.PrivateKey, resp FloodResponse) []byte {
	msg := floodResponseSignedMessage(resp)
	return ed25519.Sign(priv, msg)
}

// VerifyFloodResponse checks a signature produced by SignFloodResponse.
func VerifyFloodResponse(pub ed25519.PublicKey, resp FloodResponse, sig []byte) bool {
	msg := floodResponseSignedMessage(resp)
	return ed25519.Verify(pub, msg, sig)
}

// floodResponseSignedMessage builds the canonical byte representation of a
// flood response's identity: flood id, initiator, and path trace.
func floodResponseSignedMessage(resp FloodResponse) []byte {
	msg := make([]byte, 0, 8+1+len(resp.PathTrace)*2)
	var idBuf [8]byte
	binary.LittleEndian.PutUint64(idBuf[:], resp.FloodID)
	msg = append(msg, idBuf[:]...)
	msg = append(msg, byte(resp.InitiatorID))
	for _, hop := range resp.PathTrace {
		msg = append(msg, byte(hop.Node), byte(hop.Type))
	}
	return msg
}

// String implements fmt.Stringer for debug logging of a path trace.
func (r FloodResponse) String() string {
	return fmt.Sprintf("FloodResponse{flood_id=%d initiator=%d hops=%d}", r.FloodID, r.InitiatorID, len(r.PathTrace))
}
