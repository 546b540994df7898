// Package reassembly collects per-session fragment sequences and emits the
// ordered fragment set once every fragment has arrived. Unlike the
// multipart reassembly this is adapted from, it does not discard
// incomplete sessions on a timer: retransmission of missing fragments is
// driven by nacks, not by this package, so an incomplete session simply
// waits.
package reassembly

import (
	"sync"

	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

type sessionState struct {
	fragments map[uint32]wire.Fragment
	total     uint32
}

// Reassembler accumulates wire.Fragment values keyed by the SessionId
// they belong to.
type Reassembler struct {
	mu       sync.Mutex
	sessions map[netid.SessionId]*sessionState
}

// New creates an empty Reassembler.
func New() *Reassembler {
	return &Reassembler{
		sessions: make(map[netid.SessionId]*sessionState),
	}
}

// HandleFragment records one fragment of a session. Once every fragment
// of that session's TotalFragments has been seen, it returns the full set
// in FragmentIndex order and forgets the session; otherwise it returns
// nil, false.
func (r *Reassembler) HandleFragment(session netid.SessionId, frag wire.Fragment) ([]wire.Fragment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.sessions[session]
	if !ok {
		state = &sessionState{
			fragments: make(map[uint32]wire.Fragment, frag.TotalFragments),
			total:     frag.TotalFragments,
		}
		r.sessions[session] = state
	}
	state.fragments[frag.FragmentIndex] = frag

	if uint32(len(state.fragments)) < state.total {
		return nil, false
	}

	ordered := make([]wire.Fragment, state.total)
	for i := uint32(0); i < state.total; i++ {
		ordered[i] = state.fragments[i]
	}
	delete(r.sessions, session)
	return ordered, true
}

// HasFragment reports whether a given fragment index of a session has
// already been received.
func (r *Reassembler) HasFragment(session netid.SessionId, index uint32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.sessions[session]
	if !ok {
		return false
	}
	_, ok = state.fragments[index]
	return ok
}

// PendingCount reports how many sessions are mid-reassembly.
func (r *Reassembler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Abandon discards an in-progress session.
func (r *Reassembler) Abandon(session netid.SessionId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, session)
}
