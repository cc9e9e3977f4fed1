// Package election implements the client/server election state
// machine: the negotiation predicate, the Unconfirmed -> Confirmed /
// Failed -> Connected client state transitions, the connection-control
// wire vocabulary, and the handoff ("Switch") sequence (spec
// component C5).
package election

import "sync/atomic"

// ClientState is this node's outgoing-connection state.
type ClientState int32

const (
	Unconfirmed ClientState = iota
	Confirmed
	Failed
	Connected
)

func (s ClientState) String() string {
	switch s {
	case Unconfirmed:
		return "unconfirmed"
	case Confirmed:
		return "confirmed"
	case Failed:
		return "failed"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// allowedTransitions enumerates the edges of spec.md §4.5.3. Failed and
// Connected are terminal from this machine's point of view: leaving
// Failed happens via Disconnect (a reset, not a transition) and
// Connected is terminal until socket close (also a reset).
var allowedTransitions = map[ClientState]map[ClientState]bool{
	Unconfirmed: {Confirmed: true, Failed: true},
	Confirmed:   {Connected: true},
	Failed:      {},
	Connected:   {},
}

// AtomicClientState is a lock-free ClientState, read from the
// discovery driver and written from transport callbacks without
// co-holding the shared-state lock.
type AtomicClientState struct {
	v atomic.Int32
}

// NewAtomicClientState returns a state initialized to initial.
func NewAtomicClientState(initial ClientState) *AtomicClientState {
	a := &AtomicClientState{}
	a.v.Store(int32(initial))
	return a
}

// Load returns the current state.
func (a *AtomicClientState) Load() ClientState {
	return ClientState(a.v.Load())
}

// Reset forces the state to v, bypassing the transition table. Used
// on a fresh outgoing Connect and on Disconnect, both of which start a
// new lifetime rather than transition within one.
func (a *AtomicClientState) Reset(v ClientState) {
	a.v.Store(int32(v))
}

// Transition attempts to move from the current state to to along an
// allowed edge. It reports whether the transition took effect; a
// transition to the current state always succeeds as a no-op.
func (a *AtomicClientState) Transition(to ClientState) bool {
	for {
		cur := a.Load()
		if cur == to {
			return true
		}
		if !allowedTransitions[cur][to] {
			return false
		}
		if a.v.CompareAndSwap(int32(cur), int32(to)) {
			return true
		}
	}
}
