package registry

import (
	"sort"
	"sync"
)

// PeerRegistry is an ordered set of known peers, keyed by host name,
// maintained in ascending lexicographic order. It guards its state
// with a single mutex; unlike the reference design's recursive mutex,
// no operation here re-enters the registry while holding the lock, so
// a plain sync.Mutex is sufficient and avoids the surprising re-entry
// semantics recursive mutexes invite.
type PeerRegistry struct {
	mu    sync.Mutex
	peers []Peer
}

// NewPeerRegistry returns an empty registry.
func NewPeerRegistry() *PeerRegistry {
	return &PeerRegistry{}
}

// Add inserts peer, or if a peer with the same name already exists,
// updates its port and source and minimizes its Time with the
// incoming value so the freshest observation wins. Insertion
// preserves lexicographic order by name.
func (r *PeerRegistry) Add(peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, found := r.search(peer.Host.Name)
	if found {
		existing := &r.peers[idx]
		existing.Host.Port = peer.Host.Port
		existing.Source = peer.Source
		if peer.Time < existing.Time {
			existing.Time = peer.Time
		}
		return
	}

	r.peers = append(r.peers, Peer{})
	copy(r.peers[idx+1:], r.peers[idx:])
	r.peers[idx] = peer
}

// Prune first adds addTime to every peer's Time (ageing happens only
// here, on the tick, not on a per-entry wall-clock timer), then
// removes every peer whose Time is at or above maxTime.
func (r *PeerRegistry) Prune(maxTime, addTime uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.peers[:0]
	for _, p := range r.peers {
		p.Time += addTime
		if p.Time < maxTime {
			kept = append(kept, p)
		}
	}
	r.peers = kept
}

// Get returns a copy of the entire ordered sequence of peers.
func (r *PeerRegistry) Get() []Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Peer, len(r.peers))
	copy(out, r.peers)
	return out
}

// Size returns the number of known peers.
func (r *PeerRegistry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.peers)
}

// Lookup returns the peer with the given name, if present.
func (r *PeerRegistry) Lookup(name string) (Peer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, found := r.search(name)
	if !found {
		return Peer{}, false
	}
	return r.peers[idx], true
}

// search returns the index at which name is, or should be inserted to
// keep r.peers sorted, and whether it was found exactly.
func (r *PeerRegistry) search(name string) (int, bool) {
	idx := sort.Search(len(r.peers), func(i int) bool {
		return r.peers[i].Host.Name >= name
	})
	if idx < len(r.peers) && r.peers[idx].Host.Name == name {
		return idx, true
	}
	return idx, false
}
