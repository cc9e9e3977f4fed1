package election

import (
	"sync"

	"meshpeer/internal/transport"
)

// ConfirmedClients is the set of connection identifiers whose Confirm
// has been received by this node acting as server. Its size is the
// definition of IsConnectedAsServer (spec.md §9, open question 3) —
// distinct from whether the listener is merely running.
type ConfirmedClients struct {
	mu  sync.Mutex
	ids map[transport.ConnID]struct{}
}

// NewConfirmedClients returns an empty set.
func NewConfirmedClients() *ConfirmedClients {
	return &ConfirmedClients{ids: make(map[transport.ConnID]struct{})}
}

// Add records id as a confirmed follower.
func (c *ConfirmedClients) Add(id transport.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[id] = struct{}{}
}

// Remove drops id, e.g. on connection close. Idempotent.
func (c *ConfirmedClients) Remove(id transport.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, id)
}

// Size returns the number of confirmed followers.
func (c *ConfirmedClients) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}

// Snapshot copies the current set of confirmed follower ids.
func (c *ConfirmedClients) Snapshot() []transport.ConnID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]transport.ConnID, 0, len(c.ids))
	for id := range c.ids {
		out = append(out, id)
	}
	return out
}

// Clear drops all confirmed followers, as happens when this node
// concedes coordinator duties during a handoff.
func (c *ConfirmedClients) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = make(map[transport.ConnID]struct{})
}

// IsConnectedAsServer reports whether at least one client has
// confirmed.
func (c *ConfirmedClients) IsConnectedAsServer() bool {
	return c.Size() > 0
}
