package election

import (
	"sync"
	"time"

	"meshpeer/internal/registry"
)

// NextServerValidity is the window in which a NextServer value is
// honored before it is treated as expired (spec.md §4.5.2/§6).
const NextServerValidity = 4 * time.Second

// NextServer records the host a conceding node (or a Switched
// follower) must reconnect to, with a short validity window so a
// stale handoff cannot loop forever.
type NextServer struct {
	mu       sync.Mutex
	host     registry.Host
	setAt    time.Time
	hasValue bool
}

// Set records host as the next server to connect to, starting a fresh
// validity window.
func (n *NextServer) Set(host registry.Host) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.host = host
	n.setAt = time.Now()
	n.hasValue = true
}

// Get returns the recorded host iff it was set within the last
// NextServerValidity, else the zero Host and false.
func (n *NextServer) Get() (registry.Host, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.hasValue {
		return registry.Host{}, false
	}
	if time.Since(n.setAt) > NextServerValidity {
		return registry.Host{}, false
	}
	return n.host, true
}

// Clear drops the recorded value immediately.
func (n *NextServer) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hasValue = false
}
