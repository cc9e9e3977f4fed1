// Package syncutil provides the shared-state lock guarding all mutable
// state in a NetworkPeer. Its non-standard requirement is in-place
// upgrade/downgrade: a held shared lock can be promoted to exclusive,
// and a held exclusive lock demoted back to shared, without releasing
// and re-acquiring from scratch, so a critical section's invariants
// survive the transition. Go's sync.RWMutex has no native upgrade, so
// this emulates one with an RWMutex plus a dedicated "intent to
// upgrade" Mutex: a promoting guard takes the intent token before
// releasing its read lock and taking the write lock, which serializes
// promotions against each other and blocks new readers from slipping
// in between the release and the re-acquire.
package syncutil

import "sync"

type mode int

const (
	modeShared mode = iota
	modeExclusive
)

// RWLock is the shared-state lock. The zero value is ready to use.
type RWLock struct {
	mu        sync.RWMutex
	upgradeMu sync.Mutex
}

// Guard is a scoped handle on the lock, held in either shared or
// exclusive mode. It must be released with Destroy.
type Guard struct {
	lock     *RWLock
	mode     mode
	released bool
}

// Acquire takes the lock in shared mode, the default.
func (l *RWLock) Acquire() *Guard {
	// Pass through the intent token so a reader cannot start while a
	// promotion is between its read release and write acquire.
	l.upgradeMu.Lock()
	l.mu.RLock()
	l.upgradeMu.Unlock()
	return &Guard{lock: l, mode: modeShared}
}

// AcquireExclusive takes the lock directly in exclusive mode.
func (l *RWLock) AcquireExclusive() *Guard {
	l.upgradeMu.Lock()
	l.mu.Lock()
	return &Guard{lock: l, mode: modeExclusive}
}

// Promote upgrades a shared guard to exclusive in place. A no-op if
// the guard is already exclusive.
func (g *Guard) Promote() {
	if g.mode == modeExclusive {
		return
	}
	g.lock.upgradeMu.Lock()
	g.lock.mu.RUnlock()
	g.lock.mu.Lock()
	g.mode = modeExclusive
}

// Demote downgrades an exclusive guard to shared in place. A no-op if
// the guard is already shared.
func (g *Guard) Demote() {
	if g.mode == modeShared {
		return
	}
	g.lock.mu.Unlock()
	g.lock.mu.RLock()
	g.lock.upgradeMu.Unlock()
	g.mode = modeShared
}

// Destroy releases the guard early. Idempotent.
func (g *Guard) Destroy() {
	if g.released {
		return
	}
	switch g.mode {
	case modeExclusive:
		g.lock.mu.Unlock()
		g.lock.upgradeMu.Unlock()
	default:
		g.lock.mu.RUnlock()
	}
	g.released = true
}

// IsExclusive reports whether the guard currently holds the lock in
// exclusive mode.
func (g *Guard) IsExclusive() bool {
	return g.mode == modeExclusive
}
