// internal/store/guard.go
package store

import "sync"

// Guard deduplicates fetches: at most one in flight, and at most one
// successful-or-failed attempt until forced or invalidated. A failed fetch
// still counts as fetched so callers don't hammer a broken backend.
type Guard struct {
	mu       sync.Mutex
	fetched  bool
	inFlight bool
}

// Begin reports whether the caller should perform the fetch. When it returns
// true the caller must call Done afterwards.
func (g *Guard) Begin(force bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight {
		return false
	}
	if g.fetched && !force {
		return false
	}
	g.inFlight = true
	return true
}

// Done marks the attempt finished.
func (g *Guard) Done() {
	g.mu.Lock()
	g.inFlight = false
	g.fetched = true
	g.mu.Unlock()
}

// Invalidate makes the next Begin fetch again.
func (g *Guard) Invalidate() {
	g.mu.Lock()
	g.fetched = false
	g.mu.Unlock()
}

// Fetched reports whether an attempt has completed since the last Invalidate.
func (g *Guard) Fetched() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetched
}
