// Package clockreg tracks the last-accepted Lamport clock value per
// peer, independently for publishers and readers. It enforces strict
// per-peer monotonicity: the aggregator does not merge clocks across
// peers and never echoes a clock back to a caller.
package clockreg

import "sync"

// Registry is a mutex-protected map from peer identity to the last
// value that peer's request stream advanced past. The zero value is
// ready to use, with every peer implicitly starting at 0.
type Registry struct {
	mu   sync.Mutex
	last map[string]int64
}

// New creates an empty clock registry.
func New() *Registry {
	return &Registry{last: make(map[string]int64)}
}

// Accept checks whether incoming is strictly greater than the peer's
// last-accepted value and, if so, records it as the new last-accepted
// value. It reports the peer's prior value (0 if this is the peer's
// first-ever request) and whether the request was accepted.
func (r *Registry) Accept(peer string, incoming int64) (prior int64, accepted bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior = r.last[peer]
	if incoming <= prior {
		return prior, false
	}
	if r.last == nil {
		r.last = make(map[string]int64)
	}
	r.last[peer] = incoming
	return prior, true
}

// Forget removes a peer's entry, used by the sweeper when a station's
// record expires so the station's next PUT is treated as first-contact.
func (r *Registry) Forget(peer string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.last, peer)
}

// Clear removes every entry, used on shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = make(map[string]int64)
}

// Len reports the number of tracked peers, used by metrics.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.last)
}
