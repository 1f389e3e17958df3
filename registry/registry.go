// Package registry tracks which session identifiers are currently bound to a
// live connection. It targets per-session heartbeats and feeds the
// sessions-tracked gauge; group membership, not the registry, is authoritative
// for delivery.
package registry

import (
	"sync"

	"github.com/vishal2612200/websocket-relay/metrics"
)

type Registry struct {
	mu       sync.Mutex
	sessions map[string]struct{}
}

func New() *Registry {
	return &Registry{
		sessions: make(map[string]struct{}),
	}
}

// Add records a session id. Repeated adds of the same id are idempotent.
func (r *Registry) Add(sessionID string) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	r.sessions[sessionID] = struct{}{}
	size := len(r.sessions)
	r.mu.Unlock()

	metrics.SessionsTracked.Set(float64(size))
}

// Remove forgets a session id. Removing an unknown id is a no-op.
func (r *Registry) Remove(sessionID string) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	delete(r.sessions, sessionID)
	size := len(r.sessions)
	r.mu.Unlock()

	metrics.SessionsTracked.Set(float64(size))
}

// Snapshot returns a point-in-time copy of the tracked session ids, safe to
// iterate while adds and removes continue concurrently.
func (r *Registry) Snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
