package registry

import "sync"

// Registry is the single source of truth for "is this script running".
// It is a pure in-memory map from identity to the current RunRecord and is
// lost on daemon restart. Reads and writes come from concurrent command
// handlers, so all access goes through the lock; liveness itself is always
// recomputed by the record, never stored here.
type Registry struct {
	mu   sync.RWMutex
	recs map[string]*RunRecord
}

func New() *Registry {
	return &Registry{recs: make(map[string]*RunRecord)}
}

// Get returns the current record for identity, if any. The record may refer
// to an already-exited process; callers decide via Alive.
func (g *Registry) Get(identity string) (*RunRecord, bool) {
	g.mu.RLock()
	r, ok := g.recs[identity]
	g.mu.RUnlock()
	return r, ok
}

// Put installs rec as the record for identity, replacing any previous one.
func (g *Registry) Put(identity string, rec *RunRecord) {
	g.mu.Lock()
	g.recs[identity] = rec
	g.mu.Unlock()
}

// Remove drops the record for identity.
func (g *Registry) Remove(identity string) {
	g.mu.Lock()
	delete(g.recs, identity)
	g.mu.Unlock()
}

// IsAlive reports whether identity has a record whose process is still alive.
// The underlying probe hits the OS on every call.
func (g *Registry) IsAlive(identity string) bool {
	r, ok := g.Get(identity)
	return ok && r.Alive()
}

// Names returns the identities currently tracked, dead or alive.
func (g *Registry) Names() []string {
	g.mu.RLock()
	out := make([]string, 0, len(g.recs))
	for name := range g.recs {
		out = append(out, name)
	}
	g.mu.RUnlock()
	return out
}
