package relay

import (
	"reflect"
	"sync"
)

// Registry is the set of connections currently eligible for broadcasts.
// Members are keyed by Conn.ID. All methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Add inserts c. Adding a connection that is already present is a no-op, so
// the registry never holds duplicates. It reports whether c was inserted.
func (r *Registry) Add(c Conn) bool {
	if c == nil {
		return false
	}
	id := c.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conns[id]; exists {
		return false
	}
	r.conns[id] = c
	return true
}

// Remove deletes c if it is the registered member for its id. Removing an
// absent connection, or a stale handle whose id now belongs to a different
// connection, does nothing. Conns whose values cannot be compared with ==
// are matched by ID alone. It reports whether an entry was deleted.
func (r *Registry) Remove(c Conn) bool {
	if c == nil {
		return false
	}
	id := c.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.conns[id]
	if !exists || !sameConn(current, c) {
		return false
	}
	delete(r.conns, id)
	return true
}

// sameConn reports whether a and b are the same connection. Comparing
// interfaces that hold funcs, maps or slices panics, so those fall back to
// ID equality.
func sameConn(a, b Conn) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	if !va.Comparable() || !vb.Comparable() {
		return a.ID() == b.ID()
	}
	return a == b
}

// Get returns the member registered under id.
func (r *Registry) Get(id string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conns[id]
	return c, ok
}

// Snapshot returns a copy of the current membership. The caller may iterate
// it freely while other goroutines Add or Remove.
func (r *Registry) Snapshot() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
