package runtime

import (
	"sync"
	"treasure-hunt/contract"
)

// Registry is the set of live connections, keyed by connection id.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]contract.Connection
}

func NewRegistry() *Registry {
	return &Registry{connections: make(map[string]contract.Connection)}
}

// Register adds the connection. It returns false if the id is already present.
func (r *Registry) Register(conn contract.Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connections[conn.ID()]; exists {
		return false
	}
	r.connections[conn.ID()] = conn
	return true
}

// Unregister removes the connection with this id. Removing an unknown id is a no-op.
func (r *Registry) Unregister(id string) (contract.Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[id]
	if ok {
		delete(r.connections, id)
	}
	return conn, ok
}

// Connections is a snapshot; the registry may change right after it is taken.
func (r *Registry) Connections() []contract.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]contract.Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		conns = append(conns, conn)
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}
