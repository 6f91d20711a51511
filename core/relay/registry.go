package relay

import (
	"sync"

	"github.com/trezcool/proctor/core/user"
)

// Connection is a live bidirectional channel to one client.
type Connection interface {
	ID() string
	// Send queues msg without blocking; it returns false when the message was dropped.
	Send(msg Message) bool
	Close() error
}

type registration struct {
	conn      Connection
	principal user.Principal
}

// Registry maps each identity to its single current Connection.
type Registry struct {
	mu         sync.RWMutex
	identities map[string]registration
	conns      map[string]string // connection ID -> identity
}

func NewRegistry() *Registry {
	return &Registry{
		identities: make(map[string]registration),
		conns:      make(map[string]string),
	}
}

// Register binds conn to the principal's identity. A previous connection of the same identity is closed.
func (r *Registry) Register(conn Connection, p user.Principal) {
	r.mu.Lock()
	prev, replaced := r.identities[p.ID]
	if replaced {
		delete(r.conns, prev.conn.ID())
	}
	r.identities[p.ID] = registration{conn: conn, principal: p}
	r.conns[conn.ID()] = p.ID
	r.mu.Unlock()

	if replaced && prev.conn.ID() != conn.ID() {
		_ = prev.conn.Close()
	}
}

// Unregister removes conn. It reports the principal only when conn was still the identity's current connection.
func (r *Registry) Unregister(conn Connection) (user.Principal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.conns[conn.ID()]
	if !ok {
		return user.Principal{}, false
	}
	delete(r.conns, conn.ID())

	reg := r.identities[identity]
	if reg.conn.ID() != conn.ID() {
		return user.Principal{}, false
	}
	delete(r.identities, identity)
	return reg.principal, true
}

func (r *Registry) Lookup(identity string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.identities[identity]
	return reg.conn, ok
}

// Observers returns the connections of all observers registered at call time.
func (r *Registry) Observers() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Connection, 0, len(r.identities))
	for _, reg := range r.identities {
		if reg.principal.IsObserver() {
			conns = append(conns, reg.conn)
		}
	}
	return conns
}

// All returns every registered connection.
func (r *Registry) All() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Connection, 0, len(r.identities))
	for _, reg := range r.identities {
		conns = append(conns, reg.conn)
	}
	return conns
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.identities)
}
