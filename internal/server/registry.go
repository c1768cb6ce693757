// Package server maps session identifiers to their live connections so that
// events can be routed to a peer and reconnections can supersede a stale
// socket.
package server

import "sync"

// SessionRegistry is the single source of truth for which live connection
// currently represents a session identifier. At most one connection is bound
// per identifier; a new connection claiming an identifier supersedes the old
// mapping without probing the old connection's liveness.
type SessionRegistry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{clients: make(map[string]*Client)}
}

// Bind registers or overwrites the live connection for sessionID.
func (r *SessionRegistry) Bind(sessionID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[sessionID] = c
}

// Unbind removes the mapping, but only while it still points at c. A
// superseded connection closing late must not evict its successor.
func (r *SessionRegistry) Unbind(sessionID string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.clients[sessionID]; !ok || current != c {
		return false
	}
	delete(r.clients, sessionID)
	return true
}

// ClientFor returns the live connection bound to sessionID. Absence means
// the peer is currently unreachable, which callers treat as "skip delivery",
// not as an error.
func (r *SessionRegistry) ClientFor(sessionID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[sessionID]
	return c, ok
}

// Bound reports whether sessionID currently has a live connection. Used when
// deciding whether a caller-supplied identifier may be adopted for a fresh
// session.
func (r *SessionRegistry) Bound(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.clients[sessionID]
	return ok
}
