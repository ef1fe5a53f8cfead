package mcpserver

import (
	"sync"

	"github.com/google/uuid"
)

// SessionStore keys ClientSessions by the Mcp-Session-Id a transport is
// willing to persist (HTTP, SSE, streamable-HTTP). WebSocket and stdio
// don't need one: the connection itself is the session's lifetime.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*ClientSession
}

// NewSessionStore builds an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*ClientSession)}
}

// Get returns the session bound to id, creating one with sender if id is
// empty or unseen. It returns the resolved id so the caller can echo it
// back as Mcp-Session-Id.
func (s *SessionStore) Get(id string, sender Sender) (*ClientSession, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if session, ok := s.sessions[id]; ok {
			return session, id
		}
	} else {
		id = uuid.NewString()
	}
	session := NewClientSession(id, sender)
	s.sessions[id] = session
	return session, id
}

// Delete removes a session, e.g. on connection close or explicit
// termination.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}
