package session

import (
	"sync"

	"github.com/google/uuid"
)

// Store maps session IDs to live sessions. Sessions are created on first
// use and live for the process lifetime.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Get returns the session for an ID, creating it if absent. An empty ID
// gets a fresh anonymous session under a generated ID.
func (st *Store) Get(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}

	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s
	}
	s = &Session{}
	st.sessions[id] = s
	return s
}

// Reset clears the history of the given session, if it exists. Unknown
// IDs are a no-op: resetting a conversation that never started is fine.
func (st *Store) Reset(id string) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		s.Reset()
	}
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
