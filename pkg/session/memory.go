package session

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	session Session
	expires time.Time
}

// MemoryStore keeps sessions in process. Expired entries are dropped on read.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]entry
}

// NewMemoryStore creates an in-memory store whose sessions live for ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]entry),
	}
}

// Get returns a copy of the session
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if m.now().After(e.expires) {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	s := e.session
	return &s, nil
}

// Save stores s and resets its expiry
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = entry{session: *s, expires: m.now().Add(m.ttl)}
	return nil
}

// Delete removes a session. Unknown IDs are ignored.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Close is a no-op
func (m *MemoryStore) Close() error {
	return nil
}
