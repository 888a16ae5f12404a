package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/pathtracker/pathtracker/domain/session"
	"github.com/pathtracker/pathtracker/ports"
)

// SessionStore is an in-memory implementation of ports.SessionStore.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]session.Session
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]session.Session)}
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, sess session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sess.ID] = sess
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (s *SessionStore) GetByTokenHash(ctx context.Context, hash []byte) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if bytes.Equal(sess.TokenHash, hash) {
			return sess, nil
		}
	}
	return session.Session{}, ErrNotFound
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// DeleteExpired removes all expired sessions.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

// Ensure interface compliance.
var _ ports.SessionStore = (*SessionStore)(nil)
