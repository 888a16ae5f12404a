package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pathtracker/pathtracker/domain/session"
	"github.com/pathtracker/pathtracker/ports"
)

// ErrSessionExpired is returned when a presented session token is known
// but past its expiry.
var ErrSessionExpired = errors.New("session expired")

// DefaultSessionTTL is how long a minted session lives.
const DefaultSessionTTL = 24 * time.Hour

// SessionService manages dashboard sessions. Session tokens are hashed
// with SHA-256 rather than bcrypt: they are high-entropy random values,
// not passwords, and get checked on every dashboard request.
type SessionService struct {
	sessions ports.SessionStore
	tenants  ports.TenantStore
	random   ports.Random
	clock    ports.Clock
	idGen    ports.IDGenerator

	mu         sync.RWMutex
	defaultTTL time.Duration
}

// NewSessionService creates a new session service.
func NewSessionService(sessions ports.SessionStore, tenants ports.TenantStore, random ports.Random, clock ports.Clock, idGen ports.IDGenerator) *SessionService {
	return &SessionService{
		sessions:   sessions,
		tenants:    tenants,
		random:     random,
		clock:      clock,
		idGen:      idGen,
		defaultTTL: DefaultSessionTTL,
	}
}

// SetDefaultTTL overrides the lifetime used when Create is called with a
// non-positive TTL. Non-positive values restore DefaultSessionTTL. Called
// at startup and on config reload.
func (s *SessionService) SetDefaultTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s.mu.Lock()
	s.defaultTTL = ttl
	s.mu.Unlock()
}

// Create mints a session for the tenant and returns the plaintext token.
// The token is shown once; only its hash is stored.
func (s *SessionService) Create(ctx context.Context, tenantID string, ttl time.Duration) (string, session.Session, error) {
	if _, err := s.tenants.Get(ctx, tenantID); err != nil {
		return "", session.Session{}, err
	}
	if ttl <= 0 {
		s.mu.RLock()
		ttl = s.defaultTTL
		s.mu.RUnlock()
	}

	random, err := s.random.String(32)
	if err != nil {
		return "", session.Session{}, err
	}
	token := session.TokenPrefix + random

	now := s.clock.Now()
	sess := session.Session{
		ID:        s.idGen.New(),
		TenantID:  tenantID,
		TokenHash: session.HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	if err := s.sessions.Create(ctx, sess); err != nil {
		return "", session.Session{}, err
	}
	return token, sess, nil
}

// Resolve maps a presented plaintext token to its session. Expired
// sessions answer ErrSessionExpired and get deleted opportunistically.
func (s *SessionService) Resolve(ctx context.Context, token string) (session.Session, error) {
	sess, err := s.sessions.GetByTokenHash(ctx, session.HashToken(token))
	if err != nil {
		return session.Session{}, err
	}
	if sess.Expired(s.clock.Now()) {
		_ = s.sessions.Delete(ctx, sess.ID)
		return session.Session{}, ErrSessionExpired
	}
	return sess, nil
}

// Delete ends a session (logout).
func (s *SessionService) Delete(ctx context.Context, id string) error {
	return s.sessions.Delete(ctx, id)
}

// PurgeExpired removes all sessions past their expiry and reports how many
// were deleted.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.sessions.DeleteExpired(ctx, s.clock.Now())
}
