package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pathtracker/pathtracker/domain/session"
	"github.com/pathtracker/pathtracker/ports"
)

// SessionStore implements ports.SessionStore using SQLite.
type SessionStore struct {
	db *DB
}

// NewSessionStore creates a new SQLite session store.
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

// Create stores a new session.
func (s *SessionStore) Create(ctx context.Context, sess session.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, tenant_id, token_hash, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, sess.ID, sess.TenantID, sess.TokenHash, sess.CreatedAt, sess.ExpiresAt)
	return err
}

// GetByTokenHash retrieves a session by its token hash.
func (s *SessionStore) GetByTokenHash(ctx context.Context, hash []byte) (session.Session, error) {
	var sess session.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT session_id, tenant_id, token_hash, created_at, expires_at
		FROM sessions
		WHERE token_hash = ?
	`, hash).Scan(&sess.ID, &sess.TenantID, &sess.TokenHash, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, ErrNotFound
	}
	return sess, err
}

// Delete removes a session.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id)
	return err
}

// DeleteExpired removes all expired sessions.
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Ensure interface compliance.
var _ ports.SessionStore = (*SessionStore)(nil)
