package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pathtracker/pathtracker/domain/apikey"
	"github.com/pathtracker/pathtracker/ports"
)

// KeyStore implements ports.KeyStore using SQLite.
type KeyStore struct {
	db *DB
}

// NewKeyStore creates a new SQLite key store.
func NewKeyStore(db *DB) *KeyStore {
	return &KeyStore{db: db}
}

const keyColumns = `key_id, tenant_id, name, key_hash, key_prefix, created_at, expires_at, revoked, revoked_at, last_used_at, usage_count`

// Create stores a new key.
func (s *KeyStore) Create(ctx context.Context, k apikey.Key) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (`+keyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, k.ID, k.TenantID, k.Name, k.Hash, k.Prefix, k.CreatedAt,
		nullTime(k.ExpiresAt), k.Revoked, nullTime(k.RevokedAt), nullTime(k.LastUsedAt), k.UsageCount)
	return err
}

// GetByPrefix retrieves all non-revoked keys matching a lookup prefix.
func (s *KeyStore) GetByPrefix(ctx context.Context, prefix string) ([]apikey.Key, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+keyColumns+`
		FROM api_keys
		WHERE key_prefix = ? AND revoked = 0
	`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []apikey.Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// GetByID retrieves one key scoped to a tenant.
func (s *KeyStore) GetByID(ctx context.Context, tenantID, keyID string) (apikey.Key, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+keyColumns+`
		FROM api_keys
		WHERE key_id = ? AND tenant_id = ?
	`, keyID, tenantID)

	k, err := scanKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return apikey.Key{}, ErrNotFound
	}
	return k, err
}

// ListByTenant returns all keys for a tenant, newest first.
func (s *KeyStore) ListByTenant(ctx context.Context, tenantID string) ([]apikey.Key, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+keyColumns+`
		FROM api_keys
		WHERE tenant_id = ?
		ORDER BY created_at DESC
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []apikey.Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revoke marks a key as revoked. The tenant scope in the WHERE clause is
// what turns a cross-tenant revoke attempt into a not-found.
func (s *KeyStore) Revoke(ctx context.Context, tenantID, keyID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET revoked = 1, revoked_at = ?
		WHERE key_id = ? AND tenant_id = ?
	`, at, keyID, tenantID)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// Rename changes a key's display name.
func (s *KeyStore) Rename(ctx context.Context, tenantID, keyID, name string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET name = ?
		WHERE key_id = ? AND tenant_id = ?
	`, name, keyID, tenantID)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// NameExists reports whether a key with this name exists in the tenant.
func (s *KeyStore) NameExists(ctx context.Context, tenantID, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM api_keys WHERE tenant_id = ? AND name = ?
	`, tenantID, name).Scan(&n)
	return n > 0, err
}

// RecordUsage bumps the usage counter and last-used timestamp. The
// counter increment happens inside the statement, never read-modify-write
// in application code.
func (s *KeyStore) RecordUsage(ctx context.Context, keyID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET usage_count = usage_count + 1, last_used_at = ?
		WHERE key_id = ?
	`, at, keyID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (apikey.Key, error) {
	var k apikey.Key
	var expiresAt, revokedAt, lastUsedAt sql.NullTime

	err := row.Scan(
		&k.ID, &k.TenantID, &k.Name, &k.Hash, &k.Prefix, &k.CreatedAt,
		&expiresAt, &k.Revoked, &revokedAt, &lastUsedAt, &k.UsageCount,
	)
	if err != nil {
		return apikey.Key{}, err
	}

	if expiresAt.Valid {
		k.ExpiresAt = &expiresAt.Time
	}
	if revokedAt.Valid {
		k.RevokedAt = &revokedAt.Time
	}
	if lastUsedAt.Valid {
		k.LastUsedAt = &lastUsedAt.Time
	}
	return k, nil
}

func checkAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// nullTime converts a *time.Time to sql.NullTime.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Ensure interface compliance.
var _ ports.KeyStore = (*KeyStore)(nil)
