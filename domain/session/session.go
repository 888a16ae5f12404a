// Package session provides dashboard session value types. Sessions are
// minted by the external identity provider (or the sessions CLI, which
// stands in for it); this system only validates them and resolves the
// owning tenant.
package session

import (
	"crypto/sha256"
	"time"
)

// TokenPrefix marks dashboard session tokens. Distinct from the API key
// prefix so a leaked token can never pass for a tracking credential.
const TokenPrefix = "ptses_"

// Session maps a bearer token (stored hashed) to a tenant.
type Session struct {
	ID        string
	TenantID  string
	TokenHash []byte // sha256 of the raw token
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
// This is a PURE function.
func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// HashToken creates a SHA-256 hash of a raw token for storage/lookup.
// Session tokens are high-entropy random values, so a fast hash is the
// right tradeoff here (unlike API key secrets, which use bcrypt).
// This is a PURE function.
func HashToken(rawToken string) []byte {
	h := sha256.Sum256([]byte(rawToken))
	return h[:]
}
