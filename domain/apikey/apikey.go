// Package apikey provides API key value types and pure validation functions.
// This package has NO dependencies on I/O or external packages.
package apikey

import "time"

const (
	// SecretPrefix is the fixed prefix of every plaintext key secret.
	SecretPrefix = "pwtrk_"

	// SecretRandomLength is the number of random characters after the prefix.
	SecretRandomLength = 32

	// LookupPrefixLength is how many leading characters of the plaintext
	// secret are stored for candidate lookup. Not unique: collisions are
	// expected and tolerated by the validation loop.
	LookupPrefixLength = 12
)

// Failure codes surfaced to callers. These map 1:1 onto the HTTP error
// taxonomy (all of them answer 401).
const (
	CodeUnauthorized = "UNAUTHORIZED"
	CodeRevoked      = "API_KEY_REVOKED"
	CodeExpired      = "API_KEY_EXPIRED"
)

// Key represents an API key (immutable value type).
// The plaintext secret is never stored; only its bcrypt hash and the
// lookup prefix are.
type Key struct {
	ID         string
	TenantID   string
	Name       string
	Hash       []byte // bcrypt hash of the full plaintext secret
	Prefix     string // first 12 chars of the plaintext, for lookup
	CreatedAt  time.Time
	ExpiresAt  *time.Time // nil = never expires
	Revoked    bool
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	UsageCount int64
}

// Identity is the result of successful validation.
type Identity struct {
	TenantID string
	KeyID    string
}

// Failure is a typed validation failure.
type Failure struct {
	Code    string
	Message string
}

// Preview returns the masked form shown in key listings,
// e.g. "pwtrk_abcde6...".
func (k Key) Preview() string {
	return k.Prefix + "..."
}
