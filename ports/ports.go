// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/pathtracker/pathtracker/domain/apikey"
	"github.com/pathtracker/pathtracker/domain/event"
	"github.com/pathtracker/pathtracker/domain/session"
	"github.com/pathtracker/pathtracker/domain/tenant"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// Random abstracts randomness for testability.
type Random interface {
	// Bytes generates n random bytes.
	Bytes(n int) ([]byte, error)
	// String generates a random string of n characters.
	String(n int) (string, error)
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher provides secret hashing.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) ([]byte, error)

	// Compare checks if plaintext matches hash.
	Compare(hash []byte, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// KeyStore persists API keys. Plaintext secrets never cross this
// interface; only hashes and lookup prefixes do.
type KeyStore interface {
	// Create stores a new key.
	Create(ctx context.Context, k apikey.Key) error

	// GetByPrefix retrieves all NON-REVOKED keys whose stored lookup prefix
	// equals prefix. Collisions are expected; callers disambiguate by hash.
	GetByPrefix(ctx context.Context, prefix string) ([]apikey.Key, error)

	// GetByID retrieves one key scoped to a tenant.
	GetByID(ctx context.Context, tenantID, keyID string) (apikey.Key, error)

	// ListByTenant returns all keys for a tenant, newest first.
	ListByTenant(ctx context.Context, tenantID string) ([]apikey.Key, error)

	// Revoke marks a key as revoked. Terminal: there is no un-revoke.
	Revoke(ctx context.Context, tenantID, keyID string, at time.Time) error

	// Rename changes a key's display name.
	Rename(ctx context.Context, tenantID, keyID, name string) error

	// NameExists reports whether a key with this name exists in the tenant.
	NameExists(ctx context.Context, tenantID, name string) (bool, error)

	// RecordUsage bumps the usage counter and last-used timestamp as one
	// atomic statement at the storage layer.
	RecordUsage(ctx context.Context, keyID string, at time.Time) error
}

// TenantStore persists tenants.
type TenantStore interface {
	// Get retrieves a tenant by ID.
	Get(ctx context.Context, id string) (tenant.Tenant, error)

	// Create stores a new tenant.
	Create(ctx context.Context, t tenant.Tenant) error

	// Update persists a mutated tenant (settings changes only).
	Update(ctx context.Context, t tenant.Tenant) error

	// List returns all tenants.
	List(ctx context.Context) ([]tenant.Tenant, error)
}

// EventStore persists and queries immutable REST/LLM events. Events are
// append-only: there is deliberately no update or delete method.
type EventStore interface {
	// InsertRest stores one REST event row.
	InsertRest(ctx context.Context, e event.Rest) error

	// InsertLLM stores one LLM event row.
	InsertLLM(ctx context.Context, e event.LLM) error

	// ListRestByRequestID returns all REST events for (tenant, request_id)
	// in insertion order.
	ListRestByRequestID(ctx context.Context, tenantID, requestID string) ([]event.Rest, error)

	// ListLLMByRequestID returns all LLM events for (tenant, request_id)
	// in insertion order.
	ListLLMByRequestID(ctx context.Context, tenantID, requestID string) ([]event.LLM, error)

	// ListRest returns up to limit REST events matching the filter,
	// descending by request timestamp.
	ListRest(ctx context.Context, f event.Filter, limit int) ([]event.Rest, error)

	// ListLLM returns up to limit LLM events matching the filter
	// (including its LLM-only fields), descending by request timestamp.
	ListLLM(ctx context.Context, f event.Filter, limit int) ([]event.LLM, error)

	// CountRest counts REST events under the filter's common fields.
	CountRest(ctx context.Context, f event.Filter) (int64, error)

	// CountLLM counts LLM events under the filter's common fields,
	// ignoring the LLM-only filter fields.
	CountLLM(ctx context.Context, f event.Filter) (int64, error)

	// RestLatencies returns all REST latency values in the window,
	// including negative ones.
	RestLatencies(ctx context.Context, tenantID string, start, end time.Time) ([]int64, error)

	// LLMLatencies returns all LLM latency values in the window.
	LLMLatencies(ctx context.Context, tenantID string, start, end time.Time) ([]int64, error)

	// CountRestByService groups REST events in the window by service.
	CountRestByService(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error)

	// CountRestByStatus groups REST events in the window by status code.
	CountRestByStatus(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error)

	// CountLLMByProvider groups LLM events in the window by provider.
	CountLLMByProvider(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error)

	// CountLLMByModel groups LLM events in the window by model.
	CountLLMByModel(ctx context.Context, tenantID string, start, end time.Time) (map[string]int64, error)

	// SumLLM returns the token and cost sums over the window.
	SumLLM(ctx context.Context, tenantID string, start, end time.Time) (tokens int64, costUSD float64, err error)

	// UserStats returns the per-user rollup across both event tables,
	// ordered by total request count descending, capped at limit.
	UserStats(ctx context.Context, tenantID string, start, end time.Time, limit int) ([]event.UserStats, error)
}

// SessionStore persists dashboard sessions.
type SessionStore interface {
	// Create stores a new session.
	Create(ctx context.Context, s session.Session) error

	// GetByTokenHash retrieves a session by its token hash.
	GetByTokenHash(ctx context.Context, hash []byte) (session.Session, error)

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes all expired sessions.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
