// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pathtracker/pathtracker/domain/apikey"
	"github.com/pathtracker/pathtracker/ports"
)

// KeyStore is an in-memory implementation of ports.KeyStore.
type KeyStore struct {
	mu    sync.RWMutex
	keys  map[string]apikey.Key // by ID
	order []string              // insertion order, for deterministic listings

	// UsageErr, when set, makes RecordUsage fail. Lets tests exercise the
	// swallowed fire-and-forget error path.
	UsageErr error

	// LookupErr, when set, makes GetByPrefix fail. Lets tests exercise
	// the store-unreachable path during authentication.
	LookupErr error
}

// NewKeyStore creates a new in-memory key store.
func NewKeyStore() *KeyStore {
	return &KeyStore{keys: make(map[string]apikey.Key)}
}

// Create stores a new key.
func (s *KeyStore) Create(ctx context.Context, k apikey.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[k.ID] = k
	s.order = append(s.order, k.ID)
	return nil
}

// GetByPrefix retrieves non-revoked keys matching a lookup prefix.
func (s *KeyStore) GetByPrefix(ctx context.Context, prefix string) ([]apikey.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.LookupErr != nil {
		return nil, s.LookupErr
	}

	var result []apikey.Key
	for _, id := range s.order {
		k := s.keys[id]
		if k.Prefix == prefix && !k.Revoked {
			result = append(result, k)
		}
	}
	return result, nil
}

// GetByID retrieves one key scoped to a tenant.
func (s *KeyStore) GetByID(ctx context.Context, tenantID, keyID string) (apikey.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.keys[keyID]
	if !ok || k.TenantID != tenantID {
		return apikey.Key{}, ErrNotFound
	}
	return k, nil
}

// ListByTenant returns all keys for a tenant, newest first.
func (s *KeyStore) ListByTenant(ctx context.Context, tenantID string) ([]apikey.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []apikey.Key
	for _, id := range s.order {
		if k := s.keys[id]; k.TenantID == tenantID {
			result = append(result, k)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// Revoke marks a key as revoked.
func (s *KeyStore) Revoke(ctx context.Context, tenantID, keyID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[keyID]
	if !ok || k.TenantID != tenantID {
		return ErrNotFound
	}
	k.Revoked = true
	k.RevokedAt = &at
	s.keys[keyID] = k
	return nil
}

// Rename changes a key's display name.
func (s *KeyStore) Rename(ctx context.Context, tenantID, keyID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[keyID]
	if !ok || k.TenantID != tenantID {
		return ErrNotFound
	}
	k.Name = name
	s.keys[keyID] = k
	return nil
}

// NameExists reports whether a key with this name exists in the tenant.
func (s *KeyStore) NameExists(ctx context.Context, tenantID, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.keys {
		if k.TenantID == tenantID && k.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// RecordUsage bumps the usage counter and last-used timestamp.
func (s *KeyStore) RecordUsage(ctx context.Context, keyID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.UsageErr != nil {
		return s.UsageErr
	}
	if k, ok := s.keys[keyID]; ok {
		k.UsageCount++
		k.LastUsedAt = &at
		s.keys[keyID] = k
	}
	return nil
}

// Ensure interface compliance.
var _ ports.KeyStore = (*KeyStore)(nil)
