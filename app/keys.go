package app

import (
	"context"
	"errors"
	"time"

	"github.com/pathtracker/pathtracker/domain/apikey"
	"github.com/pathtracker/pathtracker/ports"
)

// ErrDuplicateName is returned when a key name is already taken within the
// tenant.
var ErrDuplicateName = errors.New("key name already in use")

// KeyService manages API key lifecycle.
type KeyService struct {
	keys   ports.KeyStore
	hasher ports.Hasher
	random ports.Random
	clock  ports.Clock
	idGen  ports.IDGenerator
}

// NewKeyService creates a new key service.
func NewKeyService(keys ports.KeyStore, hasher ports.Hasher, random ports.Random, clock ports.Clock, idGen ports.IDGenerator) *KeyService {
	return &KeyService{
		keys:   keys,
		hasher: hasher,
		random: random,
		clock:  clock,
		idGen:  idGen,
	}
}

// CreatedKey pairs the stored key with its plaintext secret. The secret
// exists only in this value; it is shown once and never persisted.
type CreatedKey struct {
	Key    apikey.Key
	Secret string
}

// Create mints a new API key for the tenant.
func (s *KeyService) Create(ctx context.Context, tenantID, name string, expiresAt *time.Time) (CreatedKey, error) {
	taken, err := s.keys.NameExists(ctx, tenantID, name)
	if err != nil {
		return CreatedKey{}, err
	}
	if taken {
		return CreatedKey{}, ErrDuplicateName
	}

	random, err := s.random.String(apikey.SecretRandomLength)
	if err != nil {
		return CreatedKey{}, err
	}
	secret := apikey.SecretPrefix + random

	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return CreatedKey{}, err
	}

	k := apikey.Key{
		ID:        s.idGen.New(),
		TenantID:  tenantID,
		Name:      name,
		Hash:      hash,
		Prefix:    apikey.LookupPrefix(secret),
		CreatedAt: s.clock.Now(),
		ExpiresAt: expiresAt,
	}

	if err := s.keys.Create(ctx, k); err != nil {
		return CreatedKey{}, err
	}

	return CreatedKey{Key: k, Secret: secret}, nil
}

// List returns all of the tenant's keys, newest first. Hashes stay
// internal; callers render Preview instead.
func (s *KeyService) List(ctx context.Context, tenantID string) ([]apikey.Key, error) {
	return s.keys.ListByTenant(ctx, tenantID)
}

// Revoke permanently disables a key. Keys of other tenants are invisible
// here: the store answers ports.ErrNotFound for them.
func (s *KeyService) Revoke(ctx context.Context, tenantID, keyID string) error {
	return s.keys.Revoke(ctx, tenantID, keyID, s.clock.Now())
}

// Rename changes a key's display name, keeping names unique per tenant.
func (s *KeyService) Rename(ctx context.Context, tenantID, keyID, name string) error {
	k, err := s.keys.GetByID(ctx, tenantID, keyID)
	if err != nil {
		return err
	}
	if k.Name == name {
		return nil
	}

	taken, err := s.keys.NameExists(ctx, tenantID, name)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateName
	}

	return s.keys.Rename(ctx, tenantID, keyID, name)
}
