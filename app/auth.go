// Package app provides application services that orchestrate domain logic.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pathtracker/pathtracker/domain/apikey"
	"github.com/pathtracker/pathtracker/ports"
	"github.com/rs/zerolog"
)

// AuthService resolves Authorization headers to tenant identities.
type AuthService struct {
	keys   ports.KeyStore
	hasher ports.Hasher
	clock  ports.Clock
	log    zerolog.Logger

	// Tracks in-flight usage bumps so shutdown can drain them.
	wg sync.WaitGroup
}

// NewAuthService creates a new auth service.
func NewAuthService(keys ports.KeyStore, hasher ports.Hasher, clock ports.Clock, log zerolog.Logger) *AuthService {
	return &AuthService{
		keys:   keys,
		hasher: hasher,
		clock:  clock,
		log:    log,
	}
}

// Authenticate validates a raw Authorization header value and returns the
// identity behind the key. A non-nil Failure is a credential problem and
// answers 401; a non-nil error is a store problem and must not be
// presented as an invalid key. On success it bumps the key's usage
// counter in the background; a failed bump never fails the request.
func (s *AuthService) Authenticate(ctx context.Context, header string) (apikey.Identity, *apikey.Failure, error) {
	now := s.clock.Now()

	// 1. Parse the header (PURE)
	secret, fail := apikey.ParseHeader(header)
	if fail != nil {
		return apikey.Identity{}, fail, nil
	}

	// 2. Candidate lookup by prefix (I/O). The prefix is not unique, so
	// this may return several rows.
	candidates, err := s.keys.GetByPrefix(ctx, apikey.LookupPrefix(secret))
	if err != nil {
		return apikey.Identity{}, nil, fmt.Errorf("api key lookup: %w", err)
	}

	// 3. Disambiguate by hash comparison.
	var matched apikey.Key
	found := false
	for _, k := range candidates {
		if s.hasher.Compare(k.Hash, secret) {
			matched = k
			found = true
			break
		}
	}
	if !found {
		return apikey.Identity{}, apikey.FailureInvalidKey(), nil
	}

	// 4. Validate key state (PURE)
	if fail := apikey.Validate(matched, now); fail != nil {
		return apikey.Identity{}, fail, nil
	}

	// 5. Fire-and-forget usage bump. The caller's context may be gone by
	// the time this runs, so it gets its own.
	s.wg.Add(1)
	go s.recordUsage(matched.ID, now)

	return apikey.Identity{TenantID: matched.TenantID, KeyID: matched.ID}, nil, nil
}

func (s *AuthService) recordUsage(keyID string, at time.Time) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.keys.RecordUsage(ctx, keyID, at); err != nil {
		s.log.Warn().Err(err).Str("key_id", keyID).Msg("usage bump failed")
	}
}

// Wait blocks until all in-flight usage bumps have finished. Called on
// shutdown.
func (s *AuthService) Wait() {
	s.wg.Wait()
}
