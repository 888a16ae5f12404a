package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pathtracker/pathtracker/adapters/clock"
	"github.com/pathtracker/pathtracker/adapters/hasher"
	"github.com/pathtracker/pathtracker/adapters/memory"
	"github.com/pathtracker/pathtracker/app"
	"github.com/pathtracker/pathtracker/domain/apikey"
)

var authBase = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

const testSecret = "pwtrk_abcdefghijklmnopqrstuvwxyz123456"

func newAuthFixture(t *testing.T) (*app.AuthService, *memory.KeyStore, *clock.Fake) {
	t.Helper()

	keys := memory.NewKeyStore()
	clk := clock.NewFake(authBase)
	svc := app.NewAuthService(keys, hasher.Fake{}, clk, zerolog.Nop())
	return svc, keys, clk
}

func storeKey(t *testing.T, keys *memory.KeyStore, k apikey.Key) {
	t.Helper()
	if err := keys.Create(context.Background(), k); err != nil {
		t.Fatalf("Create key: %v", err)
	}
}

func activeKey(id, secret string) apikey.Key {
	return apikey.Key{
		ID:        id,
		TenantID:  "tn-1",
		Name:      "test",
		Hash:      []byte(secret), // hasher.Fake compares by equality
		Prefix:    apikey.LookupPrefix(secret),
		CreatedAt: authBase.Add(-time.Hour),
	}
}

func TestAuthenticate_Success(t *testing.T) {
	svc, keys, _ := newAuthFixture(t)
	storeKey(t, keys, activeKey("key-1", testSecret))

	id, fail, err := svc.Authenticate(context.Background(), "Bearer "+testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fail != nil {
		t.Fatalf("unexpected failure: %s", fail.Message)
	}

	if id.TenantID != "tn-1" {
		t.Errorf("TenantID = %q, want tn-1", id.TenantID)
	}
	if id.KeyID != "key-1" {
		t.Errorf("KeyID = %q, want key-1", id.KeyID)
	}
}

func TestAuthenticate_BumpsUsage(t *testing.T) {
	svc, keys, _ := newAuthFixture(t)
	storeKey(t, keys, activeKey("key-1", testSecret))

	if _, fail, err := svc.Authenticate(context.Background(), "Bearer "+testSecret); err != nil || fail != nil {
		t.Fatalf("unexpected failure: %v / %v", err, fail)
	}
	svc.Wait()

	k, err := keys.GetByID(context.Background(), "tn-1", "key-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if k.UsageCount != 1 {
		t.Errorf("UsageCount = %d, want 1", k.UsageCount)
	}
	if k.LastUsedAt == nil || !k.LastUsedAt.Equal(authBase) {
		t.Errorf("LastUsedAt = %v, want %v", k.LastUsedAt, authBase)
	}
}

func TestAuthenticate_UsageBumpFailureIsSwallowed(t *testing.T) {
	svc, keys, _ := newAuthFixture(t)
	storeKey(t, keys, activeKey("key-1", testSecret))
	keys.UsageErr = errors.New("store unavailable")

	id, fail, err := svc.Authenticate(context.Background(), "Bearer "+testSecret)
	svc.Wait()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fail != nil {
		t.Fatalf("usage bump failure must not fail authentication: %s", fail.Message)
	}
	if id.KeyID != "key-1" {
		t.Errorf("KeyID = %q, want key-1", id.KeyID)
	}
}

func TestAuthenticate_StoreUnavailable(t *testing.T) {
	// A failing key lookup is a storage problem, not a bad credential. It
	// must come back as an error, never as the invalid-key failure.
	svc, keys, _ := newAuthFixture(t)
	storeKey(t, keys, activeKey("key-1", testSecret))
	keys.LookupErr = errors.New("connection pool timeout")

	_, fail, err := svc.Authenticate(context.Background(), "Bearer "+testSecret)
	if err == nil {
		t.Fatal("expected an error from the failing store")
	}
	if !errors.Is(err, keys.LookupErr) {
		t.Errorf("err = %v, must wrap the store error", err)
	}
	if fail != nil {
		t.Errorf("failure = %+v, store outages must not look like bad credentials", fail)
	}
}

func TestAuthenticate_UnknownKey(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, fail, err := svc.Authenticate(context.Background(), "Bearer "+testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fail == nil {
		t.Fatal("expected failure")
	}
	if fail.Code != apikey.CodeUnauthorized {
		t.Errorf("code = %q, want %q", fail.Code, apikey.CodeUnauthorized)
	}
	if fail.Message != "Invalid API key" {
		t.Errorf("message = %q, must not leak lookup state", fail.Message)
	}
}

func TestAuthenticate_PrefixCollision(t *testing.T) {
	// Two keys share the 12-char lookup prefix; the hash comparison must
	// pick the right one.
	svc, keys, _ := newAuthFixture(t)

	other := testSecret[:apikey.LookupPrefixLength] + "DIFFERENTSUFFIX12345"
	storeKey(t, keys, activeKey("key-other", other))
	storeKey(t, keys, activeKey("key-mine", testSecret))

	id, fail, err := svc.Authenticate(context.Background(), "Bearer "+testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fail != nil {
		t.Fatalf("unexpected failure: %s", fail.Message)
	}
	if id.KeyID != "key-mine" {
		t.Errorf("KeyID = %q, want key-mine", id.KeyID)
	}
}

func TestAuthenticate_RevokedKey(t *testing.T) {
	svc, keys, _ := newAuthFixture(t)

	k := activeKey("key-1", testSecret)
	revokedAt := authBase.Add(-time.Minute)
	k.Revoked = true
	k.RevokedAt = &revokedAt
	storeKey(t, keys, k)

	_, fail, err := svc.Authenticate(context.Background(), "Bearer "+testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fail == nil {
		t.Fatal("expected failure")
	}
	// The memory store filters revoked keys out of prefix lookup, so the
	// caller sees the generic invalid-key answer, not the revoked code.
	if fail.Code != apikey.CodeUnauthorized {
		t.Errorf("code = %q, want %q", fail.Code, apikey.CodeUnauthorized)
	}
}

func TestAuthenticate_ExpiredKey(t *testing.T) {
	svc, keys, _ := newAuthFixture(t)

	k := activeKey("key-1", testSecret)
	expiry := authBase.Add(-time.Hour)
	k.ExpiresAt = &expiry
	storeKey(t, keys, k)

	_, fail, err := svc.Authenticate(context.Background(), "Bearer "+testSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fail == nil {
		t.Fatal("expected failure")
	}
	if fail.Code != apikey.CodeExpired {
		t.Errorf("code = %q, want %q", fail.Code, apikey.CodeExpired)
	}
}

func TestAuthenticate_MalformedHeader(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	for _, header := range []string{"", "Bearer", "Token " + testSecret, "Bearer sk_wrongprefix"} {
		_, fail, err := svc.Authenticate(context.Background(), header)
		if err != nil {
			t.Errorf("header %q: unexpected error: %v", header, err)
			continue
		}
		if fail == nil {
			t.Errorf("header %q: expected failure", header)
			continue
		}
		if fail.Code != apikey.CodeUnauthorized {
			t.Errorf("header %q: code = %q, want %q", header, fail.Code, apikey.CodeUnauthorized)
		}
	}
}
