package apikey_test

import (
	"strings"
	"testing"
	"time"

	"github.com/pathtracker/pathtracker/domain/apikey"
)

// Test fixtures
var (
	baseTime   = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	pastTime   = baseTime.Add(-24 * time.Hour)
	futureTime = baseTime.Add(24 * time.Hour)
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantSecret string
		wantCode   string
	}{
		{
			name:       "valid bearer",
			header:     "Bearer pwtrk_abcdefghijklmnopqrstuvwxyz123456",
			wantSecret: "pwtrk_abcdefghijklmnopqrstuvwxyz123456",
		},
		{
			name:       "lowercase bearer",
			header:     "bearer pwtrk_abcdefghijklmnopqrstuvwxyz123456",
			wantSecret: "pwtrk_abcdefghijklmnopqrstuvwxyz123456",
		},
		{
			name:     "missing header",
			header:   "",
			wantCode: apikey.CodeUnauthorized,
		},
		{
			name:     "no scheme",
			header:   "pwtrk_abcdefghijklmnopqrstuvwxyz123456",
			wantCode: apikey.CodeUnauthorized,
		},
		{
			name:     "wrong scheme",
			header:   "Basic pwtrk_abcdefghijklmnopqrstuvwxyz123456",
			wantCode: apikey.CodeUnauthorized,
		},
		{
			name:     "wrong secret prefix",
			header:   "Bearer sk_abcdefghijklmnopqrstuvwxyz123456",
			wantCode: apikey.CodeUnauthorized,
		},
		{
			name:     "extra parts",
			header:   "Bearer pwtrk_abc extra",
			wantCode: apikey.CodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secret, fail := apikey.ParseHeader(tt.header)

			if tt.wantCode != "" {
				if fail == nil {
					t.Fatalf("ParseHeader(%q) expected failure", tt.header)
				}
				if fail.Code != tt.wantCode {
					t.Errorf("code = %q, want %q", fail.Code, tt.wantCode)
				}
				return
			}

			if fail != nil {
				t.Fatalf("ParseHeader(%q) failed: %s", tt.header, fail.Message)
			}
			if secret != tt.wantSecret {
				t.Errorf("secret = %q, want %q", secret, tt.wantSecret)
			}
		})
	}
}

func TestLookupPrefix(t *testing.T) {
	secret := "pwtrk_abcdefghijklmnopqrstuvwxyz123456"

	got := apikey.LookupPrefix(secret)
	if got != "pwtrk_abcdef" {
		t.Errorf("LookupPrefix() = %q, want %q", got, "pwtrk_abcdef")
	}
	if len(got) != apikey.LookupPrefixLength {
		t.Errorf("prefix length = %d, want %d", len(got), apikey.LookupPrefixLength)
	}
}

func TestLookupPrefix_ShortSecret(t *testing.T) {
	got := apikey.LookupPrefix("pwtrk_ab")
	if got != "pwtrk_ab" {
		t.Errorf("LookupPrefix() = %q, want full short secret", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		key      apikey.Key
		now      time.Time
		wantCode string
	}{
		{
			name: "valid key",
			key: apikey.Key{
				ID:        "key-1",
				TenantID:  "tn-1",
				CreatedAt: pastTime,
			},
			now: baseTime,
		},
		{
			name: "valid key with future expiry",
			key: apikey.Key{
				ID:        "key-2",
				TenantID:  "tn-1",
				ExpiresAt: &futureTime,
				CreatedAt: pastTime,
			},
			now: baseTime,
		},
		{
			name: "expired key",
			key: apikey.Key{
				ID:        "key-3",
				TenantID:  "tn-1",
				ExpiresAt: &pastTime,
				CreatedAt: pastTime.Add(-48 * time.Hour),
			},
			now:      baseTime,
			wantCode: apikey.CodeExpired,
		},
		{
			name: "revoked key",
			key: apikey.Key{
				ID:        "key-4",
				TenantID:  "tn-1",
				Revoked:   true,
				RevokedAt: &pastTime,
				CreatedAt: pastTime.Add(-48 * time.Hour),
			},
			now:      baseTime,
			wantCode: apikey.CodeRevoked,
		},
		{
			name: "revoked takes precedence over expired",
			key: apikey.Key{
				ID:        "key-5",
				TenantID:  "tn-1",
				Revoked:   true,
				ExpiresAt: &pastTime,
				RevokedAt: &pastTime,
				CreatedAt: pastTime.Add(-48 * time.Hour),
			},
			now:      baseTime,
			wantCode: apikey.CodeRevoked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fail := apikey.Validate(tt.key, tt.now)

			if tt.wantCode == "" {
				if fail != nil {
					t.Errorf("Validate() = %+v, want nil", fail)
				}
				return
			}

			if fail == nil {
				t.Fatal("Validate() expected failure")
			}
			if fail.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", fail.Code, tt.wantCode)
			}
		})
	}
}

func TestValidate_ExpiredMessage(t *testing.T) {
	expiry := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	k := apikey.Key{ID: "key-1", ExpiresAt: &expiry}

	fail := apikey.Validate(k, baseTime.AddDate(0, 6, 0))
	if fail == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(fail.Message, "2024-03-01T08:30:00Z") {
		t.Errorf("message %q should contain RFC3339 expiry timestamp", fail.Message)
	}
}

func TestFailureInvalidKey_DoesNotLeakState(t *testing.T) {
	// The same failure must come back whether no key or several keys
	// shared the candidate prefix.
	f1 := apikey.FailureInvalidKey()
	f2 := apikey.FailureInvalidKey()

	if f1.Code != apikey.CodeUnauthorized {
		t.Errorf("code = %q, want %q", f1.Code, apikey.CodeUnauthorized)
	}
	if f1.Message != f2.Message {
		t.Error("invalid-key message must be constant")
	}
}

func TestKey_Preview(t *testing.T) {
	k := apikey.Key{Prefix: "pwtrk_abcdef"}
	if got := k.Preview(); got != "pwtrk_abcdef..." {
		t.Errorf("Preview() = %q, want %q", got, "pwtrk_abcdef...")
	}
}
