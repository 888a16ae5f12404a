package apikey

import (
	"strings"
	"time"
)

// ParseHeader extracts the candidate plaintext secret from a raw
// Authorization header value.
// This is a PURE function.
func ParseHeader(header string) (secret string, fail *Failure) {
	if header == "" {
		return "", &Failure{
			Code:    CodeUnauthorized,
			Message: "Missing Authorization header",
		}
	}

	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", &Failure{
			Code:    CodeUnauthorized,
			Message: "Invalid Authorization header format. Expected: Bearer <api_key>",
		}
	}

	if !strings.HasPrefix(parts[1], SecretPrefix) {
		return "", &Failure{
			Code:    CodeUnauthorized,
			Message: "Invalid API key format",
		}
	}

	return parts[1], nil
}

// LookupPrefix returns the candidate lookup prefix for a plaintext secret.
// This is a PURE function.
func LookupPrefix(secret string) string {
	if len(secret) < LookupPrefixLength {
		return secret
	}
	return secret[:LookupPrefixLength]
}

// Validate checks the state of a hash-matched key at the given time.
// The revoked check stays even though the store only yields non-revoked
// candidates: revocation can race with validation, and this check is the
// authoritative one.
// This is a PURE function.
func Validate(k Key, now time.Time) *Failure {
	if k.Revoked {
		return &Failure{
			Code:    CodeRevoked,
			Message: "This API key has been revoked",
		}
	}

	if k.ExpiresAt != nil && k.ExpiresAt.Before(now) {
		return &Failure{
			Code:    CodeExpired,
			Message: "This API key expired on " + k.ExpiresAt.UTC().Format(time.RFC3339),
		}
	}

	return nil
}

// FailureInvalidKey is returned when no candidate matched. The message is
// deliberately identical whether zero or many rows shared the prefix, so
// callers cannot enumerate stored prefixes.
func FailureInvalidKey() *Failure {
	return &Failure{
		Code:    CodeUnauthorized,
		Message: "Invalid API key",
	}
}
