// Package tenant provides the tenant value type and pure settings
// validation. A tenant is the isolation boundary: every event row carries
// exactly one tenant id and every query is scoped by it.
package tenant

import (
	"fmt"
	"time"
)

// Bounds for the mutable settings.
const (
	MinRetentionDays     = 1
	MaxRetentionDays     = 365
	MinBodySizeLimit     = 1024
	MaxBodySizeLimit     = 1048576
	MinRateLimitPerMin   = 100
	MaxRateLimitPerMin   = 100000
	DefaultRetentionDays = 30
	DefaultBodySizeLimit = 10240
	DefaultRateLimit     = 1000
)

// Tenant is the isolation unit owning credentials, events and settings.
type Tenant struct {
	ID                  string
	Name                string
	CreatedAt           time.Time
	RetentionDays       int
	BodySizeLimitBytes  int
	RateLimitPerMinute  int
	PIIScrubbingEnabled bool
	CostBudgetUSD       *float64 // nil = no budget
}

// New returns a tenant with default settings.
func New(id, name string, now time.Time) Tenant {
	return Tenant{
		ID:                 id,
		Name:               name,
		CreatedAt:          now,
		RetentionDays:      DefaultRetentionDays,
		BodySizeLimitBytes: DefaultBodySizeLimit,
		RateLimitPerMinute: DefaultRateLimit,
	}
}

// SettingsUpdate carries a partial settings change; nil fields are left
// untouched.
type SettingsUpdate struct {
	RetentionDays       *int
	BodySizeLimitBytes  *int
	RateLimitPerMinute  *int
	PIIScrubbingEnabled *bool
	CostBudgetUSD       *float64
	ClearCostBudget     bool
}

// Validate checks every populated field against its allowed range.
// This is a PURE function.
func (u SettingsUpdate) Validate() error {
	if u.RetentionDays != nil && (*u.RetentionDays < MinRetentionDays || *u.RetentionDays > MaxRetentionDays) {
		return fmt.Errorf("retention_days must be between %d and %d", MinRetentionDays, MaxRetentionDays)
	}
	if u.BodySizeLimitBytes != nil && (*u.BodySizeLimitBytes < MinBodySizeLimit || *u.BodySizeLimitBytes > MaxBodySizeLimit) {
		return fmt.Errorf("body_size_limit_bytes must be between %d and %d", MinBodySizeLimit, MaxBodySizeLimit)
	}
	if u.RateLimitPerMinute != nil && (*u.RateLimitPerMinute < MinRateLimitPerMin || *u.RateLimitPerMinute > MaxRateLimitPerMin) {
		return fmt.Errorf("rate_limit_per_minute must be between %d and %d", MinRateLimitPerMin, MaxRateLimitPerMin)
	}
	if u.CostBudgetUSD != nil && *u.CostBudgetUSD < 0 {
		return fmt.Errorf("cost_budget_usd must not be negative")
	}
	return nil
}

// Apply returns a copy of t with the populated fields of u applied.
// Callers must Validate first.
// This is a PURE function.
func (u SettingsUpdate) Apply(t Tenant) Tenant {
	if u.RetentionDays != nil {
		t.RetentionDays = *u.RetentionDays
	}
	if u.BodySizeLimitBytes != nil {
		t.BodySizeLimitBytes = *u.BodySizeLimitBytes
	}
	if u.RateLimitPerMinute != nil {
		t.RateLimitPerMinute = *u.RateLimitPerMinute
	}
	if u.PIIScrubbingEnabled != nil {
		t.PIIScrubbingEnabled = *u.PIIScrubbingEnabled
	}
	if u.ClearCostBudget {
		t.CostBudgetUSD = nil
	} else if u.CostBudgetUSD != nil {
		v := *u.CostBudgetUSD
		t.CostBudgetUSD = &v
	}
	return t
}
