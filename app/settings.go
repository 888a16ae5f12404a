package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/pathtracker/pathtracker/domain/tenant"
	"github.com/pathtracker/pathtracker/ports"
)

// ErrValidation marks a rejected settings update. The wrapped message
// names the offending field and its allowed range.
var ErrValidation = errors.New("validation failed")

// SettingsService reads and updates per-tenant settings, and owns tenant
// creation.
type SettingsService struct {
	tenants ports.TenantStore
	clock   ports.Clock
	idGen   ports.IDGenerator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(tenants ports.TenantStore, clock ports.Clock, idGen ports.IDGenerator) *SettingsService {
	return &SettingsService{
		tenants: tenants,
		clock:   clock,
		idGen:   idGen,
	}
}

// CreateTenant provisions a tenant with default settings.
func (s *SettingsService) CreateTenant(ctx context.Context, name string) (tenant.Tenant, error) {
	t := tenant.New(s.idGen.New(), name, s.clock.Now())
	if err := s.tenants.Create(ctx, t); err != nil {
		return tenant.Tenant{}, err
	}
	return t, nil
}

// Get returns the tenant's current settings.
func (s *SettingsService) Get(ctx context.Context, tenantID string) (tenant.Tenant, error) {
	return s.tenants.Get(ctx, tenantID)
}

// Update applies a partial settings change and returns the resulting
// tenant.
func (s *SettingsService) Update(ctx context.Context, tenantID string, u tenant.SettingsUpdate) (tenant.Tenant, error) {
	if err := u.Validate(); err != nil {
		return tenant.Tenant{}, fmt.Errorf("%w: %s", ErrValidation, err)
	}

	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return tenant.Tenant{}, err
	}

	updated := u.Apply(t)
	if err := s.tenants.Update(ctx, updated); err != nil {
		return tenant.Tenant{}, err
	}
	return updated, nil
}
