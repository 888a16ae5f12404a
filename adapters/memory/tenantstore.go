package memory

import (
	"context"
	"sync"

	"github.com/pathtracker/pathtracker/domain/tenant"
	"github.com/pathtracker/pathtracker/ports"
)

// TenantStore is an in-memory implementation of ports.TenantStore.
type TenantStore struct {
	mu      sync.RWMutex
	tenants map[string]tenant.Tenant
	order   []string
}

// NewTenantStore creates a new in-memory tenant store.
func NewTenantStore() *TenantStore {
	return &TenantStore{tenants: make(map[string]tenant.Tenant)}
}

// Get retrieves a tenant by ID.
func (s *TenantStore) Get(ctx context.Context, id string) (tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return tenant.Tenant{}, ErrNotFound
	}
	return t, nil
}

// Create stores a new tenant.
func (s *TenantStore) Create(ctx context.Context, t tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.tenants[t.ID] = t
	return nil
}

// Update persists a mutated tenant.
func (s *TenantStore) Update(ctx context.Context, t tenant.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[t.ID]; !ok {
		return ErrNotFound
	}
	s.tenants[t.ID] = t
	return nil
}

// List returns all tenants in insertion order.
func (s *TenantStore) List(ctx context.Context) ([]tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]tenant.Tenant, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.tenants[id])
	}
	return result, nil
}

// Ensure interface compliance.
var _ ports.TenantStore = (*TenantStore)(nil)
