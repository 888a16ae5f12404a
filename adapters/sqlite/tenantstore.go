package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pathtracker/pathtracker/domain/tenant"
	"github.com/pathtracker/pathtracker/ports"
)

// TenantStore implements ports.TenantStore using SQLite.
type TenantStore struct {
	db *DB
}

// NewTenantStore creates a new SQLite tenant store.
func NewTenantStore(db *DB) *TenantStore {
	return &TenantStore{db: db}
}

const tenantColumns = `tenant_id, name, created_at, retention_days, body_size_limit_bytes, rate_limit_per_minute, pii_scrubbing_enabled, cost_budget_usd`

// Get retrieves a tenant by ID.
func (s *TenantStore) Get(ctx context.Context, id string) (tenant.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants WHERE tenant_id = ?
	`, id)

	t, err := scanTenant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenant.Tenant{}, ErrNotFound
	}
	return t, err
}

// Create stores a new tenant.
func (s *TenantStore) Create(ctx context.Context, t tenant.Tenant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.CreatedAt, t.RetentionDays, t.BodySizeLimitBytes,
		t.RateLimitPerMinute, t.PIIScrubbingEnabled, nullFloat(t.CostBudgetUSD))
	return err
}

// Update persists a mutated tenant.
func (s *TenantStore) Update(ctx context.Context, t tenant.Tenant) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tenants
		SET name = ?, retention_days = ?, body_size_limit_bytes = ?,
		    rate_limit_per_minute = ?, pii_scrubbing_enabled = ?, cost_budget_usd = ?
		WHERE tenant_id = ?
	`, t.Name, t.RetentionDays, t.BodySizeLimitBytes,
		t.RateLimitPerMinute, t.PIIScrubbingEnabled, nullFloat(t.CostBudgetUSD), t.ID)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// List returns all tenants, oldest first.
func (s *TenantStore) List(ctx context.Context) ([]tenant.Tenant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+tenantColumns+` FROM tenants ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func scanTenant(row rowScanner) (tenant.Tenant, error) {
	var t tenant.Tenant
	var budget sql.NullFloat64

	err := row.Scan(
		&t.ID, &t.Name, &t.CreatedAt, &t.RetentionDays, &t.BodySizeLimitBytes,
		&t.RateLimitPerMinute, &t.PIIScrubbingEnabled, &budget,
	)
	if err != nil {
		return tenant.Tenant{}, err
	}
	if budget.Valid {
		t.CostBudgetUSD = &budget.Float64
	}
	return t, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// Ensure interface compliance.
var _ ports.TenantStore = (*TenantStore)(nil)
