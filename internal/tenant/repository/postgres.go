package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auth-service/internal/db"
	"auth-service/internal/tenant/domain"
)

const tenantColumns = `id, name, address, created_at, updated_at`

// PostgresRepository stores tenants in the tenants table.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a tenant repository that uses the given db for persistence.
func NewPostgresRepository(db db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the tenant for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id))
}

// List returns every tenant ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	out := []*domain.Tenant{}
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Create inserts t and returns the stored row.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`INSERT INTO tenants (name, address) VALUES ($1, $2) RETURNING `+tenantColumns,
		t.Name, t.Address))
}

// Update overwrites name and address of the tenant with t.ID. Returns nil if no such tenant.
func (r *PostgresRepository) Update(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		`UPDATE tenants SET name = $2, address = $3, updated_at = now() WHERE id = $1 RETURNING `+tenantColumns,
		t.ID, t.Name, t.Address))
}

// Delete removes the tenant; member principals keep existing with tenant_id NULL.
// Reports whether a row was deleted.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTenant(s scanner) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := s.Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &t, nil
}
