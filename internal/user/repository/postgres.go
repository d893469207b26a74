package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auth-service/internal/db"
	"auth-service/internal/user/domain"
)

const userColumns = `id, first_name, last_name, email, role, tenant_id, created_at, updated_at`

const emailConstraint = "users_email_key"

// PostgresRepository stores principals in the users table.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a user repository backed by db (*sql.DB or *sql.Tx).
func NewPostgresRepository(db db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, domain.NormalizeEmail(email))
	return scanUser(row)
}

// GetCredentialByEmail returns the user and its password hash, or nil if not found.
func (r *PostgresRepository) GetCredentialByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`,
		domain.NormalizeEmail(email))
	var (
		c      domain.Credential
		tenant sql.NullInt64
	)
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Role, &tenant, &c.CreatedAt, &c.UpdatedAt, &c.PasswordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.TenantID = nullToPtr(tenant)
	return &c, nil
}

// Create inserts u with passwordHash and returns the stored row (id and timestamps assigned by the database).
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User, passwordHash string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (first_name, last_name, email, password_hash, role, tenant_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		u.FirstName, u.LastName, domain.NormalizeEmail(u.Email), passwordHash, string(u.Role), ptrToNull(u.TenantID))
	created, err := scanUser(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return created, nil
}

// Update overwrites the mutable fields of the user with u.ID. Returns nil if no such user.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, role = $5, tenant_id = $6, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		u.ID, u.FirstName, u.LastName, domain.NormalizeEmail(u.Email), string(u.Role), ptrToNull(u.TenantID))
	updated, err := scanUser(row)
	if err != nil {
		return nil, mapWriteError(err)
	}
	return updated, nil
}

// Delete removes the user; its refresh tokens go with it (ON DELETE CASCADE).
// Reports whether a row was deleted.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// List returns one page of users, newest first, and the total number of matching users.
func (r *PostgresRepository) List(ctx context.Context, p ListParams) ([]*domain.User, int, error) {
	const where = `
		WHERE ($1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		  AND ($2 = '' OR role = $2)`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+where, p.Query, string(p.Role)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users`+where+` ORDER BY id DESC LIMIT $3 OFFSET $4`,
		p.Query, string(p.Role), p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, p.PerPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	return users, total, nil
}

func mapWriteError(err error) error {
	switch {
	case db.IsUniqueViolation(err, emailConstraint):
		return ErrDuplicateEmail
	case db.IsForeignKeyViolation(err):
		return ErrUnknownTenant
	default:
		return err
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u      domain.User
		tenant sql.NullInt64
	)
	if err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Role, &tenant, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.TenantID = nullToPtr(tenant)
	return &u, nil
}

func nullToPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func ptrToNull(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}
