package repository

import (
	"context"
	"database/sql"
	"fmt"

	"auth-service/internal/audit/domain"
	"auth-service/internal/db"
)

// PostgresRepository writes audit entries to the audit_logs table.
type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an audit repository backed by db.
func NewPostgresRepository(db db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts one entry. The ID must already be set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	var userID sql.NullInt64
	if a.UserID != nil {
		userID = sql.NullInt64{Int64: *a.UserID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, action, resource, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, userID, a.Action, a.Resource, a.IP, a.Metadata, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByUser returns entries for userID, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, action, resource, ip, metadata, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditLog
	for rows.Next() {
		var (
			a   domain.AuditLog
			uid sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &uid, &a.Action, &a.Resource, &a.IP, &a.Metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if uid.Valid {
			v := uid.Int64
			a.UserID = &v
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
