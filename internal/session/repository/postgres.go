package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"auth-service/internal/db"
	"auth-service/internal/session/domain"
)

// PostgresRepository stores refresh token records in the refresh_tokens table.
type PostgresRepository struct {
	db  db.DBTX
	now func() time.Time
}

// NewPostgresRepository returns a refresh token repository backed by db.
func NewPostgresRepository(db db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// Persist inserts a record for userID expiring at expiresAt.
func (r *PostgresRepository) Persist(ctx context.Context, userID int64, expiresAt time.Time) (*domain.RefreshToken, error) {
	t := &domain.RefreshToken{UserID: userID, ExpiresAt: expiresAt.UTC()}
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO refresh_tokens (user_id, expires_at)
		VALUES ($1, $2)
		RETURNING id, created_at`,
		userID, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return t, nil
}

// FindActive returns the record with id owned by userID that has not expired, or nil.
func (r *PostgresRepository) FindActive(ctx context.Context, id, userID int64) (*domain.RefreshToken, error) {
	t := &domain.RefreshToken{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE id = $1 AND user_id = $2 AND expires_at > $3`,
		id, userID, r.now().UTC()).Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Delete removes the record with id. Zero affected rows is success and reports false.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired removes records whose expires_at is at or before now.
func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
