package repository

import (
	"context"
	"time"

	"auth-service/internal/session/domain"
)

// Repository persists refresh token records. Lookups return (nil, nil) when no row matches.
type Repository interface {
	// Persist creates a record for userID and returns it with its server-generated ID.
	Persist(ctx context.Context, userID int64, expiresAt time.Time) (*domain.RefreshToken, error)
	// FindActive returns the unexpired record with id owned by userID, or nil.
	FindActive(ctx context.Context, id, userID int64) (*domain.RefreshToken, error)
	// Delete removes the record and reports whether it was present. Deleting a missing
	// record is not an error; callers rotating a token use the result to detect a lost race.
	Delete(ctx context.Context, id int64) (bool, error)
	// DeleteExpired removes every record that expired before now and reports how many went.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
