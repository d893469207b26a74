// Package session holds the refresh-token lifecycle pieces shared by the HTTP edge:
// the revocation check run before a refresh token is honored, and the cookie policy.
package session

import (
	"context"
	"errors"
	"log/slog"

	"auth-service/internal/security"
	"auth-service/internal/session/repository"
)

// ErrRevokedToken is returned when a cryptographically valid refresh token no longer has
// a live record behind it.
var ErrRevokedToken = errors.New("session: refresh token revoked")

// RevocationCheck decides whether a verified refresh token has been revoked.
type RevocationCheck struct {
	store repository.Repository
	log   *slog.Logger
}

// NewRevocationCheck returns a RevocationCheck that consults store.
func NewRevocationCheck(store repository.Repository, log *slog.Logger) *RevocationCheck {
	if log == nil {
		log = slog.Default()
	}
	return &RevocationCheck{store: store, log: log}
}

// IsRevoked reports true when no live record matches the token's id and subject. It fails
// closed: nil claims and lookup errors both count as revoked.
func (c *RevocationCheck) IsRevoked(ctx context.Context, claims *security.RefreshClaims) bool {
	if claims == nil {
		return true
	}
	rec, err := c.store.FindActive(ctx, claims.RecordID, claims.PrincipalID())
	if err != nil {
		c.log.ErrorContext(ctx, "refresh token lookup failed",
			slog.Int64("token_id", claims.RecordID),
			slog.Any("error", err))
		return true
	}
	return rec == nil
}

// Check is IsRevoked expressed as an error: nil when the token is live, ErrRevokedToken otherwise.
func (c *RevocationCheck) Check(ctx context.Context, claims *security.RefreshClaims) error {
	if c.IsRevoked(ctx, claims) {
		return ErrRevokedToken
	}
	return nil
}
