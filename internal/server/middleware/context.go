package middleware

import (
	"context"

	"auth-service/internal/security"
)

type contextKey struct{ name string }

var (
	accessClaimsKey  = contextKey{"access_claims"}
	refreshClaimsKey = contextKey{"refresh_claims"}
)

// WithAccessClaims returns a context carrying verified access claims.
func WithAccessClaims(ctx context.Context, c *security.AccessClaims) context.Context {
	return context.WithValue(ctx, accessClaimsKey, c)
}

// AccessClaims returns the access claims set by Authenticate and true if set; otherwise nil, false.
func AccessClaims(ctx context.Context) (*security.AccessClaims, bool) {
	c, ok := ctx.Value(accessClaimsKey).(*security.AccessClaims)
	return c, ok && c != nil
}

// WithRefreshClaims returns a context carrying verified refresh claims.
func WithRefreshClaims(ctx context.Context, c *security.RefreshClaims) context.Context {
	return context.WithValue(ctx, refreshClaimsKey, c)
}

// RefreshClaims returns the refresh claims set by RequireRefresh or ParseRefresh and true if set.
func RefreshClaims(ctx context.Context) (*security.RefreshClaims, bool) {
	c, ok := ctx.Value(refreshClaimsKey).(*security.RefreshClaims)
	return c, ok && c != nil
}
