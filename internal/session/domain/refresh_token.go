package domain

import "time"

// RefreshToken is the server-side record behind one refresh JWT. Its ID is embedded in the
// token as both the id claim and the jti; while the record exists the token may be redeemed.
type RefreshToken struct {
	ID        int64
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the record has passed its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
