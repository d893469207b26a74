// Package rbac decides whether an authenticated principal may use a route.
package rbac

import (
	"errors"
	"slices"

	"auth-service/internal/security"
	"auth-service/internal/user/domain"
)

// ErrForbidden is returned when the principal's role is not allowed.
var ErrForbidden = errors.New("rbac: forbidden")

// Authorize returns nil when the role in claims is one of allowed, ErrForbidden otherwise.
// Roles are compared exactly; admin does not imply manager. Nil claims are denied.
func Authorize(claims *security.AccessClaims, allowed ...domain.Role) error {
	if claims == nil {
		return ErrForbidden
	}
	if !slices.Contains(allowed, claims.Role) {
		return ErrForbidden
	}
	return nil
}
