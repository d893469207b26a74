package repository

import (
	"context"
	"errors"

	"auth-service/internal/user/domain"
)

// ErrDuplicateEmail is returned by Create and Update when the e-mail is already taken.
var ErrDuplicateEmail = errors.New("user: email already registered")

// ErrUnknownTenant is returned by Create and Update when TenantID names no tenant.
var ErrUnknownTenant = errors.New("user: tenant does not exist")

// ListParams filters and paginates List. Page is 1-based.
type ListParams struct {
	Page    int
	PerPage int
	Query   string      // matched case-insensitively against first name, last name and e-mail
	Role    domain.Role // empty matches every role
}

// Offset returns the row offset for the page.
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// Repository defines persistence for principals. Lookups return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetCredentialByEmail is the only read that returns the password hash.
	GetCredentialByEmail(ctx context.Context, email string) (*domain.Credential, error)
	Create(ctx context.Context, u *domain.User, passwordHash string) (*domain.User, error)
	Update(ctx context.Context, u *domain.User) (*domain.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, p ListParams) ([]*domain.User, int, error)
}
