// Package service implements administrator management of principals.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"auth-service/internal/security"
	"auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
)

// ErrUserNotFound is returned when the addressed user does not exist.
var ErrUserNotFound = errors.New("user not found")

// Pagination defaults for List.
const (
	DefaultPage    = 1
	DefaultPerPage = 6
)

// CreateInput is an administrator-created principal.
type CreateInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
	TenantID  *int64
}

// UpdateInput replaces the mutable fields of a principal. The password is not changed here.
type UpdateInput struct {
	FirstName string
	LastName  string
	Email     string
	Role      domain.Role
	TenantID  *int64
}

// Page is one page of List results.
type Page struct {
	Data        []*domain.User
	CurrentPage int
	PerPage     int
	Total       int
}

// UserService manages principals on behalf of administrators.
type UserService struct {
	repo   userrepo.Repository
	hasher *security.Hasher
	log    *slog.Logger
}

// NewUserService returns a UserService.
func NewUserService(repo userrepo.Repository, hasher *security.Hasher, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{repo: repo, hasher: hasher, log: log}
}

// Create stores a new principal with the given role. A taken email returns userrepo.ErrDuplicateEmail.
func (s *UserService) Create(ctx context.Context, in CreateInput) (*domain.User, error) {
	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, userrepo.ErrDuplicateEmail
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Create(ctx, &domain.User{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     in.Email,
		Role:      in.Role,
		TenantID:  in.TenantID,
	}, hash)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user has been created", slog.Int64("id", u.ID), slog.String("role", string(u.Role)))
	return u, nil
}

// Update overwrites the principal's profile, role and tenant.
func (s *UserService) Update(ctx context.Context, id int64, in UpdateInput) (*domain.User, error) {
	u, err := s.repo.Update(ctx, &domain.User{
		ID:        id,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     in.Email,
		Role:      in.Role,
		TenantID:  in.TenantID,
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	s.log.InfoContext(ctx, "user has been updated", slog.Int64("id", id))
	return u, nil
}

// Get returns the principal with id.
func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// List returns one page of principals. Non-positive page or perPage select the defaults.
func (s *UserService) List(ctx context.Context, p userrepo.ListParams) (*Page, error) {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	p.Query = strings.TrimSpace(p.Query)
	users, total, err := s.repo.List(ctx, p)
	if err != nil {
		return nil, err
	}
	return &Page{Data: users, CurrentPage: p.Page, PerPage: p.PerPage, Total: total}, nil
}

// Delete removes the principal and, through the foreign key, its refresh tokens.
// Deleting a missing principal is not an error.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "user delete", slog.Int64("id", id), slog.Bool("deleted", deleted))
	return nil
}
