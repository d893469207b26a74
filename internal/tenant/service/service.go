// Package service implements tenant management.
package service

import (
	"context"
	"errors"
	"log/slog"

	"auth-service/internal/tenant/domain"
	tenantrepo "auth-service/internal/tenant/repository"
)

// ErrTenantNotFound is returned when the addressed tenant does not exist.
var ErrTenantNotFound = errors.New("tenant not found")

// TenantService manages tenants.
type TenantService struct {
	repo tenantrepo.Repository
	log  *slog.Logger
}

// NewTenantService returns a TenantService.
func NewTenantService(repo tenantrepo.Repository, log *slog.Logger) *TenantService {
	if log == nil {
		log = slog.Default()
	}
	return &TenantService{repo: repo, log: log}
}

// Create validates and stores a tenant.
func (s *TenantService) Create(ctx context.Context, name, address string) (*domain.Tenant, error) {
	t := &domain.Tenant{Name: name, Address: address}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "tenant has been created", slog.Int64("id", created.ID))
	return created, nil
}

// Update replaces name and address of tenant id.
func (s *TenantService) Update(ctx context.Context, id int64, name, address string) (*domain.Tenant, error) {
	t := &domain.Tenant{ID: id, Name: name, Address: address}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, t)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrTenantNotFound
	}
	return updated, nil
}

// List returns every tenant.
func (s *TenantService) List(ctx context.Context) ([]*domain.Tenant, error) {
	return s.repo.List(ctx)
}

// Get returns tenant id.
func (s *TenantService) Get(ctx context.Context, id int64) (*domain.Tenant, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

// Delete removes tenant id. Deleting a missing tenant is not an error.
func (s *TenantService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "tenant delete", slog.Int64("id", id), slog.Bool("deleted", deleted))
	return nil
}
