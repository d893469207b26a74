package repository

import (
	"context"

	"auth-service/internal/tenant/domain"
)

// Repository defines persistence for tenants. Lookups return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error)
	Update(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error)
	Delete(ctx context.Context, id int64) (bool, error)
}
