package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"auth-service/internal/security"
	"auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
)

func TestSeedAdmin_Idempotent(t *testing.T) {
	ctx := context.Background()
	users := userrepo.NewMemoryRepository()
	hasher := security.NewHasher(4)

	created, err := seedAdmin(ctx, users, hasher, "Admin@Example.com", "password123")
	require.NoError(t, err)
	require.True(t, created)

	created, err = seedAdmin(ctx, users, hasher, "admin@example.com", "password123")
	require.NoError(t, err)
	require.False(t, created)

	c, err := users.GetCredentialByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, c.Role)
	ok, err := hasher.Matches(c.PasswordHash, "password123")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestSeedAdmin_RequiresCredentials(t *testing.T) {
	users := userrepo.NewMemoryRepository()
	hasher := security.NewHasher(4)

	_, err := seedAdmin(context.Background(), users, hasher, "", "password123")
	require.Error(t, err)
	_, err = seedAdmin(context.Background(), users, hasher, "a@b.co", "short")
	require.Error(t, err)
}
