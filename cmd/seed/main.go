// seed creates the first ADMIN principal from SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD.
// Idempotent: an existing user with that email is left untouched.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"auth-service/internal/config"
	"auth-service/internal/db"
	"auth-service/internal/logging"
	"auth-service/internal/security"
	"auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
)

const minPasswordLen = 8

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db", slog.Any("error", err))
		os.Exit(1)
	}
	defer conn.Close()

	created, err := seedAdmin(ctx, userrepo.NewPostgresRepository(conn), security.NewHasher(cfg.BcryptCost),
		os.Getenv("SEED_ADMIN_EMAIL"), os.Getenv("SEED_ADMIN_PASSWORD"))
	if err != nil {
		log.Error("seed admin", slog.Any("error", err))
		os.Exit(1)
	}
	if !created {
		log.Info("seed already applied, skipping")
		return
	}
	log.Info("admin user created", slog.String("email", domain.NormalizeEmail(os.Getenv("SEED_ADMIN_EMAIL"))))
}

type adminStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User, passwordHash string) (*domain.User, error)
}

// seedAdmin reports whether a new admin was created.
func seedAdmin(ctx context.Context, users adminStore, hasher *security.Hasher, email, password string) (bool, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return false, errors.New("SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD must be set")
	}
	if len(password) < minPasswordLen {
		return false, errors.New("SEED_ADMIN_PASSWORD must be at least 8 characters long")
	}
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return false, err
	}
	_, err = users.Create(ctx, &domain.User{
		FirstName: "Admin",
		LastName:  "User",
		Email:     email,
		Role:      domain.RoleAdmin,
	}, hash)
	if errors.Is(err, userrepo.ErrDuplicateEmail) {
		return false, nil
	}
	return err == nil, err
}
