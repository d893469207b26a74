// server runs the auth HTTP API and the gRPC health service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"auth-service/internal/audit"
	auditrepo "auth-service/internal/audit/repository"
	"auth-service/internal/config"
	"auth-service/internal/db"
	healthhandler "auth-service/internal/health/handler"
	identityhandler "auth-service/internal/identity/handler"
	identityservice "auth-service/internal/identity/service"
	"auth-service/internal/logging"
	"auth-service/internal/platform/rbac"
	"auth-service/internal/security"
	"auth-service/internal/server"
	"auth-service/internal/server/middleware"
	"auth-service/internal/session"
	sessionrepo "auth-service/internal/session/repository"
	"auth-service/internal/telemetry"
	oteltelemetry "auth-service/internal/telemetry/otel"
	tenanthandler "auth-service/internal/tenant/handler"
	tenantrepo "auth-service/internal/tenant/repository"
	tenantservice "auth-service/internal/tenant/service"
	userhandler "auth-service/internal/user/handler"
	userrepo "auth-service/internal/user/repository"
	userservice "auth-service/internal/user/service"
)

const (
	shutdownTimeout = 10 * time.Second
	healthInterval  = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	providers, err := oteltelemetry.NewProviders(ctx, oteltelemetry.Options{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: logging.ServiceName,
		Insecure:    cfg.OTLPInsecure,
		Log:         log,
	})
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = providers.Shutdown(sctx)
	}()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	keys, err := security.NewKeyProvider(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.RefreshTokenSecret)
	if err != nil {
		return err
	}
	codec := security.NewTokenCodec(keys, cfg.JWTIssuer, cfg.AccessTTL(), cfg.RefreshTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	tokens, closeTokens, err := refreshStore(ctx, cfg, database, log)
	if err != nil {
		return err
	}
	defer closeTokens()

	var gate *rbac.PolicyGate
	if cfg.RBACPolicyFile != "" {
		if gate, err = rbac.LoadPolicyGate(ctx, cfg.RBACPolicyFile); err != nil {
			return err
		}
		log.Info("rbac policy loaded", slog.String("file", cfg.RBACPolicyFile))
	}

	metrics := telemetry.NewMetrics()
	auditLogger := audit.NewLogger(
		auditrepo.NewPostgresRepository(database),
		oteltelemetry.NewEventEmitter(providers.LoggerProvider),
		metrics,
		log,
	)

	users := userrepo.NewPostgresRepository(database)
	sessions := identityservice.NewSessionManager(users, tokens, codec, hasher, auditLogger, log)
	checker := healthhandler.NewChecker(database, gate, log)

	router := server.NewRouter(server.Deps{
		Log:           log,
		Auth:          identityhandler.NewHandler(sessions, session.NewCookiePolicy(cfg.CookieDomain, cfg.CookieSecure), log),
		Users:         userhandler.NewHandler(userservice.NewUserService(users, hasher, log), log),
		Tenants:       tenanthandler.NewHandler(tenantservice.NewTenantService(tenantrepo.NewPostgresRepository(database), log), log),
		Health:        checker,
		Authn:         middleware.NewAuthenticator(codec, session.NewRevocationCheck(tokens, log), auditLogger, log),
		Policy:        gate,
		Audit:         auditLogger,
		Metrics:       metrics,
		FrontendURL:   cfg.FrontendURL,
		Production:    cfg.IsProduction(),
		AuthRateLimit: cfg.AuthRateLimit,
		TrustProxy:    cfg.TrustProxy,
	})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", cfg.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down http server")
		return httpSrv.Shutdown(sctx)
	})

	if cfg.GRPCAddr != "" {
		grpcSrv, hs := server.NewGRPCServer(log)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		g.Go(func() error {
			log.Info("grpc health server listening", slog.String("addr", cfg.GRPCAddr))
			return grpcSrv.Serve(lis)
		})
		g.Go(func() error {
			checker.Watch(ctx, hs, healthInterval)
			hs.Shutdown()
			grpcSrv.GracefulStop()
			return nil
		})
	}

	return g.Wait()
}

// refreshStore returns the configured refresh token store and a cleanup func.
func refreshStore(ctx context.Context, cfg *config.Config, database *sql.DB, log *slog.Logger) (sessionrepo.Repository, func(), error) {
	if cfg.RefreshStore != config.RefreshStoreRedis {
		return sessionrepo.NewPostgresRepository(database), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	log.Info("refresh tokens stored in redis", slog.String("addr", cfg.RedisAddr))
	return sessionrepo.NewRedisRepository(client), func() {
		if err := client.Close(); err != nil {
			log.Warn("redis close", slog.Any("error", err))
		}
	}, nil
}
