// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Refresh token store backends.
const (
	RefreshStorePostgres = "postgres"
	RefreshStoreRedis    = "redis"
)

// Config holds application configuration loaded from the environment.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :5501).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health server; empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// JWTPrivateKey is the PEM-encoded RSA private key or a path to it; signs access tokens (RS256).
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or a path to it. Derived from JWTPrivateKey when empty.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// RefreshTokenSecret is the HMAC secret for refresh tokens (HS256).
	RefreshTokenSecret string `mapstructure:"REFRESH_TOKEN_SECRET"`
	// JWTIssuer is the iss claim on both token kinds.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAccessTTL is the access token lifetime (e.g. "1h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "8760h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`

	// CookieDomain scopes the accessToken/refreshToken cookies.
	CookieDomain string `mapstructure:"COOKIE_DOMAIN"`
	// CookieSecure sets the Secure flag on auth cookies.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// FrontendURL is the single CORS origin allowed to send credentials.
	FrontendURL string `mapstructure:"FRONTEND_URL"`

	// BcryptCost is the bcrypt cost factor (4–31); default 10.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is json or text.
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// RefreshStore selects the refresh token backend: postgres or redis.
	RefreshStore string `mapstructure:"REFRESH_STORE"`
	// RedisAddr is the Redis address used by the redis refresh store and the purge worker.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// PurgeCron is the cron spec for the expired refresh token purge task.
	PurgeCron string `mapstructure:"PURGE_CRON"`

	// RBACPolicyFile is an optional Rego policy evaluated after the role check.
	RBACPolicyFile string `mapstructure:"RBAC_POLICY_FILE"`

	// AuthRateLimit is the per-IP request budget per minute for login and register.
	AuthRateLimit int `mapstructure:"RATE_LIMIT_AUTH_PER_MINUTE"`
	// TrustProxy honours X-Forwarded-For and X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxy bool `mapstructure:"TRUST_PROXY"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext connection to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Key material is not checked here;
// the security package reports missing keys when the KeyProvider is built.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":5501")
	v.SetDefault("GRPC_ADDR", ":5502")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("REFRESH_TOKEN_SECRET", "")
	v.SetDefault("JWT_ISSUER", "auth-service")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("JWT_REFRESH_TTL", "8760h") // 365d
	v.SetDefault("COOKIE_DOMAIN", "localhost")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("FRONTEND_URL", "")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("REFRESH_STORE", RefreshStorePostgres)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("PURGE_CRON", "0 3 * * *")
	v.SetDefault("RBAC_POLICY_FILE", "")
	v.SetDefault("RATE_LIMIT_AUTH_PER_MINUTE", 20)
	v.SetDefault("TRUST_PROXY", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.JWTIssuer == "" {
		return errors.New("config: JWT_ISSUER must be set")
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	c.RefreshStore = strings.ToLower(strings.TrimSpace(c.RefreshStore))
	switch c.RefreshStore {
	case "":
		c.RefreshStore = RefreshStorePostgres
	case RefreshStorePostgres, RefreshStoreRedis:
	default:
		return errors.New("config: REFRESH_STORE must be postgres or redis")
	}
	if c.RefreshStore == RefreshStoreRedis && c.RedisAddr == "" {
		return errors.New("config: REDIS_ADDR must be set when REFRESH_STORE=redis")
	}
	if c.AuthRateLimit <= 0 {
		c.AuthRateLimit = 20
	}
	if c.IsProduction() && !c.CookieSecure {
		return errors.New("config: COOKIE_SECURE must be true when APP_ENV=production")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && strings.EqualFold(c.Env, "production")
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 365 days if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 365 * 24 * time.Hour
	}
	return d
}
