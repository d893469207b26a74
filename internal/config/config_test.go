package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":5501" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":5501")
	}
	if cfg.JWTIssuer != "auth-service" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "auth-service")
	}
	if cfg.CookieDomain != "localhost" {
		t.Errorf("CookieDomain = %q, want localhost", cfg.CookieDomain)
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should default to false")
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.RefreshStore != RefreshStorePostgres {
		t.Errorf("RefreshStore = %q, want postgres", cfg.RefreshStore)
	}
	if cfg.AuthRateLimit != 20 {
		t.Errorf("AuthRateLimit = %d, want 20", cfg.AuthRateLimit)
	}
	if cfg.PurgeCron != "0 3 * * *" {
		t.Errorf("PurgeCron = %q", cfg.PurgeCron)
	}
	if cfg.AccessTTL() != time.Hour {
		t.Errorf("AccessTTL = %v, want 1h", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 365*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 365d", cfg.RefreshTTL())
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "12")
	os.Setenv("COOKIE_SECURE", "true")
	os.Setenv("REFRESH_STORE", "Redis")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should be true")
	}
	if cfg.RefreshStore != RefreshStoreRedis {
		t.Errorf("RefreshStore = %q, want redis", cfg.RefreshStore)
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 10, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("BCRYPT_COST", tc.value)

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_UnknownRefreshStore(t *testing.T) {
	os.Clearenv()
	os.Setenv("REFRESH_STORE", "memcached")

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should reject unknown REFRESH_STORE")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestLoad_ProductionRequiresSecureCookies(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")

	_, err := Load()
	if err == nil {
		t.Fatal("Load should return error when APP_ENV=production and COOKIE_SECURE is false")
	}
	if err.Error() != "config: COOKIE_SECURE must be true when APP_ENV=production" {
		t.Errorf("error = %q", err.Error())
	}

	os.Setenv("COOKIE_SECURE", "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true")
	}
}

func TestAccessTTL_Fallbacks(t *testing.T) {
	for _, v := range []string{"invalid", "0", "-5m"} {
		os.Clearenv()
		os.Setenv("JWT_ACCESS_TTL", v)
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if ttl := cfg.AccessTTL(); ttl != time.Hour {
			t.Errorf("AccessTTL(%q) = %v, want 1h", v, ttl)
		}
	}
}

func TestRefreshTTL_ValidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_REFRESH_TTL", "336h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.RefreshTTL(); ttl != 14*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want %v", ttl, 14*24*time.Hour)
	}
}

func TestRefreshTTL_InvalidDuration(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_REFRESH_TTL", "invalid")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ttl := cfg.RefreshTTL(); ttl != 365*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 365d", ttl)
	}
}
