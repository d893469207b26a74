// Package server assembles the HTTP router and the gRPC health server.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"auth-service/internal/audit"
	healthhandler "auth-service/internal/health/handler"
	identityhandler "auth-service/internal/identity/handler"
	"auth-service/internal/platform/httpx"
	"auth-service/internal/platform/rbac"
	"auth-service/internal/server/middleware"
	"auth-service/internal/telemetry"
	tenanthandler "auth-service/internal/tenant/handler"
	"auth-service/internal/user/domain"
	userhandler "auth-service/internal/user/handler"
)

const (
	requestTimeout     = 30 * time.Second
	maxRequestBodySize = 1 << 20

	// DefaultAuthRateLimit applies when Deps.AuthRateLimit is unset.
	DefaultAuthRateLimit = 20
)

// Deps holds everything the router needs. Metrics, Policy, Audit and Health may be nil.
type Deps struct {
	Log         *slog.Logger
	Auth        *identityhandler.Handler
	Users       *userhandler.Handler
	Tenants     *tenanthandler.Handler
	Health      *healthhandler.Checker
	Authn       *middleware.Authenticator
	Policy      *rbac.PolicyGate
	Audit       audit.AuditLogger
	Metrics     *telemetry.Metrics
	FrontendURL string
	Production  bool
	// AuthRateLimit is the per-IP request budget per minute for login and register.
	AuthRateLimit int
	// TrustProxy lets X-Forwarded-For and X-Real-IP replace the peer address. Without it
	// the rate limiter and the audit trail key on the TCP peer.
	TrustProxy bool
}

// NewRouter returns the HTTP API.
//
//	GET    /                   welcome
//	GET    /healthz            readiness
//	GET    /metrics            Prometheus
//	POST   /auth/register      rate limited
//	POST   /auth/login         rate limited
//	GET    /auth/self          access token
//	POST   /auth/refresh       live refresh token
//	POST   /auth/logout        refresh token
//	GET    /tenants[/{id}]     public
//	*      /tenants[/{id}]     ADMIN
//	*      /users[/{id}]       ADMIN
func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	auditLogger := d.Audit
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}

	r := chi.NewRouter()
	r.NotFound(httpx.NotFound)
	r.MethodNotAllowed(httpx.MethodNotAllowed)

	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(
		chimw.RequestID,
		middleware.ClientIP,
		chimw.Recoverer,
		chimw.Timeout(requestTimeout),
		chimw.RequestSize(maxRequestBodySize),
		secureHeaders(d.Production, log),
		corsHandler(d.FrontendURL),
		d.Metrics.Middleware,
	)

	r.Get("/", healthhandler.Welcome)
	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
	}
	r.Handle("/metrics", d.Metrics.Handler())

	adminOnly := middleware.RequireRoles(d.Policy, log, domain.RoleAdmin)
	audited := middleware.AuditMutations(auditLogger)

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authRateLimit(d.AuthRateLimit, log))
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)
		})
		r.With(d.Authn.Authenticate).Get("/self", d.Auth.Self)
		r.With(d.Authn.RequireRefresh).Post("/refresh", d.Auth.Refresh)
		r.With(d.Authn.ParseRefresh).Post("/logout", d.Auth.Logout)
	})

	r.Route("/tenants", func(r chi.Router) {
		r.Get("/", d.Tenants.List)
		r.Get("/{id}", d.Tenants.Get)
		r.Group(func(r chi.Router) {
			r.Use(d.Authn.Authenticate, adminOnly, audited)
			r.Post("/", d.Tenants.Create)
			r.Patch("/{id}", d.Tenants.Update)
			r.Delete("/{id}", d.Tenants.Delete)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(d.Authn.Authenticate, adminOnly, audited)
			r.Get("/", d.Users.List)
			r.Post("/", d.Users.Create)
			r.Get("/{id}", d.Users.Get)
			r.Patch("/{id}", d.Users.Update)
			r.Delete("/{id}", d.Users.Delete)
		})
	})

	return r
}

func secureHeaders(production bool, log *slog.Logger) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				log.WarnContext(r.Context(), "secure headers blocked request", slog.Any("error", err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsHandler allows the single frontend origin to send cookies. With no origin configured
// cross-origin requests get no CORS headers.
func corsHandler(frontendURL string) func(http.Handler) http.Handler {
	var origins []string
	if frontendURL != "" {
		origins = []string{frontendURL}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

func authRateLimit(perMinute int, log *slog.Logger) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		perMinute = DefaultAuthRateLimit
	}
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			log.WarnContext(r.Context(), "auth rate limit exceeded", slog.String("ip", audit.ClientIP(r.Context())))
			httpx.JSON(w, http.StatusTooManyRequests, httpx.ErrorBody{Errors: []httpx.ErrorItem{{
				Type: "TooManyRequestsError",
				Msg:  "Too many requests, please try again later.",
			}}})
		}),
	)
}
