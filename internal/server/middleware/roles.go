package middleware

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"auth-service/internal/platform/httpx"
	"auth-service/internal/platform/rbac"
	"auth-service/internal/user/domain"
)

// RequireRoles allows the request through only when the authenticated role is one of
// roles and, when gate is non-nil, the Rego policy allows it too. Must run after Authenticate.
func RequireRoles(gate *rbac.PolicyGate, log *slog.Logger, roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := AccessClaims(r.Context())
			if err := rbac.Authorize(claims, roles...); err != nil {
				httpx.RespondError(w, r, log, err)
				return
			}
			req := rbac.Request{Method: r.Method, Route: routePattern(r)}
			if err := gate.Allow(r.Context(), claims, req); err != nil {
				if log != nil {
					log.WarnContext(r.Context(), "policy denied request",
						slog.String("route", req.Route), slog.Any("error", err))
				}
				httpx.RespondError(w, r, log, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
