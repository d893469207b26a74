package middleware

import (
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"auth-service/internal/audit"
)

// AuditMutations records successful non-GET requests as audit events whose action and
// resource come from the matched route (e.g. DELETE /users/{id} -> delete/user).
func AuditMutations(logger audit.AuditLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			if ww.Status() >= http.StatusBadRequest {
				return
			}
			var userID int64
			if claims, ok := AccessClaims(r.Context()); ok {
				userID = claims.PrincipalID()
			}
			ar := audit.ParseRoute(r.Method, routePattern(r))
			logger.LogEvent(r.Context(), userID, ar.Action, ar.Resource, r.URL.Path)
		})
	}
}
