package middleware

import (
	"net"
	"net/http"

	"auth-service/internal/audit"
)

// ClientIP stores the caller address in the request context for the audit trail.
// Mount it after chi's RealIP, when that is used, so forwarded addresses are already applied.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(audit.WithClientIP(r.Context(), ip)))
	})
}
