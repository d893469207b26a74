// Package middleware holds the chi middleware that authenticates requests, enforces
// roles and records client addresses and admin mutations for the audit trail.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"auth-service/internal/audit"
	"auth-service/internal/platform/httpx"
	"auth-service/internal/security"
	"auth-service/internal/session"
)

const bearerPrefix = "bearer "

// Authenticator verifies the token cookies. It holds no per-request state.
type Authenticator struct {
	codec      *security.TokenCodec
	revocation *session.RevocationCheck
	audit      audit.AuditLogger
	log        *slog.Logger
}

// NewAuthenticator returns an Authenticator. auditLogger may be nil.
func NewAuthenticator(codec *security.TokenCodec, revocation *session.RevocationCheck, auditLogger audit.AuditLogger, log *slog.Logger) *Authenticator {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Authenticator{codec: codec, revocation: revocation, audit: auditLogger, log: log}
}

// Authenticate requires a valid access token, read from the accessToken cookie or an
// Authorization: Bearer header, and stores its claims in the request context.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractAccess(r)
		if token == "" {
			httpx.RespondError(w, r, a.log, security.ErrInvalidToken)
			return
		}
		claims, err := a.codec.VerifyAccess(token)
		if err != nil {
			httpx.RespondError(w, r, a.log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAccessClaims(r.Context(), claims)))
	})
}

// RequireRefresh requires a valid refresh token cookie that still has a live record.
func (a *Authenticator) RequireRefresh(next http.Handler) http.Handler {
	return a.refresh(next, true)
}

// ParseRefresh requires a cryptographically valid refresh token cookie but does not
// consult the store, so logging out with an already-rotated token still clears cookies.
func (a *Authenticator) ParseRefresh(next http.Handler) http.Handler {
	return a.refresh(next, false)
}

func (a *Authenticator) refresh(next http.Handler, checkRevocation bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.RefreshCookie)
		if err != nil || cookie.Value == "" {
			httpx.RespondError(w, r, a.log, security.ErrInvalidToken)
			return
		}
		claims, err := a.codec.VerifyRefresh(cookie.Value)
		if err != nil {
			httpx.RespondError(w, r, a.log, err)
			return
		}
		if checkRevocation {
			if err := a.revocation.Check(r.Context(), claims); err != nil {
				a.audit.LogEvent(r.Context(), claims.PrincipalID(), audit.ActionRefreshRevoked, audit.ResourceSession, "")
				httpx.RespondError(w, r, a.log, err)
				return
			}
		}
		next.ServeHTTP(w, r.WithContext(WithRefreshClaims(r.Context(), claims)))
	})
}

// extractAccess returns the access token from the cookie, falling back to the
// Authorization header. Returns "" if neither is present or the header is malformed.
func extractAccess(r *http.Request) string {
	if c, err := r.Cookie(session.AccessCookie); err == nil && c.Value != "" {
		return c.Value
	}
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
