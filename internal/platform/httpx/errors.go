package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	identityservice "auth-service/internal/identity/service"
	"auth-service/internal/platform/rbac"
	"auth-service/internal/security"
	"auth-service/internal/session"
	tenantservice "auth-service/internal/tenant/service"
	userrepo "auth-service/internal/user/repository"
	userservice "auth-service/internal/user/service"
)

const internalMsg = "Internal Server Error"

// RespondError maps err to a status and message and writes the error body.
// Errors with no mapping are logged and reported as 500 without detail.
func RespondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, msg := Classify(err)
	if status >= http.StatusInternalServerError {
		logFor(log).ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.Any("error", err))
	}
	writeError(w, status, msg)
}

// Classify returns the HTTP status and client-facing message for err.
func Classify(err error) (int, string) {
	var ve *ValidationError
	switch {
	case errors.Is(err, security.ErrConfiguration):
		return http.StatusInternalServerError, internalMsg
	case errors.Is(err, security.ErrInvalidToken), errors.Is(err, session.ErrRevokedToken):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, identityservice.ErrInvalidCredentials):
		return http.StatusBadRequest, "Email or Password does not match!"
	case errors.Is(err, rbac.ErrForbidden):
		return http.StatusForbidden, "You don't have permission!"
	case errors.Is(err, identityservice.ErrPrincipalNotFound):
		return http.StatusBadRequest, "User with the token could not be found!"
	case errors.Is(err, identityservice.ErrEmailAlreadyRegistered), errors.Is(err, userrepo.ErrDuplicateEmail):
		return http.StatusBadRequest, "Email is already exist!"
	case errors.Is(err, userrepo.ErrUnknownTenant):
		return http.StatusBadRequest, "Tenant does not exist!"
	case errors.Is(err, userservice.ErrUserNotFound):
		return http.StatusBadRequest, "User does not exist!"
	case errors.Is(err, tenantservice.ErrTenantNotFound):
		return http.StatusBadRequest, "Tenant does not exist!"
	case errors.Is(err, security.ErrPasswordTooLong):
		return http.StatusBadRequest, "Password must be at most 72 characters long"
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Msg
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, http.StatusText(http.StatusNotFound)
	default:
		return http.StatusInternalServerError, internalMsg
	}
}
