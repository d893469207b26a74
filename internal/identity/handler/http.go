// Package handler exposes register, login, refresh, logout and self over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"auth-service/internal/identity/service"
	"auth-service/internal/platform/httpx"
	"auth-service/internal/security"
	"auth-service/internal/server/middleware"
	"auth-service/internal/session"
	userdomain "auth-service/internal/user/domain"
	userhandler "auth-service/internal/user/handler"
)

// Sessions is the session manager surface the handler needs.
type Sessions interface {
	Register(ctx context.Context, in service.RegisterInput) (*service.Session, error)
	Login(ctx context.Context, email, password string) (*service.Session, error)
	Refresh(ctx context.Context, claims *security.RefreshClaims) (*service.Session, error)
	Logout(ctx context.Context, claims *security.RefreshClaims) error
	Self(ctx context.Context, userID int64) (*userdomain.User, error)
}

// Handler serves /auth.
type Handler struct {
	sessions Sessions
	cookies  session.CookiePolicy
	log      *slog.Logger
}

// NewHandler returns an auth Handler.
func NewHandler(sessions Sessions, cookies session.CookiePolicy, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{sessions: sessions, cookies: cookies, log: log}
}

type registerRequest struct {
	FirstName string `json:"firstname" validate:"required" msg:"Firstname is required!"`
	LastName  string `json:"lastname" validate:"required" msg:"Lastname is required!"`
	Email     string `json:"email" validate:"required,email" msg:"Email is required!" msg_email:"Email should be a valid email"`
	Password  string `json:"password" validate:"required,min=8,max=72" msg:"Password is required!" msg_min:"Password must be at least 8 characters long" msg_max:"Password must be at most 72 characters long"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" msg:"Email is required!" msg_email:"Email should be a valid email"`
	Password string `json:"password" validate:"required" msg:"Password is required!"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	sess, err := h.sessions.Register(r.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	h.cookies.Set(w, sess.AccessToken, sess.RefreshToken)
	h.log.InfoContext(r.Context(), "user has been created", slog.Int64("id", sess.User.ID))
	httpx.JSON(w, http.StatusCreated, idResponse{ID: sess.User.ID})
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	sess, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	h.cookies.Set(w, sess.AccessToken, sess.RefreshToken)
	h.log.InfoContext(r.Context(), "user has been logged in", slog.Int64("id", sess.User.ID))
	httpx.JSON(w, http.StatusOK, idResponse{ID: sess.User.ID})
}

// Self handles GET /auth/self. Requires middleware.Authenticate.
func (h *Handler) Self(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AccessClaims(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.log, security.ErrInvalidToken)
		return
	}
	u, err := h.sessions.Self(r.Context(), claims.PrincipalID())
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userhandler.ToResponse(u))
}

// Refresh handles POST /auth/refresh. Requires middleware.RequireRefresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.RefreshClaims(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.log, security.ErrInvalidToken)
		return
	}
	sess, err := h.sessions.Refresh(r.Context(), claims)
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	h.cookies.Set(w, sess.AccessToken, sess.RefreshToken)
	h.log.InfoContext(r.Context(), "tokens have been refreshed", slog.Int64("id", sess.User.ID))
	httpx.JSON(w, http.StatusOK, idResponse{ID: sess.User.ID})
}

// Logout handles POST /auth/logout. Requires middleware.ParseRefresh.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.RefreshClaims(r.Context())
	if !ok {
		httpx.RespondError(w, r, h.log, security.ErrInvalidToken)
		return
	}
	if err := h.sessions.Logout(r.Context(), claims); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	h.cookies.Clear(w)
	h.log.InfoContext(r.Context(), "user has been logged out", slog.Int64("id", claims.PrincipalID()))
	httpx.JSON(w, http.StatusOK, struct{}{})
}
