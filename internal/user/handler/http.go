// Package handler exposes administrator user management over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"auth-service/internal/platform/httpx"
	"auth-service/internal/user/domain"
	userrepo "auth-service/internal/user/repository"
	"auth-service/internal/user/service"
)

// Users is the user service surface the handler needs.
type Users interface {
	Create(ctx context.Context, in service.CreateInput) (*domain.User, error)
	Update(ctx context.Context, id int64, in service.UpdateInput) (*domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	List(ctx context.Context, p userrepo.ListParams) (*service.Page, error)
	Delete(ctx context.Context, id int64) error
}

// Handler serves /users. Every route is admin-only; the router enforces that.
type Handler struct {
	users Users
	log   *slog.Logger
}

// NewHandler returns a user Handler.
func NewHandler(users Users, log *slog.Logger) *Handler {
	return &Handler{users: users, log: log}
}

type createUserRequest struct {
	FirstName string `json:"firstname" validate:"required" msg:"Firstname is required!"`
	LastName  string `json:"lastname" validate:"required" msg:"Lastname is required!"`
	Email     string `json:"email" validate:"required,email" msg:"Email is required!" msg_email:"Email should be a valid email"`
	Password  string `json:"password" validate:"required,min=8,max=72" msg:"Password is required!" msg_min:"Password must be at least 8 characters long" msg_max:"Password must be at most 72 characters long"`
	Role      string `json:"role" validate:"required,oneof=customer manager admin" msg:"Role is required!" msg_oneof:"Role must be one of the following: customer, manager, admin"`
	TenantID  *int64 `json:"tenantId" validate:"omitempty,gt=0" msg:"Tenant ID is invalid!"`
}

type updateUserRequest struct {
	FirstName string `json:"firstname" validate:"required" msg:"First name is required!"`
	LastName  string `json:"lastname" validate:"required" msg:"Last name is required!"`
	Email     string `json:"email" validate:"required,email" msg:"Email is required!" msg_email:"Invalid Email!"`
	Role      string `json:"role" validate:"required,oneof=customer manager admin" msg:"Role is required!" msg_oneof:"Role must be one of the following: customer, manager, admin"`
	TenantID  *int64 `json:"tenantId" validate:"required,gt=0" msg:"Tenant ID is required!"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

type listResponse struct {
	Data        []*UserResponse `json:"data"`
	CurrentPage int             `json:"currentPage"`
	PerPage     int             `json:"perPage"`
	Total       int             `json:"total"`
}

// Create handles POST /users.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	u, err := h.users.Create(r.Context(), service.CreateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      domain.Role(req.Role),
		TenantID:  req.TenantID,
	})
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, idResponse{ID: u.ID})
}

// Update handles PATCH /users/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	if _, err := h.users.Update(r.Context(), id, service.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      domain.Role(req.Role),
		TenantID:  req.TenantID,
	}); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, idResponse{ID: id})
}

// List handles GET /users?currentPage=&perPage=&q=&role=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := userrepo.ListParams{
		Page:    httpx.QueryInt(r, "currentPage", service.DefaultPage),
		PerPage: httpx.QueryInt(r, "perPage", service.DefaultPerPage),
		Query:   strings.TrimSpace(q.Get("q")),
	}
	if raw := q.Get("role"); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			httpx.RespondError(w, r, h.log, httpx.Validation("Role must be one of the following: customer, manager, admin"))
			return
		}
		params.Role = role
	}
	page, err := h.users.List(r.Context(), params)
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	resp := listResponse{
		Data:        make([]*UserResponse, 0, len(page.Data)),
		CurrentPage: page.CurrentPage,
		PerPage:     page.PerPage,
		Total:       page.Total,
	}
	for _, u := range page.Data {
		resp.Data = append(resp.Data, ToResponse(u))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Get handles GET /users/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToResponse(u))
}

// Delete handles DELETE /users/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, idResponse{ID: id})
}
