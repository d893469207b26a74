// Package handler exposes tenant management over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"auth-service/internal/platform/httpx"
	"auth-service/internal/tenant/domain"
)

// Tenants is the tenant service surface the handler needs.
type Tenants interface {
	Create(ctx context.Context, name, address string) (*domain.Tenant, error)
	Update(ctx context.Context, id int64, name, address string) (*domain.Tenant, error)
	List(ctx context.Context) ([]*domain.Tenant, error)
	Get(ctx context.Context, id int64) (*domain.Tenant, error)
	Delete(ctx context.Context, id int64) error
}

// Handler serves /tenants. Reads are public; writes are admin-only (enforced by the router).
type Handler struct {
	tenants Tenants
	log     *slog.Logger
}

// NewHandler returns a tenant Handler.
func NewHandler(tenants Tenants, log *slog.Logger) *Handler {
	return &Handler{tenants: tenants, log: log}
}

type tenantRequest struct {
	Name    string `json:"name" validate:"required,max=100" msg:"Tenant name is required!" msg_max:"Tenant name should be less than 100 characters"`
	Address string `json:"address" validate:"required,max=255" msg:"Tenant address is required!" msg_max:"Tenant address should be less than 255 characters"`
}

type tenantResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

func toResponse(t *domain.Tenant) tenantResponse {
	return tenantResponse{ID: t.ID, Name: t.Name, Address: t.Address, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

// Create handles POST /tenants.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req tenantRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	t, err := h.tenants.Create(r.Context(), req.Name, req.Address)
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, idResponse{ID: t.ID})
}

// Update handles PATCH /tenants/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	var req tenantRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	if _, err := h.tenants.Update(r.Context(), id, req.Name, req.Address); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, idResponse{ID: id})
}

// List handles GET /tenants.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.tenants.List(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	out := make([]tenantResponse, 0, len(list))
	for _, t := range list {
		out = append(out, toResponse(t))
	}
	httpx.JSON(w, http.StatusOK, out)
}

// Get handles GET /tenants/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	t, err := h.tenants.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(t))
}

// Delete handles DELETE /tenants/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	if err := h.tenants.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, r, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, idResponse{ID: id})
}
