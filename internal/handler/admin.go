package handler

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/yourorg/vendorhub/internal/service"
)

// AdminHandler exposes the platform-operator tenant lifecycle endpoints.
// The surface sits outside tenant auth entirely and is guarded by a static
// token compared in constant time.
type AdminHandler struct {
	tenants *service.TenantService
	token   string
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(tenants *service.TenantService, token string, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{tenants: tenants, token: token, logger: logger}
}

func (h *AdminHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	if h.token == "" {
		writeError(w, http.StatusServiceUnavailable, "admin surface disabled")
		return false
	}
	got := r.Header.Get("X-Admin-Token")
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
		h.logger.Warn("rejected admin request", slog.String("path", r.URL.Path))
		writeError(w, http.StatusUnauthorized, "invalid admin token")
		return false
	}
	return true
}

// CreateTenant handles POST /api/admin/tenants
func (h *AdminHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	var in service.TenantInput
	if !decodeBody(w, r, &in) {
		return
	}

	tenant, err := h.tenants.AdminCreate(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenant)
}

// ListTenants handles GET /api/admin/tenants
func (h *AdminHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	tenants, err := h.tenants.AdminList(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Count: len(tenants), Results: tenants})
}

// GetTenant handles GET /api/admin/tenants/{id}
func (h *AdminHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	tenant, err := h.tenants.AdminGet(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// DeactivateTenant handles POST /api/admin/tenants/{id}/deactivate
func (h *AdminHandler) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.tenants.AdminDeactivate(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PurgeRequest confirms a destructive tenant purge by store name.
type PurgeRequest struct {
	ConfirmStoreName string `json:"confirm_store_name"`
}

// PurgeTenant handles POST /api/admin/tenants/{id}/purge
func (h *AdminHandler) PurgeTenant(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req PurgeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.tenants.AdminPurge(r.Context(), id, req.ConfirmStoreName); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
