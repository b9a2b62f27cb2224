package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/vendorhub/internal/security/middleware"
	"github.com/yourorg/vendorhub/internal/service"
)

// TenantHandler exposes the store-owner view of their own tenant.
type TenantHandler struct {
	tenants *service.TenantService
	logger  *slog.Logger
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenants *service.TenantService, logger *slog.Logger) *TenantHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantHandler{tenants: tenants, logger: logger}
}

// GetOwn handles GET /api/tenants
func (h *TenantHandler) GetOwn(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())

	tenant, err := h.tenants.GetOwn(r.Context(), actor)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}
