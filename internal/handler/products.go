package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/security/middleware"
	"github.com/yourorg/vendorhub/internal/service"
)

// ProductHandler handles the tenant-scoped product endpoints
type ProductHandler struct {
	catalog *service.CatalogService
	logger  *slog.Logger
}

// NewProductHandler creates a new product handler
func NewProductHandler(catalog *service.CatalogService, logger *slog.Logger) *ProductHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProductHandler{catalog: catalog, logger: logger}
}

// ListResponse wraps paginated collection results.
type ListResponse struct {
	Count   int `json:"count"`
	Results any `json:"results"`
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusNotFound, "not found")
		return 0, false
	}
	return id, true
}

// List handles GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())

	filter := domain.ProductFilter{
		Search: r.URL.Query().Get("search"),
	}
	if r.URL.Query().Get("active") == "true" {
		filter.ActiveOnly = true
	}

	products, count, err := h.catalog.List(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Count: count, Results: products})
}

// Create handles POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())

	var in service.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}

	product, err := h.catalog.Create(r.Context(), actor, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("product created",
		slog.Int64("tenant_id", actor.TenantID),
		slog.Int64("product_id", product.ID),
	)
	writeJSON(w, http.StatusCreated, product)
}

// Get handles GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Update handles PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var in service.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}

	product, err := h.catalog.Update(r.Context(), actor, id, in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// Delete handles DELETE /api/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
