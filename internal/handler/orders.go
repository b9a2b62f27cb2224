package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/security/middleware"
	"github.com/yourorg/vendorhub/internal/service"
)

// OrderHandler handles the tenant-scoped order endpoints
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderHandler{orders: orders, logger: logger}
}

func orderFilterFromQuery(r *http.Request) (domain.OrderFilter, error) {
	filter := domain.OrderFilter{
		Status: domain.OrderStatus(r.URL.Query().Get("status")),
	}
	if raw := r.URL.Query().Get("customer"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, domain.Validationf("invalid customer filter %q", raw)
		}
		filter.CustomerID = id
	}
	return filter, nil
}

// List handles GET /api/orders
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())

	filter, err := orderFilterFromQuery(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	orders, count, err := h.orders.List(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Count: count, Results: orders})
}

// MyOrders handles GET /api/orders/my_orders
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())

	filter, err := orderFilterFromQuery(r)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	orders, count, err := h.orders.MyOrders(r.Context(), actor, filter)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Count: count, Results: orders})
}

// Create handles POST /api/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())

	var req service.CreateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.Create(r.Context(), actor, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Get handles GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Get(r.Context(), actor, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// StatusUpdateRequest carries the target order status.
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles POST /api/orders/{id}/update_status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), actor, id, domain.OrderStatus(req.Status))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("order status updated",
		slog.Int64("tenant_id", actor.TenantID),
		slog.Int64("order_id", id),
		slog.String("status", req.Status),
	)
	writeJSON(w, http.StatusOK, order)
}

// DetailsUpdateRequest carries the mutable order fields.
type DetailsUpdateRequest struct {
	ShippingAddress string `json:"shipping_address"`
	Notes           string `json:"notes"`
}

// Update handles PUT /api/orders/{id}
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req DetailsUpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateDetails(r.Context(), actor, id, req.ShippingAddress, req.Notes)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Delete handles DELETE /api/orders/{id}
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.TenantContextFrom(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.orders.Delete(r.Context(), actor, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
