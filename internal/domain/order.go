package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the closed set of order states. Any status may overwrite
// any other; there is intentionally no transition ordering (see DESIGN.md).
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusConfirmed  OrderStatus = "CONFIRMED"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
)

// ValidOrderStatus reports whether s is a member of the status enumeration.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Order is a tenant-owned purchase. TotalAmount is derived: it always equals
// the sum of the item subtotals.
type Order struct {
	ID              int64           `json:"id"`
	TenantID        int64           `json:"tenant_id"`
	CustomerID      int64           `json:"customer_id"`
	OrderNumber     string          `json:"order_number"` // globally unique, system generated
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address"`
	Notes           string          `json:"notes"`
	Items           []*OrderItem    `json:"items,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// OrderItem links a product into an order. PriceAtOrder is a snapshot of the
// product price at creation time and never changes afterwards, even when the
// product is repriced.
type OrderItem struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"` // denormalized for responses
	ProductSKU   string          `json:"product_sku"`
	Quantity     int             `json:"quantity"` // >= 1
	PriceAtOrder decimal.Decimal `json:"price_at_order"`
	Subtotal     decimal.Decimal `json:"subtotal"` // PriceAtOrder * Quantity
}

// OrderFilter narrows order listings. Status "" matches all statuses;
// CustomerID 0 matches all customers within the tenant.
type OrderFilter struct {
	Status     OrderStatus
	CustomerID int64
}

// OrderRepository defines tenant-scoped read and status access for orders.
// Order creation is the order transaction's job (internal/service) because
// it spans products, items and the order row atomically.
type OrderRepository interface {
	GetByID(ctx context.Context, tenantID, id int64) (*Order, error)
	List(ctx context.Context, tenantID int64, filter OrderFilter) ([]*Order, int, error)
	UpdateStatus(ctx context.Context, tenantID, id int64, status OrderStatus) error
	UpdateDetails(ctx context.Context, tenantID int64, order *Order) error
	Delete(ctx context.Context, tenantID, id int64) error
}
