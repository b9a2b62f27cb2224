package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a tenant-owned catalog entry. SKU is unique per tenant, not
// globally. StockQuantity is only ever decremented by the order transaction;
// no other code path mutates it.
type Product struct {
	ID            int64           `json:"id"`
	TenantID      int64           `json:"tenant_id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"` // > 0
	StockQuantity int             `json:"stock_quantity"` // >= 0
	SKU           string          `json:"sku"`
	IsActive      bool            `json:"is_active"`
	CreatedBy     *int64          `json:"created_by"` // user id, nil once the creator is deleted
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ProductFilter narrows product listings. Search is a case-insensitive
// substring match over name, description and SKU.
type ProductFilter struct {
	Search     string
	ActiveOnly bool
}

// ProductRepository defines tenant-scoped data access for products. Every
// method is hard-scoped to tenantID regardless of what the policy layer
// decided; a row outside the caller's tenant behaves as if it did not exist.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, tenantID, id int64) (*Product, error)
	List(ctx context.Context, tenantID int64, filter ProductFilter) ([]*Product, int, error)
	Update(ctx context.Context, tenantID int64, product *Product) error
	Delete(ctx context.Context, tenantID, id int64) error
	// ListLowStock is an operator-scope query used by the stock worker; it is
	// the only product read that crosses tenants and it is never reachable
	// from a request path.
	ListLowStock(ctx context.Context, threshold int) ([]*Product, error)
}
