package domain

import (
	"context"
	"time"
)

// Tenant represents an isolated store/vendor. It is the unit of data
// partitioning: every product, order and (non-admin) user belongs to
// exactly one tenant.
type Tenant struct {
	ID           int64     `json:"id"`
	StoreName    string    `json:"store_name"` // unique across the platform
	Subdomain    string    `json:"subdomain"`  // unique
	Domain       string    `json:"domain,omitempty"` // unique, optional ("" when unset)
	ContactEmail string    `json:"contact_email"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TenantRepository defines data access for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id int64) (*Tenant, error)
	GetActiveByID(ctx context.Context, id int64) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	// Deactivate soft-disables a tenant. Children are untouched.
	Deactivate(ctx context.Context, id int64) error
	// Purge hard-deletes a tenant and all of its users, products, orders and
	// order items in one transaction. This is the explicit, audited cascade
	// delete; it is never triggered implicitly.
	Purge(ctx context.Context, id int64) error
}
