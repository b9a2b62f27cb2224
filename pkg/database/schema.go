package database

import (
	"context"
	"fmt"
)

// InitSchema creates the tables if they do not exist. The uniqueness and
// check constraints here are the storage-level half of the invariants the
// services enforce: per-tenant SKU uniqueness, globally unique order
// numbers, and non-negative stock.
func (cp *ConnectionPool) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tenants (
		id BIGSERIAL PRIMARY KEY,
		store_name TEXT NOT NULL UNIQUE,
		subdomain TEXT NOT NULL UNIQUE,
		domain TEXT UNIQUE,
		contact_email TEXT NOT NULL,
		contact_phone TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		tenant_id BIGINT REFERENCES tenants(id),
		role TEXT NOT NULL DEFAULT 'CUSTOMER',
		phone TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(10,2) NOT NULL CHECK (price > 0),
		stock_quantity INTEGER NOT NULL DEFAULT 0 CHECK (stock_quantity >= 0),
		sku TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by BIGINT REFERENCES users(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (tenant_id, sku)
	);
	CREATE INDEX IF NOT EXISTS idx_products_tenant_active ON products (tenant_id, is_active);

	CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		tenant_id BIGINT NOT NULL REFERENCES tenants(id),
		customer_id BIGINT NOT NULL REFERENCES users(id),
		order_number TEXT NOT NULL UNIQUE,
		status TEXT NOT NULL DEFAULT 'PENDING',
		total_amount NUMERIC(10,2) NOT NULL CHECK (total_amount > 0),
		shipping_address TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE INDEX IF NOT EXISTS idx_orders_tenant_customer ON orders (tenant_id, customer_id);
	CREATE INDEX IF NOT EXISTS idx_orders_tenant_status ON orders (tenant_id, status);

	CREATE TABLE IF NOT EXISTS order_items (
		id BIGSERIAL PRIMARY KEY,
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		price_at_order NUMERIC(10,2) NOT NULL CHECK (price_at_order > 0),
		subtotal NUMERIC(10,2) NOT NULL CHECK (subtotal > 0)
	);
	`

	if _, err := cp.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}
