package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/vendorhub/internal/domain"
)

// PostgresOrderRepository implements domain.OrderRepository using PostgreSQL.
// Creation lives in the order transaction (internal/service); this type
// covers tenant-scoped reads, status writes and deletion.
type PostgresOrderRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrderRepository creates a new order repository
func NewPostgresOrderRepository(db *sql.DB, logger *slog.Logger) *PostgresOrderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresOrderRepository{db: db, logger: logger}
}

const orderColumns = `id, tenant_id, customer_id, order_number, status, total_amount, shipping_address, notes, created_at, updated_at`

// GetByID retrieves an order with its items, scoped to the given tenant
func (r *PostgresOrderRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = $1 AND id = $2`

	o := &domain.Order{}
	var status string
	err := r.db.QueryRowContext(ctx, query, tenantID, id).Scan(
		&o.ID, &o.TenantID, &o.CustomerID, &o.OrderNumber, &status,
		&o.TotalAmount, &o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	o.Status = domain.OrderStatus(status)

	items, err := r.loadItems(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return o, nil
}

func (r *PostgresOrderRepository) loadItems(ctx context.Context, orderID int64) ([]*domain.OrderItem, error) {
	query := `
		SELECT i.id, i.order_id, i.product_id, p.name, p.sku, i.quantity, i.price_at_order, i.subtotal
		FROM order_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.order_id = $1
		ORDER BY i.id
	`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	var items []*domain.OrderItem
	for rows.Next() {
		it := &domain.OrderItem{}
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU,
			&it.Quantity, &it.PriceAtOrder, &it.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// List returns the tenant's orders plus a total count. Filter.CustomerID
// narrows to a single customer (used for customer self-service listings);
// Filter.Status is an exact match.
func (r *PostgresOrderRepository) List(ctx context.Context, tenantID int64, filter domain.OrderFilter) ([]*domain.Order, int, error) {
	where := `WHERE tenant_id = $1`
	args := []interface{}{tenantID}

	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		where += fmt.Sprintf(` AND customer_id = $%d`, len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := `SELECT ` + orderColumns + ` FROM orders ` + where + ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list orders",
			slog.Int64("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o := &domain.Order{}
		var status string
		if err := rows.Scan(
			&o.ID, &o.TenantID, &o.CustomerID, &o.OrderNumber, &status,
			&o.TotalAmount, &o.ShippingAddress, &o.Notes, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan order: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// UpdateStatus overwrites the order status within the given tenant. Status
// membership is validated upstream; any status may follow any other.
func (r *PostgresOrderRepository) UpdateStatus(ctx context.Context, tenantID, id int64, status domain.OrderStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = now() WHERE tenant_id = $2 AND id = $3`,
		string(status), tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateDetails updates shipping address and notes. Items, totals and
// price snapshots are immutable through this path.
func (r *PostgresOrderRepository) UpdateDetails(ctx context.Context, tenantID int64, order *domain.Order) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE orders SET shipping_address = $1, notes = $2, updated_at = now()
		 WHERE tenant_id = $3 AND id = $4
		 RETURNING updated_at`,
		order.ShippingAddress, order.Notes, tenantID, order.ID,
	).Scan(&order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// Delete removes an order and its items within the given tenant
func (r *PostgresOrderRepository) Delete(ctx context.Context, tenantID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
