package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/observability/metrics"
	"github.com/yourorg/vendorhub/internal/reliability/retry"
	"github.com/yourorg/vendorhub/internal/repository"
	"github.com/yourorg/vendorhub/internal/security"
	"github.com/yourorg/vendorhub/internal/security/audit"
)

// OrderService is the order transaction manager plus the policy-gated read
// and status paths. Creation runs as one unit of work: stock validation,
// price snapshots, stock decrement, item and order persistence all commit
// together or not at all.
type OrderService struct {
	db       *sql.DB
	orders   domain.OrderRepository
	audit    *audit.Logger
	logger   *slog.Logger
	retryCfg *retry.Config
}

// NewOrderService creates a new order service
func NewOrderService(db *sql.DB, orders domain.OrderRepository, auditLog *audit.Logger, logger *slog.Logger) *OrderService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderService{
		db:     db,
		orders: orders,
		audit:  auditLog,
		logger: logger,
		retryCfg: &retry.Config{
			MaxAttempts:       3,
			InitialBackoff:    10 * time.Millisecond,
			MaxBackoff:        100 * time.Millisecond,
			BackoffMultiplier: 2.0,
			RetryIf:           repository.IsUniqueViolation,
		},
	}
}

// OrderLine is one cart entry in a creation request.
type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderRequest is a cart-like order creation payload.
type CreateOrderRequest struct {
	ShippingAddress string      `json:"shipping_address"`
	Notes           string      `json:"notes"`
	Items           []OrderLine `json:"items"`
}

// Create turns a cart into a persisted order. The unit of work locks each
// product row (ascending product id, so concurrent orders over the same
// products cannot deadlock), re-checks stock under the lock, snapshots the
// price and decrements stock; any failure rolls the whole thing back. An
// order-number collision retries the entire transaction under a small
// budget.
func (s *OrderService) Create(ctx context.Context, actor security.TenantContext, req CreateOrderRequest) (*domain.Order, error) {
	if err := s.decide(ctx, actor, security.ActionCreate, nil); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ShippingAddress) == "" {
		return nil, domain.Validationf("shipping_address is required")
	}
	if len(req.Items) == 0 {
		return nil, domain.Validationf("order must contain at least one item")
	}
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return nil, domain.Validationf("quantity for product %d must be at least 1", line.ProductID)
		}
	}

	start := time.Now()
	order, err := retry.Do(ctx, s.retryCfg, s.logger, "create_order", func(ctx context.Context) (*domain.Order, error) {
		return s.createOnce(ctx, actor, req)
	})
	if err != nil {
		metrics.ObserveOrderCreate("error", time.Since(start))
		// Every retry lost the order-number race; report it as a conflict
		// rather than a server error.
		if repository.IsUniqueViolation(err) {
			return nil, fmt.Errorf("order number allocation failed: %w", domain.ErrConflict)
		}
		return nil, err
	}

	metrics.ObserveOrderCreate("success", time.Since(start))
	s.audit.LogOrderCreated(ctx, actor.TenantID, actor.UserID, order.ID, order.OrderNumber)
	s.logger.Info("order created",
		slog.Int64("tenant_id", actor.TenantID),
		slog.Int64("order_id", order.ID),
		slog.String("order_number", order.OrderNumber),
		slog.String("total", order.TotalAmount.String()),
	)
	return order, nil
}

func (s *OrderService) createOnce(ctx context.Context, actor security.TenantContext, req CreateOrderRequest) (*domain.Order, error) {
	orderNumber := newOrderNumber()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin order transaction: %w", err)
	}
	defer tx.Rollback()

	// Lock rows in ascending product-id order regardless of cart order.
	lines := make([]OrderLine, len(req.Items))
	copy(lines, req.Items)
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

	order := &domain.Order{
		TenantID:        actor.TenantID,
		CustomerID:      actor.UserID,
		OrderNumber:     orderNumber,
		Status:          domain.StatusPending,
		ShippingAddress: req.ShippingAddress,
		Notes:           req.Notes,
	}

	total := decimal.Zero
	for _, line := range lines {
		var (
			name  string
			price decimal.Decimal
			stock int
		)
		err := tx.QueryRowContext(ctx,
			`SELECT name, price, stock_quantity FROM products
			 WHERE tenant_id = $1 AND id = $2 AND is_active = TRUE
			 FOR UPDATE`,
			actor.TenantID, line.ProductID,
		).Scan(&name, &price, &stock)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, domain.Validationf("product %d not found", line.ProductID)
			}
			return nil, fmt.Errorf("failed to lock product %d: %w", line.ProductID, err)
		}

		if line.Quantity > stock {
			metrics.IncStockRejection()
			return nil, domain.Validationf(
				"insufficient stock for %s: requested %d, available %d",
				name, line.Quantity, stock,
			)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = now()
			 WHERE tenant_id = $2 AND id = $3`,
			line.Quantity, actor.TenantID, line.ProductID,
		); err != nil {
			return nil, fmt.Errorf("failed to decrement stock for product %d: %w", line.ProductID, err)
		}

		subtotal := price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total = total.Add(subtotal)
		order.Items = append(order.Items, &domain.OrderItem{
			ProductID:    line.ProductID,
			ProductName:  name,
			Quantity:     line.Quantity,
			PriceAtOrder: price,
			Subtotal:     subtotal,
		})
	}
	order.TotalAmount = total

	err = tx.QueryRowContext(ctx,
		`INSERT INTO orders (tenant_id, customer_id, order_number, status, total_amount, shipping_address, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		order.TenantID, order.CustomerID, order.OrderNumber, string(order.Status),
		order.TotalAmount, order.ShippingAddress, order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			metrics.IncOrderNumberConflict()
		}
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Items {
		item.OrderID = order.ID
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, price_at_order, subtotal)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			item.OrderID, item.ProductID, item.Quantity, item.PriceAtOrder, item.Subtotal,
		).Scan(&item.ID); err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

// newOrderNumber builds an opaque, human-distinguishable order number.
// 8 hex chars of entropy keep the collision probability negligible; the
// unique constraint plus the creation retry covers the remainder.
func newOrderNumber() string {
	id := uuid.New()
	hexed := strings.ReplaceAll(id.String(), "-", "")
	return "ORD-" + strings.ToUpper(hexed[:8])
}

// Get returns one order. Customers only ever see their own.
func (s *OrderService) Get(ctx context.Context, actor security.TenantContext, id int64) (*domain.Order, error) {
	if err := s.decide(ctx, actor, security.ActionRead, nil); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.decide(ctx, actor, security.ActionRead, orderRef(order)); err != nil {
		return nil, err
	}
	return order, nil
}

// List returns the tenant's orders. Customers are always narrowed to their
// own orders no matter what filter they send.
func (s *OrderService) List(ctx context.Context, actor security.TenantContext, filter domain.OrderFilter) ([]*domain.Order, int, error) {
	if err := s.decide(ctx, actor, security.ActionList, nil); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !domain.ValidOrderStatus(filter.Status) {
		return nil, 0, domain.Validationf("invalid status value %q", filter.Status)
	}
	if actor.Role == domain.RoleCustomer {
		filter.CustomerID = actor.UserID
	}
	return s.orders.List(ctx, actor.TenantID, filter)
}

// MyOrders lists the calling customer's own orders.
func (s *OrderService) MyOrders(ctx context.Context, actor security.TenantContext, filter domain.OrderFilter) ([]*domain.Order, int, error) {
	if !actor.Authenticated {
		return nil, 0, domain.ErrUnauthenticated
	}
	if actor.Role != domain.RoleCustomer {
		return nil, 0, fmt.Errorf("my_orders is customer-only: %w", domain.ErrForbidden)
	}
	filter.CustomerID = actor.UserID
	return s.List(ctx, actor, filter)
}

// UpdateStatus overwrites an order's status after validating enum
// membership. There is intentionally no transition ordering.
func (s *OrderService) UpdateStatus(ctx context.Context, actor security.TenantContext, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if err := s.decide(ctx, actor, security.ActionUpdateStatus, nil); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.decide(ctx, actor, security.ActionUpdateStatus, orderRef(order)); err != nil {
		return nil, err
	}
	if !domain.ValidOrderStatus(status) {
		return nil, domain.Validationf("invalid status value %q", status)
	}

	if err := s.orders.UpdateStatus(ctx, actor.TenantID, id, status); err != nil {
		return nil, err
	}

	s.audit.LogStatusChange(ctx, actor.TenantID, actor.UserID, id, string(order.Status), string(status))
	order.Status = status
	return order, nil
}

// UpdateDetails updates mutable order fields (shipping address, notes).
func (s *OrderService) UpdateDetails(ctx context.Context, actor security.TenantContext, id int64, shippingAddress, notes string) (*domain.Order, error) {
	if err := s.decide(ctx, actor, security.ActionUpdate, nil); err != nil {
		return nil, err
	}
	order, err := s.orders.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.decide(ctx, actor, security.ActionUpdate, orderRef(order)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(shippingAddress) == "" {
		return nil, domain.Validationf("shipping_address is required")
	}

	order.ShippingAddress = shippingAddress
	order.Notes = notes
	if err := s.orders.UpdateDetails(ctx, actor.TenantID, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Delete removes an order.
func (s *OrderService) Delete(ctx context.Context, actor security.TenantContext, id int64) error {
	if err := s.decide(ctx, actor, security.ActionDelete, nil); err != nil {
		return err
	}
	order, err := s.orders.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	if err := s.decide(ctx, actor, security.ActionDelete, orderRef(order)); err != nil {
		return err
	}
	return s.orders.Delete(ctx, actor.TenantID, id)
}

// decide runs the policy check and audits role denials. Tenant mismatches
// surface as NotFound and are not audited as denials.
func (s *OrderService) decide(ctx context.Context, actor security.TenantContext, action security.Action, obj *security.ObjectRef) error {
	err := security.Decide(actor, action, security.ResourceOrder, obj)
	if errors.Is(err, domain.ErrForbidden) {
		s.audit.LogDenied(ctx, actor.TenantID, actor.UserID,
			fmt.Sprintf("order %s denied for role %s", action, actor.Role))
	}
	return err
}

func orderRef(order *domain.Order) *security.ObjectRef {
	return &security.ObjectRef{TenantID: order.TenantID, OwnerID: order.CustomerID, Active: true}
}
