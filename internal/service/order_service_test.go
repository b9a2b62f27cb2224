package service

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/repository"
	"github.com/yourorg/vendorhub/internal/security"
	"github.com/yourorg/vendorhub/internal/security/audit"
)

func setupOrderService(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *OrderService) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	orders := repository.NewPostgresOrderRepository(db, nil)
	svc := NewOrderService(db, orders, audit.NewLogger(nil), nil)
	return db, mock, svc
}

func buyer() security.TenantContext {
	return security.TenantContext{TenantID: 1, UserID: 12, Role: domain.RoleCustomer, Authenticated: true}
}

func expectProductLock(mock sqlmock.Sqlmock, tenantID, productID int64, name, price string, stock int) {
	rows := sqlmock.NewRows([]string{"name", "price", "stock_quantity"}).AddRow(name, price, stock)
	mock.ExpectQuery(`SELECT name, price, stock_quantity FROM products`).
		WithArgs(tenantID, productID).
		WillReturnRows(rows)
}

func expectStockDecrement(mock sqlmock.Sqlmock, qty int, tenantID, productID int64) {
	mock.ExpectExec(`UPDATE products SET stock_quantity = stock_quantity -`).
		WithArgs(qty, tenantID, productID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectOrderInsert(mock sqlmock.Sqlmock, orderID int64) {
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
		AddRow(orderID, now, now)
	mock.ExpectQuery(`INSERT INTO orders`).WillReturnRows(rows)
}

func TestCreateOrderSuccess(t *testing.T) {
	db, mock, svc := setupOrderService(t)
	defer db.Close()

	mock.ExpectBegin()
	// Locks happen in ascending product-id order even though the cart lists
	// product 5 first.
	expectProductLock(mock, 1, 3, "Mug", "4.50", 10)
	expectStockDecrement(mock, 1, 1, 3)
	expectProductLock(mock, 1, 5, "Teapot", "19.99", 8)
	expectStockDecrement(mock, 2, 1, 5)

	expectOrderInsert(mock, 100)

	mock.ExpectQuery(`INSERT INTO order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(200)))
	mock.ExpectQuery(`INSERT INTO order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(201)))
	mock.ExpectCommit()

	order, err := svc.Create(context.Background(), buyer(), CreateOrderRequest{
		ShippingAddress: "1 Main St",
		Items: []OrderLine{
			{ProductID: 5, Quantity: 2},
			{ProductID: 3, Quantity: 1},
		},
	})

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, int64(100), order.ID)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	assert.Len(t, order.OrderNumber, 12)
	assert.Equal(t, strings.ToUpper(order.OrderNumber), order.OrderNumber)

	// 1 * 4.50 + 2 * 19.99
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("44.48")),
		"total = %s", order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(3), order.Items[0].ProductID)
	assert.Equal(t, int64(5), order.Items[1].ProductID)
	assert.True(t, order.Items[1].Subtotal.Equal(decimal.RequireFromString("39.98")))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	db, mock, svc := setupOrderService(t)
	defer db.Close()

	mock.ExpectBegin()
	expectProductLock(mock, 1, 3, "Mug", "4.50", 2)
	mock.ExpectRollback()

	order, err := svc.Create(context.Background(), buyer(), CreateOrderRequest{
		ShippingAddress: "1 Main St",
		Items:           []OrderLine{{ProductID: 3, Quantity: 5}},
	})

	require.Error(t, err)
	assert.Nil(t, order)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "Mug")
	assert.Contains(t, err.Error(), "available 2")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderUnknownProductRollsBack(t *testing.T) {
	db, mock, svc := setupOrderService(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT name, price, stock_quantity FROM products`).
		WithArgs(int64(1), int64(77)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := svc.Create(context.Background(), buyer(), CreateOrderRequest{
		ShippingAddress: "1 Main St",
		Items:           []OrderLine{{ProductID: 77, Quantity: 1}},
	})

	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "product 77 not found")

	require.NoError(t, mock.ExpectationsWereMet())
}

// An order-number collision retries the whole transaction with a fresh
// number; the second attempt re-locks and re-validates stock.
func TestCreateOrderRetriesOnNumberCollision(t *testing.T) {
	db, mock, svc := setupOrderService(t)
	defer db.Close()

	// Attempt 1: unique violation on the order insert.
	mock.ExpectBegin()
	expectProductLock(mock, 1, 3, "Mug", "4.50", 10)
	expectStockDecrement(mock, 1, 1, 3)
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})
	mock.ExpectRollback()

	// Attempt 2: clean run.
	mock.ExpectBegin()
	expectProductLock(mock, 1, 3, "Mug", "4.50", 10)
	expectStockDecrement(mock, 1, 1, 3)
	expectOrderInsert(mock, 101)
	mock.ExpectQuery(`INSERT INTO order_items`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(300)))
	mock.ExpectCommit()

	order, err := svc.Create(context.Background(), buyer(), CreateOrderRequest{
		ShippingAddress: "1 Main St",
		Items:           []OrderLine{{ProductID: 3, Quantity: 1}},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(101), order.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

// When every attempt loses the order-number race the caller sees a
// conflict, not an internal error.
func TestCreateOrderCollisionExhaustionIsConflict(t *testing.T) {
	db, mock, svc := setupOrderService(t)
	defer db.Close()

	for i := 0; i < 3; i++ {
		mock.ExpectBegin()
		expectProductLock(mock, 1, 3, "Mug", "4.50", 10)
		expectStockDecrement(mock, 1, 1, 3)
		mock.ExpectQuery(`INSERT INTO orders`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "orders_order_number_key"})
		mock.ExpectRollback()
	}

	order, err := svc.Create(context.Background(), buyer(), CreateOrderRequest{
		ShippingAddress: "1 Main St",
		Items:           []OrderLine{{ProductID: 3, Quantity: 1}},
	})

	require.Error(t, err)
	assert.Nil(t, order)
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderValidation(t *testing.T) {
	db, _, svc := setupOrderService(t)
	defer db.Close()
	ctx := context.Background()

	_, err := svc.Create(ctx, buyer(), CreateOrderRequest{ShippingAddress: "1 Main St"})
	assert.True(t, domain.IsValidation(err), "empty cart: %v", err)

	_, err = svc.Create(ctx, buyer(), CreateOrderRequest{
		Items: []OrderLine{{ProductID: 1, Quantity: 1}},
	})
	assert.True(t, domain.IsValidation(err), "missing address: %v", err)

	_, err = svc.Create(ctx, buyer(), CreateOrderRequest{
		ShippingAddress: "1 Main St",
		Items:           []OrderLine{{ProductID: 1, Quantity: 0}},
	})
	assert.True(t, domain.IsValidation(err), "zero quantity: %v", err)
}

func TestCreateOrderPolicy(t *testing.T) {
	db, _, svc := setupOrderService(t)
	defer db.Close()
	ctx := context.Background()

	req := CreateOrderRequest{
		ShippingAddress: "1 Main St",
		Items:           []OrderLine{{ProductID: 1, Quantity: 1}},
	}

	_, err := svc.Create(ctx, security.Anonymous(), req)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	// Staff may not place orders.
	staffActor := security.TenantContext{TenantID: 1, UserID: 2, Role: domain.RoleStaff, Authenticated: true}
	_, err = svc.Create(ctx, staffActor, req)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

type recordingHandler struct {
	mu      sync.Mutex
	records []map[string]string
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := map[string]string{"msg": r.Message}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})
	h.mu.Lock()
	h.records = append(h.records, attrs)
	h.mu.Unlock()
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

// A role denial leaves an access_denied audit record.
func TestCreateOrderDenialIsAudited(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := &recordingHandler{}
	orders := repository.NewPostgresOrderRepository(db, nil)
	svc := NewOrderService(db, orders, audit.NewLogger(slog.New(rec)), nil)

	staffActor := security.TenantContext{TenantID: 1, UserID: 2, Role: domain.RoleStaff, Authenticated: true}
	_, err = svc.Create(context.Background(), staffActor, CreateOrderRequest{
		ShippingAddress: "1 Main St",
		Items:           []OrderLine{{ProductID: 1, Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrForbidden)

	var denied map[string]string
	for _, r := range rec.records {
		if r["msg"] == "audit" && r["action"] == "access_denied" {
			denied = r
			break
		}
	}
	require.NotNil(t, denied, "expected an access_denied audit record")
	assert.Equal(t, "1", denied["tenant_id"])
	assert.Equal(t, "2", denied["user_id"])
	assert.Contains(t, denied["details"], "create")
}

func TestUpdateStatusValidatesEnum(t *testing.T) {
	db, mock, svc := setupOrderService(t)
	defer db.Close()

	staffActor := security.TenantContext{TenantID: 1, UserID: 2, Role: domain.RoleStaff, Authenticated: true}

	orderCols := []string{
		"id", "tenant_id", "customer_id", "order_number", "status", "total_amount",
		"shipping_address", "notes", "created_at", "updated_at",
	}
	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM orders`).
		WithArgs(int64(1), int64(100)).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(
			int64(100), int64(1), int64(12), "ORD-AAAA1111", "PENDING", "44.48",
			"1 Main St", "", now, now,
		))
	mock.ExpectQuery(`FROM order_items`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_id", "product_id", "product_name", "product_sku",
			"quantity", "price_at_order", "subtotal",
		}))

	_, err := svc.UpdateStatus(context.Background(), staffActor, 100, "ON_FIRE")
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "ON_FIRE")

	require.NoError(t, mock.ExpectationsWereMet())
}
