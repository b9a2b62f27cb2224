//go:build integration

package service

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/repository"
	"github.com/yourorg/vendorhub/internal/security"
	"github.com/yourorg/vendorhub/internal/security/audit"
	"github.com/yourorg/vendorhub/pkg/database"
)

// These tests run the order transaction against a real Postgres:
//
//	TEST_DB_HOST=localhost go test -tags integration ./internal/service
//
// TEST_DB_PORT, TEST_DB_USER, TEST_DB_PASSWORD, TEST_DB_NAME and
// TEST_DB_SSLMODE override the connection defaults.

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}

	port := 5432
	if v := os.Getenv("TEST_DB_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		require.NoError(t, err)
		port = p
	}
	envOr := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	ctx := context.Background()
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     host,
		Port:     port,
		User:     envOr("TEST_DB_USER", "vendorhub"),
		Password: envOr("TEST_DB_PASSWORD", "dev"),
		Database: envOr("TEST_DB_NAME", "vendorhub_test"),
		SSLMode:  envOr("TEST_DB_SSLMODE", "disable"),
	}, nil)
	require.NoError(t, err)
	require.NoError(t, pool.InitSchema(ctx))

	t.Cleanup(func() { pool.Close() })
	return pool.GetDB()
}

type fixture struct {
	tenantID  int64
	productID int64
	customers []security.TenantContext
}

// seedStore provisions a tenant with two customers and one product. Rows
// are removed again when the test finishes.
func seedStore(t *testing.T, db *sql.DB, price string, stock int) fixture {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	tenants := repository.NewPostgresTenantRepository(db, nil)
	tenant := &domain.Tenant{
		StoreName:    "Acme " + suffix,
		Subdomain:    "acme-" + suffix,
		ContactEmail: "owner@acme.test",
		IsActive:     true,
	}
	require.NoError(t, tenants.Create(ctx, tenant))

	users := repository.NewPostgresUserRepository(db, nil)
	var customers []security.TenantContext
	for i := 0; i < 2; i++ {
		u := &domain.User{
			Username:     fmt.Sprintf("buyer%d-%s", i, suffix),
			Email:        fmt.Sprintf("buyer%d@acme.test", i),
			PasswordHash: "x",
			TenantID:     &tenant.ID,
			Role:         domain.RoleCustomer,
			IsActive:     true,
		}
		require.NoError(t, users.Create(ctx, u))
		customers = append(customers, security.TenantContext{
			TenantID: tenant.ID, UserID: u.ID, Role: domain.RoleCustomer, Authenticated: true,
		})
	}

	products := repository.NewPostgresProductRepository(db, nil)
	createdBy := customers[0].UserID
	product := &domain.Product{
		TenantID:      tenant.ID,
		Name:          "Teapot",
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		SKU:           "TP-" + suffix,
		IsActive:      true,
		CreatedBy:     &createdBy,
	}
	require.NoError(t, products.Create(ctx, product))

	t.Cleanup(func() {
		db.Exec(`DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE tenant_id = $1)`, tenant.ID)
		db.Exec(`DELETE FROM orders WHERE tenant_id = $1`, tenant.ID)
		db.Exec(`DELETE FROM products WHERE tenant_id = $1`, tenant.ID)
		db.Exec(`DELETE FROM users WHERE tenant_id = $1`, tenant.ID)
		db.Exec(`DELETE FROM tenants WHERE id = $1`, tenant.ID)
	})

	return fixture{tenantID: tenant.ID, productID: product.ID, customers: customers}
}

func newDBOrderService(db *sql.DB) *OrderService {
	return NewOrderService(db, repository.NewPostgresOrderRepository(db, nil), audit.NewLogger(nil), nil)
}

// Two buyers racing for 5 units with carts of 3 and 4: the row lock
// serializes the stock check, so exactly one order succeeds and stock
// never goes negative.
func TestOrderCreateConcurrentStockContention(t *testing.T) {
	db := openTestDB(t)
	fx := seedStore(t, db, "19.99", 5)
	svc := newDBOrderService(db)

	quantities := []int{3, 4}
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_, errs[i] = svc.Create(ctx, fx.customers[i], CreateOrderRequest{
				ShippingAddress: "1 Main St",
				Items:           []OrderLine{{ProductID: fx.productID, Quantity: quantities[i]}},
			})
		}(i)
	}
	wg.Wait()

	var failed, wonQty int
	for i, err := range errs {
		if err != nil {
			failed++
			assert.True(t, domain.IsValidation(err), "loser should see insufficient stock: %v", err)
			assert.Contains(t, err.Error(), "insufficient stock")
		} else {
			wonQty += quantities[i]
		}
	}
	assert.Equal(t, 1, failed, "exactly one of the racing orders must fail")

	var stock int
	require.NoError(t, db.QueryRow(
		`SELECT stock_quantity FROM products WHERE id = $1`, fx.productID,
	).Scan(&stock))
	assert.GreaterOrEqual(t, stock, 0, "stock must never go negative")
	assert.Equal(t, 5-wonQty, stock)
}

// Repricing a product after an order is placed must not rewrite the
// order's snapshot: price_at_order and the total are frozen at purchase.
func TestOrderPriceSnapshotSurvivesReprice(t *testing.T) {
	db := openTestDB(t)
	fx := seedStore(t, db, "19.99", 10)
	svc := newDBOrderService(db)
	ctx := context.Background()

	order, err := svc.Create(ctx, fx.customers[0], CreateOrderRequest{
		ShippingAddress: "1 Main St",
		Items:           []OrderLine{{ProductID: fx.productID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].PriceAtOrder.Equal(decimal.RequireFromString("19.99")))

	products := repository.NewPostgresProductRepository(db, nil)
	product, err := products.GetByID(ctx, fx.tenantID, fx.productID)
	require.NoError(t, err)
	product.Price = decimal.RequireFromString("29.99")
	require.NoError(t, products.Update(ctx, fx.tenantID, product))

	reread, err := svc.Get(ctx, fx.customers[0], order.ID)
	require.NoError(t, err)
	require.Len(t, reread.Items, 1)
	assert.True(t, reread.Items[0].PriceAtOrder.Equal(decimal.RequireFromString("19.99")),
		"price_at_order changed to %s after reprice", reread.Items[0].PriceAtOrder)
	assert.True(t, reread.TotalAmount.Equal(decimal.RequireFromString("39.98")))
}
