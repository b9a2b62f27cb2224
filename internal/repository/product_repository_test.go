package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/vendorhub/internal/domain"
)

func setupProductRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresProductRepository) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return db, mock, NewPostgresProductRepository(db, nil)
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "name", "description", "price", "stock_quantity",
		"sku", "is_active", "created_by", "created_at", "updated_at",
	})
}

func TestProductGetByIDScopesToTenant(t *testing.T) {
	db, mock, repo := setupProductRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT .+ FROM products WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs(int64(1), int64(5)).
		WillReturnRows(productRows().AddRow(
			int64(5), int64(1), "Teapot", "A teapot", "19.99", 8,
			"TP-001", true, int64(10), now, now,
		))

	p, err := repo.GetByID(context.Background(), 1, 5)
	require.NoError(t, err)
	assert.Equal(t, "TP-001", p.SKU)
	assert.Equal(t, int64(1), p.TenantID)
	assert.True(t, p.Price.String() == "19.99")

	require.NoError(t, mock.ExpectationsWereMet())
}

// The same product id queried under another tenant behaves as if the row
// did not exist.
func TestProductGetByIDForeignTenantIsNotFound(t *testing.T) {
	db, mock, repo := setupProductRepo(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .+ FROM products WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs(int64(2), int64(5)).
		WillReturnError(sql.ErrNoRows)

	p, err := repo.GetByID(context.Background(), 2, 5)
	assert.Nil(t, p)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductCreateDuplicateSKU(t *testing.T) {
	db, mock, repo := setupProductRepo(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO products`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "products_tenant_id_sku_key"})

	createdBy := int64(10)
	err := repo.Create(context.Background(), &domain.Product{
		TenantID:  1,
		Name:      "Teapot",
		SKU:       "TP-001",
		CreatedBy: &createdBy,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductListFilters(t *testing.T) {
	db, mock, repo := setupProductRepo(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM products WHERE tenant_id = \$1 AND is_active = TRUE AND \(name ILIKE \$2`).
		WithArgs(int64(1), "%tea%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(`SELECT .+ FROM products WHERE tenant_id = \$1 AND is_active = TRUE AND \(name ILIKE \$2`).
		WithArgs(int64(1), "%tea%").
		WillReturnRows(productRows().AddRow(
			int64(5), int64(1), "Teapot", "A teapot", "19.99", 8,
			"TP-001", true, int64(10), now, now,
		))

	products, total, err := repo.List(context.Background(), 1, domain.ProductFilter{
		Search:     "tea",
		ActiveOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, "Teapot", products[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductDeleteNotFound(t *testing.T) {
	db, mock, repo := setupProductRepo(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM products WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs(int64(1), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 1, 99)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

// A product still referenced by order items cannot be deleted; the
// foreign-key violation surfaces as a conflict, not a server error.
func TestProductDeleteReferencedByOrderItems(t *testing.T) {
	db, mock, repo := setupProductRepo(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM products WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs(int64(1), int64(5)).
		WillReturnError(&pq.Error{Code: "23503", Constraint: "order_items_product_id_fkey"})

	err := repo.Delete(context.Background(), 1, 5)
	assert.ErrorIs(t, err, domain.ErrConflict)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductListLowStock(t *testing.T) {
	db, mock, repo := setupProductRepo(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`WHERE is_active = TRUE AND stock_quantity <= \$1`).
		WithArgs(3).
		WillReturnRows(productRows().
			AddRow(int64(5), int64(1), "Teapot", "", "19.99", 0, "TP-001", true, int64(10), now, now).
			AddRow(int64(9), int64(2), "Mug", "", "4.50", 2, "MG-001", true, nil, now, now))

	products, err := repo.ListLowStock(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(2), products[1].TenantID)
	assert.Nil(t, products[1].CreatedBy)

	require.NoError(t, mock.ExpectationsWereMet())
}
