package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/vendorhub/internal/domain"
)

// PostgresProductRepository implements domain.ProductRepository using
// PostgreSQL. Every statement filters on tenant_id; the scoping holds even
// if a policy bug lets a request through.
type PostgresProductRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProductRepository creates a new product repository
func NewPostgresProductRepository(db *sql.DB, logger *slog.Logger) *PostgresProductRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProductRepository{db: db, logger: logger}
}

const productColumns = `id, tenant_id, name, description, price, stock_quantity, sku, is_active, created_by, created_at, updated_at`

// Create creates a new product in its tenant
func (r *PostgresProductRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (tenant_id, name, description, price, stock_quantity, sku, is_active, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		product.TenantID,
		product.Name,
		product.Description,
		product.Price,
		product.StockQuantity,
		product.SKU,
		product.IsActive,
		product.CreatedBy,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to create product",
			slog.Int64("tenant_id", product.TenantID),
			slog.String("sku", product.SKU),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create product: %w", translateErr(err))
	}
	return nil
}

// GetByID retrieves a product by id within the given tenant. A product that
// exists in another tenant reports ErrNotFound.
func (r *PostgresProductRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE tenant_id = $1 AND id = $2`
	return scanProduct(r.db.QueryRowContext(ctx, query, tenantID, id))
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	p := &domain.Product{}
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
		&p.SKU, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// List returns the tenant's products plus a total count. Search matches
// name, description and SKU case-insensitively.
func (r *PostgresProductRepository) List(ctx context.Context, tenantID int64, filter domain.ProductFilter) ([]*domain.Product, int, error) {
	where := `WHERE tenant_id = $1`
	args := []interface{}{tenantID}

	if filter.ActiveOnly {
		where += ` AND is_active = TRUE`
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR description ILIKE $%d OR sku ILIKE $%d)`, len(args), len(args), len(args))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products ` + where + ` ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list products",
			slog.Int64("tenant_id", tenantID),
			slog.String("error", err.Error()),
		)
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
			&p.SKU, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// Update updates a product within the given tenant. The tenant binding of a
// product never changes. Stock is deliberately absent here: the order
// transaction is the only stock mutator.
func (r *PostgresProductRepository) Update(ctx context.Context, tenantID int64, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $1, description = $2, price = $3, sku = $4, is_active = $5, updated_at = now()
		WHERE tenant_id = $6 AND id = $7
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		product.Name,
		product.Description,
		product.Price,
		product.SKU,
		product.IsActive,
		tenantID,
		product.ID,
	).Scan(&product.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update product: %w", translateErr(err))
	}
	return nil
}

// Delete removes a product within the given tenant. A product still
// referenced by order items reports ErrConflict.
func (r *PostgresProductRepository) Delete(ctx context.Context, tenantID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", translateErr(err))
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

// ListLowStock returns active products at or below the threshold across all
// tenants. Operator-scope only; never called from a request path.
func (r *PostgresProductRepository) ListLowStock(ctx context.Context, threshold int) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE is_active = TRUE AND stock_quantity <= $1
		ORDER BY stock_quantity ASC
	`
	rows, err := r.db.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		if err := rows.Scan(
			&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Price, &p.StockQuantity,
			&p.SKU, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}
