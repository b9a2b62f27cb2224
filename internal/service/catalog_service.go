package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/security"
	"github.com/yourorg/vendorhub/internal/security/audit"
)

// CatalogService handles product CRUD within a tenant. Every call is gated
// by the authorization policy; customers only ever see active products.
type CatalogService struct {
	products domain.ProductRepository
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(products domain.ProductRepository, auditLog *audit.Logger, logger *slog.Logger) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogService{products: products, audit: auditLog, logger: logger}
}

// ProductInput carries the writable product fields.
type ProductInput struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	SKU           string          `json:"sku"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.Validationf("name is required")
	}
	if strings.TrimSpace(in.SKU) == "" {
		return domain.Validationf("sku is required")
	}
	if !in.Price.IsPositive() {
		return domain.Validationf("price must be greater than zero")
	}
	if in.StockQuantity < 0 {
		return domain.Validationf("stock_quantity cannot be negative")
	}
	return nil
}

// Create adds a product to the actor's tenant catalog.
func (s *CatalogService) Create(ctx context.Context, actor security.TenantContext, in ProductInput) (*domain.Product, error) {
	if err := s.decide(ctx, actor, security.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	createdBy := actor.UserID
	product := &domain.Product{
		TenantID:      actor.TenantID,
		Name:          in.Name,
		Description:   in.Description,
		SKU:           in.SKU,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		IsActive:      active,
		CreatedBy:     &createdBy,
	}
	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.Validationf("sku %q already exists in this store", in.SKU)
		}
		return nil, err
	}

	s.logger.Info("product created",
		slog.Int64("tenant_id", actor.TenantID),
		slog.Int64("product_id", product.ID),
		slog.String("sku", product.SKU),
	)
	return product, nil
}

// Get returns one product. Inactive products are invisible to customers.
func (s *CatalogService) Get(ctx context.Context, actor security.TenantContext, id int64) (*domain.Product, error) {
	if err := s.decide(ctx, actor, security.ActionRead, nil); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.decide(ctx, actor, security.ActionRead, productRef(product)); err != nil {
		return nil, err
	}
	return product, nil
}

// List returns the tenant's products. Customers are forced onto the
// active-only view regardless of the filter they pass.
func (s *CatalogService) List(ctx context.Context, actor security.TenantContext, filter domain.ProductFilter) ([]*domain.Product, int, error) {
	if err := s.decide(ctx, actor, security.ActionList, nil); err != nil {
		return nil, 0, err
	}
	if actor.Role == domain.RoleCustomer {
		filter.ActiveOnly = true
	}
	return s.products.List(ctx, actor.TenantID, filter)
}

// Update replaces a product's writable fields. Stock is deliberately not
// updatable here; it only moves through the order transaction.
func (s *CatalogService) Update(ctx context.Context, actor security.TenantContext, id int64, in ProductInput) (*domain.Product, error) {
	if err := s.decide(ctx, actor, security.ActionUpdate, nil); err != nil {
		return nil, err
	}
	product, err := s.products.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return nil, err
	}
	if err := s.decide(ctx, actor, security.ActionUpdate, productRef(product)); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	product.Name = in.Name
	product.Description = in.Description
	product.SKU = in.SKU
	product.Price = in.Price
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	if err := s.products.Update(ctx, actor.TenantID, product); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.Validationf("sku %q already exists in this store", in.SKU)
		}
		return nil, err
	}
	return product, nil
}

// Delete removes a product from the catalog.
func (s *CatalogService) Delete(ctx context.Context, actor security.TenantContext, id int64) error {
	if err := s.decide(ctx, actor, security.ActionDelete, nil); err != nil {
		return err
	}
	product, err := s.products.GetByID(ctx, actor.TenantID, id)
	if err != nil {
		return err
	}
	if err := s.decide(ctx, actor, security.ActionDelete, productRef(product)); err != nil {
		return err
	}
	return s.products.Delete(ctx, actor.TenantID, id)
}

func (s *CatalogService) decide(ctx context.Context, actor security.TenantContext, action security.Action, obj *security.ObjectRef) error {
	err := security.Decide(actor, action, security.ResourceProduct, obj)
	if errors.Is(err, domain.ErrForbidden) {
		s.audit.LogDenied(ctx, actor.TenantID, actor.UserID,
			fmt.Sprintf("product %s denied for role %s", action, actor.Role))
	}
	return err
}

func productRef(p *domain.Product) *security.ObjectRef {
	return &security.ObjectRef{TenantID: p.TenantID, Active: p.IsActive}
}
