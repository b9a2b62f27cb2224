package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/security"
	"github.com/yourorg/vendorhub/internal/security/audit"
)

// TenantService exposes the store-owner view of their own tenant plus the
// platform-admin lifecycle operations. Admin operations arrive through the
// admin surface (static token, no tenant context) and are not policy-gated.
type TenantService struct {
	tenants domain.TenantRepository
	audit   *audit.Logger
	logger  *slog.Logger
}

// NewTenantService creates a new tenant service
func NewTenantService(tenants domain.TenantRepository, auditLog *audit.Logger, logger *slog.Logger) *TenantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantService{tenants: tenants, audit: auditLog, logger: logger}
}

// GetOwn returns the actor's own tenant. Store owners only.
func (s *TenantService) GetOwn(ctx context.Context, actor security.TenantContext) (*domain.Tenant, error) {
	if err := security.Decide(actor, security.ActionRead, security.ResourceTenant, nil); err != nil {
		if errors.Is(err, domain.ErrForbidden) {
			s.audit.LogDenied(ctx, actor.TenantID, actor.UserID,
				fmt.Sprintf("tenant read denied for role %s", actor.Role))
		}
		return nil, err
	}
	return s.tenants.GetByID(ctx, actor.TenantID)
}

// TenantInput carries the writable tenant fields for the admin surface.
type TenantInput struct {
	StoreName    string `json:"store_name"`
	Subdomain    string `json:"subdomain"`
	Domain       string `json:"domain"`
	ContactEmail string `json:"contact_email"`
	ContactPhone string `json:"contact_phone"`
}

// AdminCreate provisions a new tenant.
func (s *TenantService) AdminCreate(ctx context.Context, in TenantInput) (*domain.Tenant, error) {
	if strings.TrimSpace(in.StoreName) == "" {
		return nil, domain.Validationf("store_name is required")
	}
	if strings.TrimSpace(in.Subdomain) == "" {
		return nil, domain.Validationf("subdomain is required")
	}
	if strings.TrimSpace(in.ContactEmail) == "" {
		return nil, domain.Validationf("contact_email is required")
	}

	tenant := &domain.Tenant{
		StoreName:    in.StoreName,
		Subdomain:    strings.ToLower(in.Subdomain),
		Domain:       in.Domain,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		IsActive:     true,
	}
	if err := s.tenants.Create(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("tenant provisioned",
		slog.Int64("tenant_id", tenant.ID),
		slog.String("store_name", tenant.StoreName),
		slog.String("subdomain", tenant.Subdomain),
	)
	return tenant, nil
}

// AdminList returns all tenants, active or not.
func (s *TenantService) AdminList(ctx context.Context) ([]*domain.Tenant, error) {
	return s.tenants.List(ctx)
}

// AdminGet returns one tenant by id.
func (s *TenantService) AdminGet(ctx context.Context, id int64) (*domain.Tenant, error) {
	return s.tenants.GetByID(ctx, id)
}

// AdminDeactivate soft-disables a tenant. Its data stays in place and its
// users can no longer authenticate.
func (s *TenantService) AdminDeactivate(ctx context.Context, id int64) error {
	if err := s.tenants.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Warn("tenant deactivated", slog.Int64("tenant_id", id))
	return nil
}

// AdminPurge hard-deletes a tenant and everything under it. The caller must
// pass the tenant's store name back as confirmation.
func (s *TenantService) AdminPurge(ctx context.Context, id int64, confirmName string) error {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if confirmName != tenant.StoreName {
		return domain.Validationf("confirmation %q does not match store name %q", confirmName, tenant.StoreName)
	}

	if err := s.tenants.Purge(ctx, id); err != nil {
		return fmt.Errorf("failed to purge tenant %d: %w", id, err)
	}
	s.audit.LogTenantPurge(ctx, id, "cascade delete of tenant "+tenant.StoreName)
	return nil
}
