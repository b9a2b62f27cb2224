package security

import (
	"errors"
	"testing"

	"github.com/yourorg/vendorhub/internal/domain"
)

func owner() TenantContext {
	return TenantContext{TenantID: 1, UserID: 10, Role: domain.RoleStoreOwner, Authenticated: true}
}

func staff() TenantContext {
	return TenantContext{TenantID: 1, UserID: 11, Role: domain.RoleStaff, Authenticated: true}
}

func customer() TenantContext {
	return TenantContext{TenantID: 1, UserID: 12, Role: domain.RoleCustomer, Authenticated: true}
}

func TestDecideRoleTable(t *testing.T) {
	tests := []struct {
		name     string
		actor    TenantContext
		action   Action
		resource Resource
		want     error
	}{
		{"owner creates product", owner(), ActionCreate, ResourceProduct, nil},
		{"owner deletes order", owner(), ActionDelete, ResourceOrder, nil},
		{"owner reads tenant", owner(), ActionRead, ResourceTenant, nil},
		{"staff updates product", staff(), ActionUpdate, ResourceProduct, nil},
		{"staff cannot create product", staff(), ActionCreate, ResourceProduct, domain.ErrForbidden},
		{"staff cannot delete product", staff(), ActionDelete, ResourceProduct, domain.ErrForbidden},
		{"staff updates order status", staff(), ActionUpdateStatus, ResourceOrder, nil},
		{"staff cannot read tenant", staff(), ActionRead, ResourceTenant, domain.ErrForbidden},
		{"customer lists products", customer(), ActionList, ResourceProduct, nil},
		{"customer creates order", customer(), ActionCreate, ResourceOrder, nil},
		{"customer cannot update product", customer(), ActionUpdate, ResourceProduct, domain.ErrForbidden},
		{"customer cannot update order status", customer(), ActionUpdateStatus, ResourceOrder, domain.ErrForbidden},
		{"customer cannot delete order", customer(), ActionDelete, ResourceOrder, domain.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decide(tt.actor, tt.action, tt.resource, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decide() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecideUnauthenticated(t *testing.T) {
	if err := Decide(Anonymous(), ActionList, ResourceProduct, nil); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestDecideNoTenant(t *testing.T) {
	actor := TenantContext{UserID: 5, Role: domain.RoleStoreOwner, Authenticated: true}
	if err := Decide(actor, ActionList, ResourceProduct, nil); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// Cross-tenant access must read as not-found, and must do so before the role
// table gets a say: even an action the role could never perform reports the
// same error for a foreign object.
func TestDecideCrossTenantIsNotFound(t *testing.T) {
	foreign := &ObjectRef{TenantID: 2, Active: true}

	if err := Decide(owner(), ActionRead, ResourceProduct, foreign); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("owner cross-tenant read: expected ErrNotFound, got %v", err)
	}
	if err := Decide(customer(), ActionDelete, ResourceOrder, foreign); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("customer cross-tenant delete: expected ErrNotFound, got %v", err)
	}
}

func TestDecideCustomerOwnsOrder(t *testing.T) {
	c := customer()

	own := &ObjectRef{TenantID: 1, OwnerID: c.UserID}
	if err := Decide(c, ActionRead, ResourceOrder, own); err != nil {
		t.Fatalf("customer reading own order: %v", err)
	}

	other := &ObjectRef{TenantID: 1, OwnerID: 99}
	if err := Decide(c, ActionRead, ResourceOrder, other); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("customer reading another customer's order: expected ErrNotFound, got %v", err)
	}

	// Staff in the same tenant see every order.
	if err := Decide(staff(), ActionRead, ResourceOrder, other); err != nil {
		t.Fatalf("staff reading any order: %v", err)
	}
}

func TestDecideCustomerSeesOnlyActiveProducts(t *testing.T) {
	inactive := &ObjectRef{TenantID: 1, Active: false}

	if err := Decide(customer(), ActionRead, ResourceProduct, inactive); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("customer reading inactive product: expected ErrNotFound, got %v", err)
	}
	if err := Decide(owner(), ActionRead, ResourceProduct, inactive); err != nil {
		t.Fatalf("owner reading inactive product: %v", err)
	}
	if err := Decide(staff(), ActionRead, ResourceProduct, inactive); err != nil {
		t.Fatalf("staff reading inactive product: %v", err)
	}
}
