package security

import (
	"github.com/yourorg/vendorhub/internal/domain"
)

// TenantContext is the per-request identity derived from token claims. It is
// threaded explicitly into every policy and service call; nothing reads it
// from ambient state.
type TenantContext struct {
	TenantID      int64 // 0 when the subject has no bound tenant
	UserID        int64
	Role          domain.Role
	Username      string
	Authenticated bool
}

// Anonymous returns the unauthenticated context. Malformed, missing and
// expired tokens all degrade to this value.
func Anonymous() TenantContext {
	return TenantContext{}
}

// HasTenant reports whether the subject is bound to a tenant.
func (c TenantContext) HasTenant() bool {
	return c.TenantID != 0
}

// Resource identifies the kind of object an operation targets.
type Resource string

const (
	ResourceTenant  Resource = "tenant"
	ResourceProduct Resource = "product"
	ResourceOrder   Resource = "order"
)

// Action identifies what operation is being performed.
type Action string

const (
	ActionList         Action = "list"
	ActionCreate       Action = "create"
	ActionRead         Action = "read"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionUpdateStatus Action = "update_status"
)

// rolePermissions is the role x resource x action table. Adding a role or
// widening a grant is a data change here, not new control flow.
var rolePermissions = map[domain.Role]map[Resource][]Action{
	domain.RoleStoreOwner: {
		ResourceTenant:  {ActionList, ActionRead},
		ResourceProduct: {ActionList, ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		ResourceOrder:   {ActionList, ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionUpdateStatus},
	},
	domain.RoleStaff: {
		ResourceProduct: {ActionList, ActionRead, ActionUpdate},
		ResourceOrder:   {ActionList, ActionRead, ActionUpdateStatus},
	},
	domain.RoleCustomer: {
		ResourceProduct: {ActionList, ActionRead},
		ResourceOrder:   {ActionList, ActionCreate, ActionRead},
	},
}

// ObjectRef carries the fields of a concrete resource instance that the
// object-level check needs. OwnerID is the customer on an order and the
// creator on a product; Active matters only for customer product reads.
type ObjectRef struct {
	TenantID int64
	OwnerID  int64
	Active   bool
}

// Decide is the single policy decision function. obj is nil for
// collection-level checks (list, create).
//
// The object-level check is two-phase: the tenant match runs first and is
// non-negotiable; only then is the role table consulted. A mismatch reports
// ErrNotFound so the caller cannot distinguish "exists elsewhere" from
// "does not exist".
func Decide(actor TenantContext, action Action, resource Resource, obj *ObjectRef) error {
	if !actor.Authenticated {
		return domain.ErrUnauthenticated
	}
	if !actor.HasTenant() {
		return domain.ErrForbidden
	}

	if obj != nil && obj.TenantID != actor.TenantID {
		return domain.ErrNotFound
	}

	if !roleAllows(actor.Role, resource, action) {
		return domain.ErrForbidden
	}

	if obj != nil {
		switch {
		case resource == ResourceOrder && actor.Role == domain.RoleCustomer:
			// Customers only ever touch their own orders.
			if obj.OwnerID != actor.UserID {
				return domain.ErrNotFound
			}
		case resource == ResourceProduct && actor.Role == domain.RoleCustomer:
			if !obj.Active {
				return domain.ErrNotFound
			}
		}
	}

	return nil
}

func roleAllows(role domain.Role, resource Resource, action Action) bool {
	grants, ok := rolePermissions[role]
	if !ok {
		return false
	}
	for _, a := range grants[resource] {
		if a == action {
			return true
		}
	}
	return false
}
