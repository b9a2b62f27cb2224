package domain

import (
	"context"
	"time"
)

// Role is the closed set of user roles. The permission table in
// internal/security is keyed by these values.
type Role string

const (
	RoleStoreOwner Role = "STORE_OWNER"
	RoleStaff      Role = "STAFF"
	RoleCustomer   Role = "CUSTOMER"
)

// ValidRole reports whether r is a member of the role enumeration.
func ValidRole(r Role) bool {
	switch r {
	case RoleStoreOwner, RoleStaff, RoleCustomer:
		return true
	}
	return false
}

// User represents a system user. TenantID is nil for platform-level users
// that are not bound to any store.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"` // unique
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // bcrypt, never returned in API responses
	TenantID     *int64    `json:"tenant_id"`
	Role         Role      `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListByTenant(ctx context.Context, tenantID int64) ([]*User, error)
	Update(ctx context.Context, user *User) error
}
