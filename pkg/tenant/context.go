package tenant

import (
	"context"
	"errors"
)

// Role identifies which side of the B2B marketplace a tenant operates on.
type Role string

const (
	RolePharmacy    Role = "PHARMACY"
	RoleDistributor Role = "DISTRIBUTOR"
)

// Valid reports whether the role is one of the known tenant roles.
func (r Role) Valid() bool {
	return r == RolePharmacy || r == RoleDistributor
}

// contextKey is a private type for context keys to prevent collisions
type contextKey string

const (
	tenantIDKey   contextKey = "tenant_id"
	tenantRoleKey contextKey = "tenant_role"
)

var (
	// ErrNoTenantInContext is returned when tenant context is missing
	ErrNoTenantInContext = errors.New("no tenant in context")
)

// WithTenantContext adds tenant identity to the context.
// This should be called by middleware after extracting tenant from headers;
// the core trusts the identity, it never verifies it (auth is upstream).
func WithTenantContext(ctx context.Context, id string, role Role) context.Context {
	ctx = context.WithValue(ctx, tenantIDKey, id)
	ctx = context.WithValue(ctx, tenantRoleKey, role)
	return ctx
}

// WithTenantID adds only tenant ID to context
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantID extracts tenant ID from context.
// Returns ErrNoTenantInContext if tenant ID is not found.
func TenantID(ctx context.Context) (string, error) {
	id, ok := ctx.Value(tenantIDKey).(string)
	if !ok || id == "" {
		return "", ErrNoTenantInContext
	}
	return id, nil
}

// TenantRole extracts the tenant role from context.
func TenantRole(ctx context.Context) (Role, error) {
	role, ok := ctx.Value(tenantRoleKey).(Role)
	if !ok || !role.Valid() {
		return "", ErrNoTenantInContext
	}
	return role, nil
}

// MustTenantID extracts tenant ID from context and panics if not found.
// Use only in cases where missing tenant is a programming error.
func MustTenantID(ctx context.Context) string {
	id, err := TenantID(ctx)
	if err != nil {
		panic("tenant ID not found in context")
	}
	return id
}
