package middleware

import (
	"context"
	"errors"

	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

var ErrTenantMismatch = errors.New("middleware: message belongs to another tenant")

// TenantScoped messages name the tenant whose data they read or change.
type TenantScoped interface {
	TenantScope() tenant.ID
}

type tenantKey struct{}

func ContextWithTenant(ctx context.Context, id tenant.ID) context.Context {
	return context.WithValue(ctx, tenantKey{}, id)
}

func TenantFromContext(ctx context.Context) (tenant.ID, bool) {
	id, ok := ctx.Value(tenantKey{}).(tenant.ID)
	return id, ok && id != ""
}

// TenantGuard rejects tenant-scoped messages without a tenant, and messages
// whose tenant differs from the caller's when the caller is known. Background
// jobs dispatch without a caller tenant.
type TenantGuard struct{}

func (TenantGuard) Authorize(ctx context.Context, message any) error {
	scoped, ok := message.(TenantScoped)
	if !ok {
		return nil
	}
	id := scoped.TenantScope()
	if err := id.Validate(); err != nil {
		return err
	}
	if caller, known := TenantFromContext(ctx); known && caller != id {
		return ErrTenantMismatch
	}
	return nil
}

var _ Authorizer = TenantGuard{}
