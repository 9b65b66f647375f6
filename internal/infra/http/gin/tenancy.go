package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"github.com/Eliezelg/villasaas-sub004/internal/app/middleware"
	"github.com/Eliezelg/villasaas-sub004/internal/domain/shared/tenant"
)

const (
	TenantHeader      = "X-Tenant-ID"
	UserHeader        = "X-User-ID"
	IdempotencyHeader = "Idempotency-Key"

	principalContextKey = "villasaas.principal"
)

// principal is the caller as resolved by the gateway in front of the engine.
type principal struct {
	TenantID tenant.ID
	UserID   string
}

// TenantMiddleware reads the caller's tenant from the gateway headers and puts
// it on the request context so the command bus can refuse cross-tenant
// messages. Requests without the header pass through; routes that need a
// tenant call requireTenant.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := tenant.ID(strings.TrimSpace(c.GetHeader(TenantHeader)))
		if id == "" {
			c.Next()
			return
		}
		p := principal{TenantID: id, UserID: strings.TrimSpace(c.GetHeader(UserHeader))}
		c.Set(principalContextKey, p)
		c.Set("tenant_id", string(id))
		c.Request = c.Request.WithContext(middleware.ContextWithTenant(c.Request.Context(), id))
		c.Next()
	}
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireTenant(c *gin.Context) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant required", "code": "tenant_required"})
		return principal{}, false
	}
	return p, true
}

func idempotencyKey(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(IdempotencyHeader))
}
