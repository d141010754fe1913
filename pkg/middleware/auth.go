package middleware

import (
	"strings"

	"studyspot/pkg/apperror"
	"studyspot/pkg/jwt"
	"studyspot/pkg/roles"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID        = "user_id"
	ContextUserRole      = "user_role"
	ContextTenantID      = "tenant_id"
	ContextScopeTenantID = "scope_tenant_id"
	ContextRequestID     = "request_id"

	HeaderTenantID    = "X-Tenant-ID"
	HeaderInternalKey = "X-Internal-API-Key"
)

func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			apperror.Respond(c, apperror.Unauthorized("", "Authorization header required"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			apperror.Respond(c, apperror.Unauthorized("", "Invalid authorization header format"))
			return
		}

		claims, err := jwtService.ValidateToken(strings.TrimSpace(parts[1]))
		if err != nil {
			apperror.Respond(c, apperror.Unauthorized("INVALID_TOKEN", "Invalid or expired token"))
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextTenantID, claims.TenantID)
		c.Next()
	}
}

// RequireRoles rejects requests whose token role is not listed.
func RequireRoles(allowed ...string) gin.HandlerFunc {
	set := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		set[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := set[c.GetString(ContextUserRole)]; !ok {
			apperror.Respond(c, apperror.Forbidden("", "Insufficient permissions"))
			return
		}
		c.Next()
	}
}

// TenantScope resolves the tenant a request acts on. Tenant users are pinned
// to the tenant in their token; platform users may pick one with X-Tenant-ID
// or ?tenant_id=.
func TenantScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if roles.IsPlatform(role) {
			tenantID := c.GetHeader(HeaderTenantID)
			if tenantID == "" {
				tenantID = c.Query("tenant_id")
			}
			c.Set(ContextScopeTenantID, tenantID)
			c.Next()
			return
		}

		tenantID := c.GetString(ContextTenantID)
		if tenantID == "" {
			apperror.Respond(c, apperror.Forbidden("NO_TENANT", "User is not attached to a tenant"))
			return
		}
		c.Set(ContextScopeTenantID, tenantID)
		c.Next()
	}
}

// RequireTenant is used after TenantScope on routes that cannot run without a tenant.
func RequireTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextScopeTenantID) == "" {
			apperror.Respond(c, apperror.BadRequest("tenant_id is required"))
			return
		}
		c.Next()
	}
}

func InternalAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" || c.GetHeader(HeaderInternalKey) != key {
			apperror.Respond(c, apperror.Unauthorized("", "Invalid internal API key"))
			return
		}
		c.Next()
	}
}

// ActorFrom reads the caller set by AuthMiddleware and TenantScope.
func ActorFrom(c *gin.Context) roles.Actor {
	tenantID := c.GetString(ContextScopeTenantID)
	if tenantID == "" && !roles.IsPlatform(c.GetString(ContextUserRole)) {
		tenantID = c.GetString(ContextTenantID)
	}
	return roles.Actor{
		UserID:   c.GetString(ContextUserID),
		Role:     c.GetString(ContextUserRole),
		TenantID: tenantID,
	}
}
