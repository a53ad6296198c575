package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Keys used to store the authenticated identity. Using a custom type prevents collisions.
const (
	userIDKey   = contextKey("userID")
	tenantIDKey = contextKey("tenantID")
)

// WithIdentity returns a copy of ctx carrying the acting user and tenant.
func WithIdentity(ctx context.Context, userID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// GetUserIDFromContext retrieves the authenticated user ID from the Gin context.
// It returns the user ID and a boolean indicating if it was found.
func GetUserIDFromContext(c *gin.Context) (string, bool) {
	return lookup(c, userIDKey)
}

// GetTenantIDFromContext retrieves the tenant the caller acts for.
func GetTenantIDFromContext(c *gin.Context) (string, bool) {
	return lookup(c, tenantIDKey)
}

func lookup(c *gin.Context, key contextKey) (string, bool) {
	if val, exists := c.Get(string(key)); exists {
		s, ok := val.(string)
		return s, ok && s != ""
	}
	// check in the request context as well
	if s, ok := c.Request.Context().Value(key).(string); ok && s != "" {
		return s, true
	}
	return "", false
}
