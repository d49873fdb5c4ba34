package util

import (
	"context"

	"github.com/gin-gonic/gin"
)

// Context keys set by middleware.
const (
	ContextKeyClientIP = "client_ip"
	ContextKeyUsername = "username"
)

// IPMiddleware extracts client IP and stores it in the context
func IPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Gin's ClientIP() handles X-Forwarded-For and other headers
		c.Set(ContextKeyClientIP, c.ClientIP())
		c.Next()
	}
}

// GetIPFromContext extracts the client IP address from the context
func GetIPFromContext(ctx context.Context) string {
	// Try to extract from Gin context first
	if ginCtx, ok := ctx.(*gin.Context); ok {
		return ginCtx.ClientIP()
	}

	// Try to get from context value (set by middleware)
	if ip, ok := ctx.Value(ContextKeyClientIP).(string); ok {
		return ip
	}

	return ""
}

// GetUsernameFromContext extracts the authenticated username from the context
func GetUsernameFromContext(ctx context.Context) string {
	if ginCtx, ok := ctx.(*gin.Context); ok {
		if username, exists := ginCtx.Get(ContextKeyUsername); exists {
			if s, ok := username.(string); ok {
				return s
			}
		}
		return ""
	}

	if username, ok := ctx.Value(ContextKeyUsername).(string); ok {
		return username
	}

	return ""
}
