package auth

import (
	"net/http"
	"strings"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/gin-gonic/gin"
)

// Gin context keys set by AuthMiddleware.
const (
	ContextPermissions = "permissions"
	ContextUsername    = "username"
	ContextRole        = "role"
)

// AuthMiddleware validates the bearer token. Browsers cannot set headers on
// websocket upgrades, so an access_token query parameter is accepted too.
// With authentication disabled every request gets admin permissions.
func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.enabled {
			c.Set(ContextPermissions, RoleAdmin.Permissions())
			c.Set(ContextRole, RoleAdmin)
			c.Next()
			return
		}

		token := c.Query("access_token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			// Extract token from "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				abort(c, http.StatusUnauthorized, "AUTH_401", "invalid authorization header format")
				return
			}
			token = parts[1]
		}
		if token == "" {
			abort(c, http.StatusUnauthorized, "AUTH_401", "missing authorization header")
			return
		}

		claims, err := a.ValidateToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "AUTH_401", "invalid or expired token")
			return
		}

		c.Set(ContextPermissions, claims.Role.Permissions())
		c.Set(ContextUsername, claims.Username)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequirePermission checks if user has required permission
func RequirePermission(required Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		perms, exists := c.Get(ContextPermissions)
		if !exists {
			abort(c, http.StatusForbidden, "AUTH_403", "no permissions found")
			return
		}

		for _, p := range perms.([]Permission) {
			if p == required {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden,
			types.NewErrorResponse("AUTH_403", "insufficient permissions", gin.H{"required": string(required)}))
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, types.NewErrorResponse(code, message, nil))
}
