package rest

import (
	"errors"
	"net/http"

	"github.com/KevinKickass/OpenMachineConfig/internal/auth"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /api/v1/auth/login
func (s *Server) login(c *gin.Context) {
	if !s.authService.Enabled() {
		c.JSON(http.StatusConflict, types.NewErrorResponse("AUTH_409", "authentication is disabled", nil))
		return
	}

	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := s.authService.Login(req.Username, req.Password, c.ClientIP())
	switch {
	case errors.Is(err, auth.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, types.NewErrorResponse("AUTH_429", "too many failed login attempts", nil))
	case errors.Is(err, auth.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("AUTH_401", "invalid username or password", nil))
	case err != nil:
		s.respondError(c, err)
	default:
		c.JSON(http.StatusOK, result)
	}
}

// GET /api/v1/auth/me
func (s *Server) getCurrentUser(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"username":     c.GetString(auth.ContextUsername),
		"role":         c.MustGet(auth.ContextRole),
		"permissions":  c.MustGet(auth.ContextPermissions),
		"auth_enabled": s.authService.Enabled(),
	})
}

func hasPermission(c *gin.Context, required auth.Permission) bool {
	perms, _ := c.Get(auth.ContextPermissions)
	list, _ := perms.([]auth.Permission)
	for _, p := range list {
		if p == required {
			return true
		}
	}
	return false
}
