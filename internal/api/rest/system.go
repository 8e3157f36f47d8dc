package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/KevinKickass/OpenMachineConfig/internal/interfaces"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /health
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

// GET /api/v1/system/status
func (s *Server) getSystemStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.lm.GetCurrentStatus())
}

// POST /api/v1/system/reload-device-types
func (s *Server) reloadDeviceTypes(c *gin.Context) {
	n, err := s.lm.ReloadDeviceTypes(c.Request.Context())
	switch {
	case errors.Is(err, interfaces.ErrBusy):
		c.JSON(http.StatusConflict, types.NewErrorResponse("SYSTEM_409", err.Error(), nil))
	case err != nil:
		s.logger.Error("Device type reload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("SYSTEM_500", "failed to reload device types", err.Error()))
	default:
		c.JSON(http.StatusOK, gin.H{"message": "device types reloaded", "count": n})
	}
}

// GET /api/v1/ws
func (s *Server) wsConnect(c *gin.Context) {
	s.wsHub.ServeWs(s.upgrader, c.Writer, c.Request)
}
