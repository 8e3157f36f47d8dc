package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenMachineConfig/internal/auth"
	"github.com/KevinKickass/OpenMachineConfig/internal/dispatch"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/gin-gonic/gin"
)

// POST /api/v1/query
//
// Runs one generic {entity, action, params} request. Mutating actions need
// technician permission.
func (s *Server) query(c *gin.Context) {
	var req dispatch.Request
	if !bindJSON(c, &req) {
		return
	}
	if req.Action.Mutates() && !hasPermission(c, auth.PermTechnician) {
		c.JSON(http.StatusForbidden, types.NewErrorResponse("AUTH_403", "insufficient permissions",
			gin.H{"required": string(auth.PermTechnician)}))
		return
	}

	result, err := s.lm.Dispatcher().Call(c.Request.Context(), req)
	s.reply(c, http.StatusOK, dispatch.Response{Result: result}, err)
}
