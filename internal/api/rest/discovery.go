package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/gin-gonic/gin"
)

// GET /api/v1/enums
func (s *Server) listEnums(c *gin.Context) {
	sets := make(gin.H)
	for _, name := range enums.Names() {
		set, _ := enums.Lookup(name)
		sets[name] = set.Options()
	}
	c.JSON(http.StatusOK, sets)
}

// GET /api/v1/enums/:name
func (s *Server) getEnum(c *gin.Context) {
	set, ok := enums.Lookup(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("NOT_FOUND_404", "unknown enum", gin.H{"name": c.Param("name")}))
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": set.Name(), "options": set.Options()})
}

// GET /api/v1/device-types
func (s *Server) listDeviceTypes(c *gin.Context) {
	list, err := s.svc.ListDeviceTypes(c.Request.Context())
	s.replyList(c, "device_types", list, len(list), err)
}

// GET /api/v1/device-types/:id
func (s *Server) getDeviceType(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	dt, err := s.svc.GetDeviceType(c.Request.Context(), id)
	s.reply(c, http.StatusOK, dt, err)
}
