package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"github.com/gin-gonic/gin"
)

// GET /api/v1/ports/:id
func (s *Server) getDevicePort(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.svc.GetDevicePort(c.Request.Context(), id)
	s.reply(c, http.StatusOK, p, err)
}

// PATCH /api/v1/ports/:id
func (s *Server) updateDevicePort(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch topology.PortPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := s.svc.UpdateDevicePort(c.Request.Context(), id, patch)
	s.reply(c, http.StatusOK, p, err)
}

// GET /api/v1/ports/:id/setting
func (s *Server) getPortSetting(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ps, err := s.svc.GetPortSetting(c.Request.Context(), id)
	s.reply(c, http.StatusOK, ps, err)
}

// PATCH /api/v1/ports/:id/setting
func (s *Server) updatePortSetting(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch topology.PortSettingPatch
	if !bindJSON(c, &patch) {
		return
	}
	ps, err := s.svc.UpdatePortSetting(c.Request.Context(), id, patch)
	s.reply(c, http.StatusOK, ps, err)
}

// GET /api/v1/ports/:id/protocols
func (s *Server) listProtocols(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := s.svc.ListProtocols(c.Request.Context(), id)
	s.replyList(c, "protocols", list, len(list), err)
}

// POST /api/v1/ports/:id/protocols
func (s *Server) createProtocol(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in topology.ProtocolInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := s.svc.CreateProtocol(c.Request.Context(), id, in)
	s.reply(c, http.StatusCreated, p, err)
}
