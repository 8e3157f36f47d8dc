package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenMachineConfig/internal/enums"
	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"github.com/gin-gonic/gin"
)

// ==================== PROTOCOLS ====================

func (s *Server) getProtocol(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.svc.GetProtocol(c.Request.Context(), id)
	s.reply(c, http.StatusOK, p, err)
}

func (s *Server) updateProtocol(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch topology.ProtocolPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := s.svc.UpdateProtocol(c.Request.Context(), id, patch)
	s.reply(c, http.StatusOK, p, err)
}

func (s *Server) deleteProtocol(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.replyDeleted(c, "protocol", s.svc.DeleteProtocol(c.Request.Context(), id))
}

// ==================== SLAVE DEVICES ====================

func (s *Server) listSlaves(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := s.svc.ListSlaveDevices(c.Request.Context(), id)
	s.replyList(c, "slaves", list, len(list), err)
}

func (s *Server) createSlave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in topology.SlaveInput
	if !bindJSON(c, &in) {
		return
	}
	sd, err := s.svc.CreateSlaveDevice(c.Request.Context(), id, in)
	s.reply(c, http.StatusCreated, sd, err)
}

func (s *Server) getSlave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sd, err := s.svc.GetSlaveDevice(c.Request.Context(), id)
	s.reply(c, http.StatusOK, sd, err)
}

func (s *Server) updateSlave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch topology.SlavePatch
	if !bindJSON(c, &patch) {
		return
	}
	sd, err := s.svc.UpdateSlaveDevice(c.Request.Context(), id, patch)
	s.reply(c, http.StatusOK, sd, err)
}

func (s *Server) deleteSlave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.replyDeleted(c, "slave device", s.svc.DeleteSlaveDevice(c.Request.Context(), id))
}

// POST /api/v1/slaves/:id/test
func (s *Server) testSlave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	sd, err := s.svc.GetSlaveDevice(ctx, id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	p, err := s.svc.GetProtocol(ctx, sd.ProtocolID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if p.Type != enums.ModbusTCP {
		badRequest(c, "only Modbus TCP slaves can be probed", gin.H{"protocol": p.Type.String()})
		return
	}

	port := 0
	if p.TCPPort != nil {
		port = *p.TCPPort
	}
	c.JSON(http.StatusOK, s.lm.SlaveProber().Probe(ctx, sd.DeviceAddress, port))
}

// ==================== IO ====================

func (s *Server) listIOs(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := s.svc.ListIOs(c.Request.Context(), id)
	s.replyList(c, "ios", list, len(list), err)
}

func (s *Server) createIO(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in topology.IOInput
	if !bindJSON(c, &in) {
		return
	}
	io, err := s.svc.CreateIO(c.Request.Context(), id, in)
	s.reply(c, http.StatusCreated, io, err)
}

func (s *Server) getIO(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	io, err := s.svc.GetIO(c.Request.Context(), id)
	s.reply(c, http.StatusOK, io, err)
}

func (s *Server) updateIO(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch topology.IOPatch
	if !bindJSON(c, &patch) {
		return
	}
	io, err := s.svc.UpdateIO(c.Request.Context(), id, patch)
	s.reply(c, http.StatusOK, io, err)
}

func (s *Server) deleteIO(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.replyDeleted(c, "io", s.svc.DeleteIO(c.Request.Context(), id))
}
