package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GET /api/v1/projects/:id/devices
func (s *Server) listDevices(c *gin.Context) {
	projectID, ok := pathID(c)
	if !ok {
		return
	}
	list, err := s.svc.ListDevices(c.Request.Context(), projectID)
	s.replyList(c, "devices", list, len(list), err)
}

// POST /api/v1/projects/:id/devices
//
// Provisions the device with its ports, port settings and MQTT record in
// one transaction and returns the whole bundle.
func (s *Server) createDevice(c *gin.Context) {
	projectID, ok := pathID(c)
	if !ok {
		return
	}
	var in topology.DeviceInput
	if !bindJSON(c, &in) {
		return
	}
	bundle, err := s.svc.ProvisionDevice(c.Request.Context(), projectID, in)
	if err == nil {
		s.logger.Info("Device provisioned",
			zap.String("device_id", bundle.Device.ID.String()),
			zap.String("project_id", projectID.String()))
	}
	s.reply(c, http.StatusCreated, bundle, err)
}

// GET /api/v1/devices/:id
func (s *Server) getDevice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	d, err := s.svc.GetDevice(c.Request.Context(), id)
	s.reply(c, http.StatusOK, d, err)
}

// PATCH /api/v1/devices/:id
func (s *Server) updateDevice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch topology.DevicePatch
	if !bindJSON(c, &patch) {
		return
	}
	d, err := s.svc.UpdateDevice(c.Request.Context(), id, patch)
	s.reply(c, http.StatusOK, d, err)
}

// DELETE /api/v1/devices/:id
func (s *Server) deleteDevice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.replyDeleted(c, "device", s.svc.DeleteDevice(c.Request.Context(), id))
}

// GET /api/v1/devices/:id/ports
func (s *Server) listDevicePorts(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	list, err := s.svc.ListDevicePorts(c.Request.Context(), id)
	s.replyList(c, "ports", list, len(list), err)
}

// GET /api/v1/devices/:id/audit
func (s *Server) auditDevice(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	report, err := s.svc.AuditDevice(c.Request.Context(), id)
	s.reply(c, http.StatusOK, report, err)
}

// GET /api/v1/devices/:id/mqtt
func (s *Server) getMqtt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := s.svc.GetMqtt(c.Request.Context(), id)
	s.reply(c, http.StatusOK, m, err)
}

// PATCH /api/v1/devices/:id/mqtt
func (s *Server) updateMqtt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch topology.MqttPatch
	if !bindJSON(c, &patch) {
		return
	}
	m, err := s.svc.UpdateMqtt(c.Request.Context(), id, patch)
	s.reply(c, http.StatusOK, m, err)
}

// POST /api/v1/devices/:id/mqtt/test
func (s *Server) testMqtt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := s.svc.GetMqtt(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if m.BrokerAddress == "" {
		badRequest(c, "broker address is not configured", nil)
		return
	}
	c.JSON(http.StatusOK, s.lm.MqttProber().Probe(c.Request.Context(), *m))
}
