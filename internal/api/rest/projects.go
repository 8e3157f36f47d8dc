package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenMachineConfig/internal/topology"
	"github.com/gin-gonic/gin"
)

// GET /api/v1/projects
func (s *Server) listProjects(c *gin.Context) {
	list, err := s.svc.ListProjects(c.Request.Context())
	s.replyList(c, "projects", list, len(list), err)
}

// GET /api/v1/projects/:id
func (s *Server) getProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := s.svc.GetProject(c.Request.Context(), id)
	s.reply(c, http.StatusOK, p, err)
}

// POST /api/v1/projects
func (s *Server) createProject(c *gin.Context) {
	var in topology.ProjectInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := s.svc.CreateProject(c.Request.Context(), in)
	s.reply(c, http.StatusCreated, p, err)
}

// PATCH /api/v1/projects/:id
func (s *Server) updateProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var patch topology.ProjectPatch
	if !bindJSON(c, &patch) {
		return
	}
	p, err := s.svc.UpdateProject(c.Request.Context(), id, patch)
	s.reply(c, http.StatusOK, p, err)
}

// DELETE /api/v1/projects/:id
func (s *Server) deleteProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.replyDeleted(c, "project", s.svc.DeleteProject(c.Request.Context(), id))
}
