package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/gin-gonic/gin"
)

// ValidationResult is the body of every /validate response. A failed rule is
// not an HTTP error; only malformed input and missing records are.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// runRule binds P and evaluates rule against it.
func runRule[P any](s *Server, c *gin.Context, rule func(context.Context, P) error) {
	var params P
	if !bindJSON(c, &params) {
		return
	}

	err := rule(c.Request.Context(), params)
	var ve *types.ValidationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, ValidationResult{Valid: true})
	case errors.As(err, &ve):
		c.JSON(http.StatusOK, ValidationResult{Field: ve.Field, Message: ve.Message})
	default:
		s.respondError(c, err)
	}
}

// POST /api/v1/validate/port-address
func (s *Server) validatePortAddress(c *gin.Context) {
	runRule(s, c, s.svc.PortAddressIsFree)
}

// POST /api/v1/validate/tcp-port
func (s *Server) validateTCPPort(c *gin.Context) {
	runRule(s, c, s.svc.TCPPortIsFree)
}

// POST /api/v1/validate/protocol-transport
func (s *Server) validateProtocolTransport(c *gin.Context) {
	runRule(s, c, s.svc.ProtocolMatchesTransport)
}

// POST /api/v1/validate/slave-address
func (s *Server) validateSlaveAddress(c *gin.Context) {
	runRule(s, c, s.svc.SlaveAddressIsValid)
}

// POST /api/v1/validate/io-register
func (s *Server) validateIORegister(c *gin.Context) {
	runRule(s, c, s.svc.RegisterInScope)
}
