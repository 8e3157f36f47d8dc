package rest

import (
	"net/http"

	"github.com/KevinKickass/OpenMachineConfig/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) respondError(c *gin.Context, err error) {
	status, body := types.DescribeError(err)
	if status == http.StatusInternalServerError && body.Code == "INTERNAL_500" {
		s.logger.Error("Unclassified request error", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, types.ErrorResponse{Error: body})
}

// reply writes v with status, or the mapped error response.
func (s *Server) reply(c *gin.Context, status int, v any, err error) {
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(status, v)
}

func (s *Server) replyList(c *gin.Context, key string, items any, count int, err error) {
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: items, "count": count})
}

func (s *Server) replyDeleted(c *gin.Context, what string, err error) {
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": what + " deleted"})
}

func badRequest(c *gin.Context, message string, details any) {
	c.JSON(http.StatusBadRequest, types.NewErrorResponse("REQUEST_400", message, details))
}

// pathID parses the :id segment. It writes a 400 and returns false when the
// segment is not a UUID.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid id", gin.H{"id": c.Param("id")})
		return uuid.Nil, false
	}
	return id, true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid request body", err.Error())
		return false
	}
	return true
}
