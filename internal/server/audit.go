package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/pulse/internal/audit/domain"
	"github.com/smallbiznis/pulse/pkg/db/pagination"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	startAt, err := parseTimeField("start_at", c.Query("start_at"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	endAt, err := parseTimeField("end_at", c.Query("end_at"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a number"))
		return
	}

	resp, err := s.auditSvc.List(c.Request.Context(), auditdomain.ListAuditLogRequest{
		Pagination: page,
		Action:     strings.TrimSpace(c.Query("action")),
		ActorType:  strings.TrimSpace(c.Query("actor_type")),
		TargetID:   strings.TrimSpace(c.Query("job")),
		StartAt:    startAt,
		EndAt:      endAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
