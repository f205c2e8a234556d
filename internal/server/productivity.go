package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	productivitydomain "github.com/smallbiznis/pulse/internal/productivity/domain"
	"github.com/smallbiznis/pulse/pkg/db/pagination"
)

func (s *Server) ListProductivity(c *gin.Context) {
	date, err := parseRequiredDate("date", c.Query("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a number"))
		return
	}

	resp, err := s.productivitySvc.List(c.Request.Context(), productivitydomain.ListRequest{
		Date:       date,
		UserID:     strings.TrimSpace(c.Query("user_id")),
		Pagination: page,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
