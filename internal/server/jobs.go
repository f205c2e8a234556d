package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pulse/internal/errkind"
	productivitydomain "github.com/smallbiznis/pulse/internal/productivity/domain"
	"github.com/smallbiznis/pulse/internal/scheduler"
)

const (
	jobStatusOK             = "ok"
	jobStatusPartialFailure = "partial_failure"
)

type productivityJobResponse struct {
	Status    string                           `json:"status"`
	Date      string                           `json:"date"`
	Processed int                              `json:"processed"`
	Failures  []productivitydomain.UserFailure `json:"failures"`
}

func (s *Server) TriggerDailySnapshot(c *gin.Context) {
	c.Set("job", scheduler.JobDailySnapshot)

	date, err := parseOptionalDate("date", c.Query("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.scheduler.RunDailySnapshot(c.Request.Context(), date)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   jobStatusOK,
		"state":    result.State,
		"created":  result.Created,
		"snapshot": result.Snapshot,
	})
}

// TriggerProductivity answers 200 with the failure list when only some
// users failed so the caller can tell partial from total failure.
func (s *Server) TriggerProductivity(c *gin.Context) {
	c.Set("job", scheduler.JobProductivity)

	date, err := parseOptionalDate("date", c.Query("date"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.scheduler.RunProductivity(c.Request.Context(), date)
	if err != nil && !errkind.IsPartialFailure(err) {
		AbortWithError(c, err)
		return
	}

	status := jobStatusOK
	if result.Failed() {
		status = jobStatusPartialFailure
	}
	failures := result.Failures
	if failures == nil {
		failures = []productivitydomain.UserFailure{}
	}

	c.JSON(http.StatusOK, productivityJobResponse{
		Status:    status,
		Date:      result.Date,
		Processed: result.Processed,
		Failures:  failures,
	})
}
