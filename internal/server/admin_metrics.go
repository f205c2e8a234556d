package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	activeuserdomain "github.com/smallbiznis/pulse/internal/activeuser/domain"
	dailymetricdomain "github.com/smallbiznis/pulse/internal/dailymetric/domain"
	"github.com/smallbiznis/pulse/internal/metricdate"
)

type activeUsersResponse struct {
	AsOf     time.Time                    `json:"as_of"`
	Current  activeuserdomain.ActiveUsers `json:"current"`
	Previous activeuserdomain.ActiveUsers `json:"previous"`
	Trends   activeuserdomain.Trends      `json:"trends"`
}

// GetActiveUsers returns live counts and trends as of now, or as_of.
func (s *Server) GetActiveUsers(c *gin.Context) {
	asOf, err := parseOptionalTime(c.Query("as_of"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	at := s.clock.Now().UTC()
	// only live reads share the per-minute cache; a pinned as_of is exact
	cached := s.overviewCache
	if asOf != nil {
		at = asOf.UTC()
		cached = nil
	}

	var overview activeuserdomain.Overview
	ok := false
	if cached != nil {
		overview, ok = cached.Get(at)
	}
	if !ok {
		overview, err = s.activeUserSvc.Overview(c.Request.Context(), at)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if cached != nil {
			cached.Set(at, overview)
		}
	}

	c.JSON(http.StatusOK, activeUsersResponse{
		AsOf:     overview.Current.AsOf,
		Current:  overview.Current,
		Previous: overview.Previous,
		Trends:   overview.Trends,
	})
}

type snapshotsResponse struct {
	From      string                       `json:"from"`
	To        string                       `json:"to"`
	Snapshots []dailymetricdomain.Snapshot `json:"snapshots"`
}

// ListSnapshots defaults to the 30 completed days before today.
func (s *Server) ListSnapshots(c *gin.Context) {
	from, err := parseOptionalDate("from", c.Query("from"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	to, err := parseOptionalDate("to", c.Query("to"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	end := metricdate.Yesterday(s.clock.Now(), s.cfg.Location())
	if to != nil {
		end = *to
	}
	start := end.AddDays(-29)
	if from != nil {
		start = *from
	}

	snapshots, err := s.snapshotSvc.List(c.Request.Context(), start, end)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if snapshots == nil {
		snapshots = []dailymetricdomain.Snapshot{}
	}

	c.JSON(http.StatusOK, snapshotsResponse{
		From:      start.String(),
		To:        end.String(),
		Snapshots: snapshots,
	})
}
