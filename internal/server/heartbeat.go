package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	sessiondomain "github.com/smallbiznis/pulse/internal/session/domain"
	"go.uber.org/zap"
)

const heartbeatEndpoint = "/api/activity/heartbeat"

// RecordHeartbeat touches the caller's activity session. The session id is
// read from the cookie or X-Session-Id; a fresh or rotated id is issued as
// a cookie and echoed in X-Session-Id.
func (s *Server) RecordHeartbeat(c *gin.Context) {
	user, ok := userFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	ctx := c.Request.Context()

	if s.heartbeatLimiter.Enabled() {
		res, err := s.heartbeatLimiter.AllowUser(ctx, user.ID)
		if err != nil {
			// fail open: losing the limiter must not drop activity
			s.log.Warn("heartbeat rate limiter unavailable", zap.Error(err))
		} else if !res.Allowed {
			s.obsMetrics.RecordRateLimitDenied(ctx, heartbeatEndpoint, "user")
			if res.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
	}

	result, err := s.heartbeatSvc.RecordHeartbeat(ctx, sessiondomain.HeartbeatRequest{
		UserID:    user.ID,
		SessionID: s.sessions.ReadSessionID(c),
		UserAgent: c.Request.UserAgent(),
		IPAddress: strings.TrimSpace(c.ClientIP()),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if result.IsNewSession {
		s.sessions.SetSessionID(c, result.SessionID)
	}
	c.Status(http.StatusNoContent)
}
