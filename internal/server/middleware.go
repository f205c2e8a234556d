package server

import (
	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/pulse/internal/auth/domain"
	obscontext "github.com/smallbiznis/pulse/internal/observability/context"
)

const contextUserKey = "auth_user"

// AuthRequired resolves the caller from a bearer token or the auth cookie.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), obscontext.ActorTypeUser, user.ID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserKey, *user)
		c.Next()
	}
}

func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := userFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), user, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// SchedulerAuthRequired rejects trigger calls before any handler touches
// the store.
func (s *Server) SchedulerAuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.jobVerifier == nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.jobVerifier.Verify(c.GetHeader("Authorization")); err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := obscontext.WithActor(c.Request.Context(), obscontext.ActorTypeScheduler, "external")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func userFromContext(c *gin.Context) (authdomain.User, bool) {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return authdomain.User{}, false
	}
	user, ok := value.(authdomain.User)
	return user, ok && user.ID != ""
}

