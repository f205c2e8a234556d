package session

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/pulse/internal/config"
)

const (
	DefaultCookieName        = "_sid"
	DefaultSessionCookieName = "pulse_sid"
	HeaderSessionID          = "X-Session-Id"
)

// Manager reads the caller's auth token and owns the activity session
// cookie. Activity session ids never reach the domain through anything but
// an explicit argument.
type Manager struct {
	authCookie    string
	sessionCookie string
	maxAge        int
	secure        bool
}

func NewManager(cfg config.Config) *Manager {
	authCookie := strings.TrimSpace(cfg.Session.AuthCookie)
	if authCookie == "" {
		authCookie = DefaultCookieName
	}
	sessionCookie := strings.TrimSpace(cfg.Session.CookieName)
	if sessionCookie == "" {
		sessionCookie = DefaultSessionCookieName
	}
	return &Manager{
		authCookie:    authCookie,
		sessionCookie: sessionCookie,
		maxAge:        int(cfg.Session.CookieMaxAge.Seconds()),
		secure:        cfg.Session.CookieSecure,
	}
}

// ReadToken prefers a bearer token and falls back to the auth cookie.
func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	if header := strings.TrimSpace(c.GetHeader("Authorization")); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1], true
		}
		return "", false
	}

	token, err := c.Cookie(m.authCookie)
	if err != nil || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

// ReadSessionID returns the activity session id from the cookie or the
// X-Session-Id header, cookie first.
func (m *Manager) ReadSessionID(c *gin.Context) string {
	if value, err := c.Cookie(m.sessionCookie); err == nil && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(c.GetHeader(HeaderSessionID))
}

// SetSessionID issues a new activity session id. Header based clients read
// it back from X-Session-Id on the response.
func (m *Manager) SetSessionID(c *gin.Context, sessionID string) {
	c.Header(HeaderSessionID, sessionID)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.sessionCookie, sessionID, m.maxAge, "/", "", m.secure, true)
}
