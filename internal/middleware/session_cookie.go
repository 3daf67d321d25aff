// internal/middleware/session_cookie.go
package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	sessionCookieName       = "session-token"
	secureSessionCookieName = "__Secure-session-token"
)

// SessionCookie reads and writes the browser session token.
type SessionCookie struct {
	name   string
	secure bool
}

// NewSessionCookie uses the __Secure- name and the Secure flag in production.
func NewSessionCookie(production bool) *SessionCookie {
	name := sessionCookieName
	if production {
		name = secureSessionCookieName
	}
	return &SessionCookie{name: name, secure: production}
}

func (s *SessionCookie) Name() string {
	return s.name
}

// Read returns the token, or "" when the cookie is absent.
func (s *SessionCookie) Read(c *gin.Context) string {
	token, err := c.Cookie(s.name)
	if err != nil {
		return ""
	}
	return token
}

// Write sets the cookie to expire with the session.
func (s *SessionCookie) Write(c *gin.Context, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge <= 0 {
		s.Clear(c)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name, token, maxAge, "/", "", s.secure, true)
}

func (s *SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.name, "", -1, "/", "", s.secure, true)
}
