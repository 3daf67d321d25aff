// internal/middleware/csrf_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"frontdesk-gateway/internal/pkg/csrf"
	"frontdesk-gateway/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CSRFMode selects how much the token is checked.
type CSRFMode string

const (
	// CSRFModeHeader only requires the header to be present.
	CSRFModeHeader CSRFMode = "header"
	// CSRFModeSession also compares it with the token bound to the session.
	CSRFModeSession CSRFMode = "session"
)

var csrfProtectedPrefixes = []string{
	"/api/auth/register",
	"/api/auth/password-reset",
	"/api/profile/update",
	"/api/users",
	"/api/quotations",
	"/api/tasks",
	"/api/clients",
	"/api/products",
	"/api/maintenance",
}

// CSRFRequired reports whether a request must carry a CSRF token.
func CSRFRequired(method, path string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}
	for _, prefix := range csrfProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

type CSRFMiddleware struct {
	mode   CSRFMode
	store  csrf.Store
	auth   *AuthMiddleware
	logger *zap.Logger
}

func NewCSRFMiddleware(mode CSRFMode, store csrf.Store, auth *AuthMiddleware, logger *zap.Logger) *CSRFMiddleware {
	if mode != CSRFModeSession {
		mode = CSRFModeHeader
	}
	return &CSRFMiddleware{mode: mode, store: store, auth: auth, logger: logger}
}

func (m *CSRFMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !CSRFRequired(c.Request.Method, c.Request.URL.Path) {
			c.Next()
			return
		}

		token := c.GetHeader(csrf.HeaderName)
		if token == "" {
			response.Forbidden(c, "invalid CSRF token")
			return
		}

		if m.mode == CSRFModeSession {
			// Anonymous forms (register, password reset) have no session to
			// bind to and keep the header check only.
			if claims, ok := m.auth.claims(c); ok {
				valid, err := m.store.Validate(c.Request.Context(), claims.SessionID, token)
				if err != nil {
					m.logger.Error("csrf validation failed", zap.Error(err))
					response.Error(c, http.StatusInternalServerError, "internal server error", nil)
					return
				}
				if !valid {
					response.Forbidden(c, "invalid CSRF token")
					return
				}
			}
		}

		c.Next()
	}
}
