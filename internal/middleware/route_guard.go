// internal/middleware/route_guard.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	SignInPage    = "/login"
	DashboardPage = "/dashboard"
)

// RouteClass is how the guard sees a requested path.
type RouteClass int

const (
	RouteOther RouteClass = iota
	RoutePublicAuth
	RouteProtected
)

var publicAuthPages = map[string]bool{
	"/login":           true,
	"/register":        true,
	"/forgot-password": true,
}

// ClassifyRoute puts path into exactly one class.
func ClassifyRoute(path string) RouteClass {
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	switch {
	case publicAuthPages[path]:
		return RoutePublicAuth
	case path == DashboardPage || strings.HasPrefix(path, DashboardPage+"/"):
		return RouteProtected
	default:
		return RouteOther
	}
}

// RouteGuard gates page navigation on the session cookie alone. A token that
// fails verification for any reason counts as no session.
func RouteGuard(verifier TokenVerifier, cookie *SessionCookie) gin.HandlerFunc {
	m := NewAuthMiddleware(verifier, cookie)

	return func(c *gin.Context) {
		class := ClassifyRoute(c.Request.URL.Path)
		if class == RouteOther {
			c.Next()
			return
		}

		_, hasSession := m.claims(c)
		switch {
		case class == RouteProtected && !hasSession:
			c.Redirect(http.StatusTemporaryRedirect, SignInPage)
			c.Abort()
		case class == RoutePublicAuth && hasSession:
			c.Redirect(http.StatusTemporaryRedirect, DashboardPage)
			c.Abort()
		default:
			c.Next()
		}
	}
}
