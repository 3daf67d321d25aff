// internal/middleware/auth_middleware.go
package middleware

import (
	"net/http"

	"frontdesk-gateway/internal/domain/auth"
	"frontdesk-gateway/internal/pkg/jwt"
	"frontdesk-gateway/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenVerifier checks a browser session token without a network round trip.
type TokenVerifier interface {
	Authenticate(token string) (*jwt.Claims, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
	cookie   *SessionCookie
}

func NewAuthMiddleware(verifier TokenVerifier, cookie *SessionCookie) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		cookie:   cookie,
	}
}

// Auth requires a valid session cookie
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.claims(c)
		if !ok {
			response.Unauthorized(c, "authentication required")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth sets the session context when a valid cookie is present
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := m.claims(c); ok {
			setClaims(c, claims)
		}
		c.Next()
	}
}

// RequireRole allows only the given roles. MUST be used after Auth().
func (m *AuthMiddleware) RequireRole(roles ...auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			response.Error(c, http.StatusForbidden, "authentication required", nil)
			return
		}
		if !claims.HasRole(roles...) {
			response.Forbidden(c, "insufficient permissions")
			return
		}
		c.Next()
	}
}

// AdminOnly returns middlewares for admin-only routes (Auth + RequireRole)
func (m *AuthMiddleware) AdminOnly() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		m.Auth(),
		m.RequireRole(auth.RoleAdmin),
	}
}

// claims fails closed: any verification error means no session.
func (m *AuthMiddleware) claims(c *gin.Context) (*jwt.Claims, bool) {
	token := m.cookie.Read(c)
	if token == "" {
		return nil, false
	}
	claims, err := m.verifier.Authenticate(token)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setClaims(c *gin.Context, claims *jwt.Claims) {
	c.Set(ctxClaims, claims)
	c.Set(ctxSessionID, claims.SessionID)
	c.Set(ctxUserID, claims.UserID())
	c.Set(ctxRole, claims.Role)
}
