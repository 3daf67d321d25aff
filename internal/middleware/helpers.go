// internal/middleware/helpers.go
package middleware

import (
	"frontdesk-gateway/internal/domain/auth"
	"frontdesk-gateway/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

const (
	ctxClaims    = "claims"
	ctxSessionID = "session_id"
	ctxUserID    = "user_id"
	ctxRole      = "role"
	ctxRequestID = "request_id"
)

// GetClaims returns the verified session token claims
func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ctxClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}

func GetSessionID(c *gin.Context) (string, bool) {
	return getString(c, ctxSessionID)
}

func GetUserID(c *gin.Context) (string, bool) {
	return getString(c, ctxUserID)
}

// MustGetSessionID gets the session ID from context or panics
func MustGetSessionID(c *gin.Context) string {
	sid, exists := GetSessionID(c)
	if !exists {
		panic("session_id not found in context")
	}
	return sid
}

// GetRole gets the user role from context
func GetRole(c *gin.Context) auth.Role {
	v, exists := c.Get(ctxRole)
	if !exists {
		return ""
	}
	role, _ := v.(auth.Role)
	return role
}

// GetRequestID returns the id assigned by LoggingMiddleware
func GetRequestID(c *gin.Context) string {
	id, _ := getString(c, ctxRequestID)
	return id
}

func getString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
