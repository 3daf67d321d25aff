// internal/pkg/jwt/claims.go
package jwt

import (
	"frontdesk-gateway/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the browser session token claims
type Claims struct {
	SessionID string    `json:"sid"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      auth.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserID returns the subject the session was issued for
func (c *Claims) UserID() string {
	return c.Subject
}

// IsAdmin checks if the session belongs to an admin
func (c *Claims) IsAdmin() bool {
	return c.Role == auth.RoleAdmin
}

// HasRole checks if the claims carry one of the given roles
func (c *Claims) HasRole(roles ...auth.Role) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}
