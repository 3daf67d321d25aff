// internal/pkg/jwt/generator.go
package jwt

import (
	"fmt"
	"time"

	"frontdesk-gateway/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
)

type Generator struct {
	key    []byte
	issuer string
}

func NewGenerator(key []byte, issuer string) *Generator {
	return &Generator{
		key:    key,
		issuer: issuer,
	}
}

// Generate signs a session token that expires together with the session
func (g *Generator) Generate(s *auth.Session) (string, error) {
	if len(g.key) == 0 {
		return "", fmt.Errorf("jwt generator has no signing key")
	}
	if s.ID == "" || s.UserID == "" {
		return "", fmt.Errorf("session id and user id are required")
	}

	now := time.Now()
	claims := &Claims{
		SessionID: s.ID,
		Name:      s.Name,
		Email:     s.Email,
		Role:      s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   s.UserID,
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        s.ID,
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(g.key)
}
