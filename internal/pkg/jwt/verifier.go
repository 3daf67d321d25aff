// internal/pkg/jwt/verifier.go
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Verifier struct {
	key    []byte
	issuer string
}

func NewVerifier(key []byte, issuer string) *Verifier {
	return &Verifier{
		key:    key,
		issuer: issuer,
	}
}

// Verify validates a session token locally and returns its claims
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if len(v.key) == 0 {
		return nil, fmt.Errorf("jwt verifier has no signing key")
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return v.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if claims.SessionID == "" || claims.Subject == "" {
		return nil, fmt.Errorf("token carries no session")
	}

	return claims, nil
}

// ExpiryOf reads the exp claim of a backend token without verifying it. The
// backend owns the signing key; the gateway only needs the timing.
func ExpiryOf(tokenString string) (time.Time, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return time.Time{}, fmt.Errorf("failed to read token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no exp claim")
	}
	return claims.ExpiresAt.Time, nil
}
