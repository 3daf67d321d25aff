// Package csrf issues and compares anti-forgery form tokens.
//
// Holder reproduces a plain compare against the most recently stored value. It
// detects stale or duplicate form submissions; it is not a defence against
// cross-site request forgery. Binding tokens to a server-side session through
// a Store is what gives the check teeth.
package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"sync"
)

// HeaderName carries the token on state-changing requests.
const HeaderName = "X-CSRF-Token"

// Generate returns a fresh random token.
func Generate() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Holder keeps the single most recently stored token.
type Holder struct {
	mu    sync.RWMutex
	token string
}

// Store replaces the held token.
func (h *Holder) Store(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

// Validate reports whether candidate equals the held token.
func (h *Holder) Validate(candidate string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return equal(h.token, candidate)
}

func equal(held, candidate string) bool {
	if held == "" || candidate == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(held), []byte(candidate)) == 1
}
