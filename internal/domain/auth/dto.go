// internal/domain/auth/dto.go
package auth

import "time"

// SignInRequest for credential sign-in
type SignInRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

// UserInfo is the identity part of the session visible to the browser
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// SessionResponse is the session probe body. An empty object means no session.
type SessionResponse struct {
	User    *UserInfo  `json:"user,omitempty"`
	Expires *time.Time `json:"expires,omitempty"`
	Error   ErrorTag   `json:"error,omitempty"`
}

// RefreshResponse is returned by the refresh endpoint; Exp is the new session
// expiry in seconds since the epoch and IssuedAt the moment of the exchange.
type RefreshResponse struct {
	AccessToken string    `json:"accessToken"`
	Exp         int64     `json:"exp"`
	IssuedAt    time.Time `json:"iat"`
}

// SessionUpdateRequest writes a refresh result into the caller's session.
// IssuedAt must be echoed from the refresh response.
type SessionUpdateRequest struct {
	AccessToken string    `json:"accessToken" binding:"required"`
	Exp         int64     `json:"exp" binding:"required"`
	IssuedAt    time.Time `json:"iat"`
}

// CSRFResponse carries a freshly issued anti-forgery token
type CSRFResponse struct {
	Token string `json:"csrfToken"`
}

// NewUserInfo projects a session onto its browser-visible identity.
func NewUserInfo(s *Session) *UserInfo {
	return &UserInfo{
		ID:    s.UserID,
		Name:  s.Name,
		Email: s.Email,
		Role:  s.Role,
	}
}
