// internal/domain/auth/entity.go
package auth

import (
	"strings"
	"time"
)

// Role is the principal's role as issued by the backend.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleWorker Role = "WORKER"
)

// ParseRole normalizes a backend role string. Unknown roles fall back to WORKER.
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleWorker
	}
}

// ErrorTag marks a session whose backend credential is in trouble.
type ErrorTag string

const (
	ErrorNone                      ErrorTag = ""
	ErrorRefreshFailed             ErrorTag = "RefreshFailed"
	ErrorTokenExpired              ErrorTag = "TokenExpired"
	ErrorSessionExpiredForceLogout ErrorTag = "SessionExpiredForceLogout"
)

// Session is the authenticated principal for one browser context.
//
// AccessTokenExpiresAt never exceeds ExpiresAt. A session whose backend token
// has expired while ExpiresAt is still ahead needs a refresh; it is not invalid.
type Session struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	Name                 string    `json:"name"`
	Email                string    `json:"email"`
	Role                 Role      `json:"role"`
	AccessToken          string    `json:"access_token"`
	AccessTokenExpiresAt time.Time `json:"access_token_expires_at"`
	TokenIssuedAt        time.Time `json:"token_issued_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	Error                ErrorTag  `json:"error,omitempty"`
	Version              int64     `json:"version"`
	IPAddress            string    `json:"ip_address,omitempty"`
	UserAgent            string    `json:"user_agent,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Expired reports whether the session itself is over.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// NeedsRefresh reports whether the backend token is gone while the session lives.
func (s *Session) NeedsRefresh(now time.Time) bool {
	if s.Expired(now) {
		return false
	}
	return s.AccessToken == "" || !now.Before(s.AccessTokenExpiresAt)
}

// ClampTokenExpiry enforces AccessTokenExpiresAt <= ExpiresAt.
func (s *Session) ClampTokenExpiry() {
	if s.AccessTokenExpiresAt.IsZero() || s.AccessTokenExpiresAt.After(s.ExpiresAt) {
		s.AccessTokenExpiresAt = s.ExpiresAt
	}
}

// NoticeKind identifies a user-visible session notification.
type NoticeKind string

const (
	NoticeExpiring  NoticeKind = "session:expiring"
	NoticeExpired   NoticeKind = "session:expired"
	NoticeInactive  NoticeKind = "session:inactive"
	NoticeRefreshed NoticeKind = "session:refreshed"
)

// These texts must stay distinguishable from one another.
const (
	MessageExpiring  = "Your session is expiring, renewing it now."
	MessageExpired   = "Your session has expired. Please sign in again."
	MessageInactive  = "You were inactive too long and have been signed out automatically."
	MessageRefreshed = "Your session has been renewed."
)

// SignInPath is where forced sign-outs send the browser.
const SignInPath = "/login"

// Notice is pushed to every open browser context of a user.
type Notice struct {
	Kind     NoticeKind `json:"kind"`
	Message  string     `json:"message"`
	Reason   ErrorTag   `json:"reason,omitempty"`
	Redirect string     `json:"redirect,omitempty"`
}

func ExpiringNotice() Notice {
	return Notice{Kind: NoticeExpiring, Message: MessageExpiring}
}

func ExpiredNotice() Notice {
	return Notice{Kind: NoticeExpired, Message: MessageExpired, Reason: ErrorSessionExpiredForceLogout, Redirect: SignInPath}
}

func InactiveNotice() Notice {
	return Notice{Kind: NoticeInactive, Message: MessageInactive, Reason: ErrorSessionExpiredForceLogout, Redirect: SignInPath}
}

func RefreshedNotice() Notice {
	return Notice{Kind: NoticeRefreshed, Message: MessageRefreshed}
}

// SignOutReason is recorded with every revoked session.
type SignOutReason string

const (
	ReasonUser          SignOutReason = "user"
	ReasonInactive      SignOutReason = "inactive"
	ReasonExpired       SignOutReason = "expired"
	ReasonRefreshFailed SignOutReason = "refresh_failed"
)
