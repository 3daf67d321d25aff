// internal/pkg/session/types.go
package session

import (
	"context"
	"time"

	"frontdesk-gateway/internal/domain/auth"
)

// Recorder keeps a durable trail of session lifecycle events. Redis stays the
// source of truth; recorder failures are logged, never returned.
type Recorder interface {
	RecordCreated(ctx context.Context, s *auth.Session) error
	RecordRefreshed(ctx context.Context, s *auth.Session) error
	RecordRevoked(ctx context.Context, sessionID string, reason auth.SignOutReason) error
}

// NopRecorder is used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) RecordCreated(context.Context, *auth.Session) error { return nil }

func (NopRecorder) RecordRefreshed(context.Context, *auth.Session) error { return nil }

func (NopRecorder) RecordRevoked(context.Context, string, auth.SignOutReason) error { return nil }

// RefreshResult is a backend token exchange ready to be written into a session.
type RefreshResult struct {
	AccessToken          string
	AccessTokenExpiresAt time.Time
	ExpiresAt            time.Time
	IssuedAt             time.Time
}
