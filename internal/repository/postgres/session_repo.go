// internal/repository/postgres/session_repo.go
package postgres

import (
	"context"
	"fmt"

	"frontdesk-gateway/internal/domain/auth"
	"frontdesk-gateway/internal/pkg/session"

	"github.com/jackc/pgx/v5"
)

var sessionSchema = []string{
	`CREATE TABLE IF NOT EXISTS frontend_sessions (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		email            TEXT NOT NULL,
		role             TEXT NOT NULL,
		ip_address       TEXT,
		user_agent       TEXT,
		created_at       TIMESTAMPTZ NOT NULL,
		expires_at       TIMESTAMPTZ NOT NULL,
		last_refreshed_at TIMESTAMPTZ,
		refresh_count    INTEGER NOT NULL DEFAULT 0,
		revoked_at       TIMESTAMPTZ,
		revoke_reason    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_frontend_sessions_user ON frontend_sessions (user_id, created_at DESC)`,
}

var _ session.Recorder = (*SessionRepository)(nil)

// SessionRepository keeps the audit trail of browser sessions. It never holds
// credentials.
type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// EnsureSchema creates the audit table when missing.
func (r *SessionRepository) EnsureSchema(ctx context.Context) error {
	return r.db.WithTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		for _, stmt := range sessionSchema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply session schema: %w", err)
			}
		}
		return nil
	})
}

func (r *SessionRepository) RecordCreated(ctx context.Context, s *auth.Session) error {
	query := `
		INSERT INTO frontend_sessions (id, user_id, email, role, ip_address, user_agent, created_at, expires_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.Pool().Exec(ctx, query,
		s.ID, s.UserID, s.Email, string(s.Role), s.IPAddress, s.UserAgent, s.CreatedAt, s.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

func (r *SessionRepository) RecordRefreshed(ctx context.Context, s *auth.Session) error {
	query := `
		UPDATE frontend_sessions
		SET expires_at = $2, last_refreshed_at = $3, refresh_count = refresh_count + 1
		WHERE id = $1 AND revoked_at IS NULL
	`
	_, err := r.db.Pool().Exec(ctx, query, s.ID, s.ExpiresAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to record session refresh: %w", err)
	}
	return nil
}

func (r *SessionRepository) RecordRevoked(ctx context.Context, sessionID string, reason auth.SignOutReason) error {
	query := `
		UPDATE frontend_sessions
		SET revoked_at = NOW(), revoke_reason = $2
		WHERE id = $1 AND revoked_at IS NULL
	`
	_, err := r.db.Pool().Exec(ctx, query, sessionID, string(reason))
	if err != nil {
		return fmt.Errorf("failed to record session revocation: %w", err)
	}
	return nil
}
