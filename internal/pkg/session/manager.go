// internal/pkg/session/manager.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"frontdesk-gateway/internal/domain/auth"
	xerrors "frontdesk-gateway/internal/pkg/errors"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const maxUpdateRetries = 5

// deletes the user index only while it still points at the given session
var delIfEqual = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Manager is the single writer of session records. Every write bumps the
// record version inside a WATCH transaction, so concurrent writers never
// interleave a read-modify-write.
type Manager struct {
	client   *redis.Client
	recorder Recorder
	logger   *zap.Logger
	now      func() time.Time
}

func NewManager(client *redis.Client, recorder Recorder, logger *zap.Logger) *Manager {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Manager{
		client:   client,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// NewID returns a fresh, sortable session id.
func NewID() string {
	return ulid.Make().String()
}

// CreateSession stores a new session and makes it the user's current one.
func (m *Manager) CreateSession(ctx context.Context, s *auth.Session) error {
	now := m.now()
	if s.ID == "" {
		s.ID = NewID()
	}
	if s.TokenIssuedAt.IsZero() {
		s.TokenIssuedAt = now
	}
	s.Version = 1
	s.CreatedAt = now
	s.UpdatedAt = now
	s.ClampTokenExpiry()

	ttl := s.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, m.sessionKey(s.ID), data, ttl)
		pipe.Set(ctx, m.userKey(s.UserID), s.ID, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session in redis: %w", err)
	}

	if err := m.recorder.RecordCreated(ctx, s); err != nil {
		m.logger.Warn("failed to record session creation", zap.String("session_id", s.ID), zap.Error(err))
	}
	return nil
}

// GetSession returns the session or xerrors.ErrNotFound.
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	data, err := m.client.Get(ctx, m.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var s auth.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

// CurrentSessionID returns the id of the user's most recent session.
func (m *Manager) CurrentSessionID(ctx context.Context, userID string) (string, error) {
	sid, err := m.client.Get(ctx, m.userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", xerrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read user session index: %w", err)
	}
	return sid, nil
}

// UpdateSession applies mutate to the stored record. A mutate error aborts the
// write and is returned as is. A deleted session is never resurrected.
func (m *Manager) UpdateSession(ctx context.Context, sessionID string, mutate func(*auth.Session) error) (*auth.Session, error) {
	key := m.sessionKey(sessionID)
	var updated *auth.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return xerrors.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read session: %w", err)
		}

		var s auth.Session
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to unmarshal session: %w", err)
		}

		if err := mutate(&s); err != nil {
			return err
		}

		now := m.now()
		s.Version++
		s.UpdatedAt = now
		s.ClampTokenExpiry()

		ttl := s.ExpiresAt.Sub(now)
		if ttl <= 0 {
			return xerrors.ErrSessionExpired
		}

		out, err := json.Marshal(&s)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		current, _ := tx.Get(ctx, m.userKey(s.UserID)).Result()

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, ttl)
			if current == s.ID {
				pipe.Expire(ctx, m.userKey(s.UserID), ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}

		updated = &s
		return nil
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := m.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}

	return nil, fmt.Errorf("session %s: too many concurrent writes", sessionID)
}

// ApplyRefresh writes a token exchange result. Results older than the token
// already stored are rejected with xerrors.ErrStaleWrite.
func (m *Manager) ApplyRefresh(ctx context.Context, sessionID string, res RefreshResult) (*auth.Session, error) {
	s, err := m.UpdateSession(ctx, sessionID, func(s *auth.Session) error {
		if !res.IssuedAt.After(s.TokenIssuedAt) {
			return xerrors.ErrStaleWrite
		}
		s.AccessToken = res.AccessToken
		s.AccessTokenExpiresAt = res.AccessTokenExpiresAt
		s.TokenIssuedAt = res.IssuedAt
		s.ExpiresAt = res.ExpiresAt
		s.Error = auth.ErrorNone
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := m.recorder.RecordRefreshed(ctx, s); err != nil {
		m.logger.Warn("failed to record session refresh", zap.String("session_id", sessionID), zap.Error(err))
	}
	return s, nil
}

// MarkError tags the session without touching its credentials.
func (m *Manager) MarkError(ctx context.Context, sessionID string, tag auth.ErrorTag) error {
	_, err := m.UpdateSession(ctx, sessionID, func(s *auth.Session) error {
		s.Error = tag
		return nil
	})
	return err
}

// DeleteSession removes the session. It reports false, without error, when the
// session was already gone.
func (m *Manager) DeleteSession(ctx context.Context, sessionID string, reason auth.SignOutReason) (bool, error) {
	s, err := m.GetSession(ctx, sessionID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	n, err := m.client.Del(ctx, m.sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := delIfEqual.Run(ctx, m.client, []string{m.userKey(s.UserID)}, sessionID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		m.logger.Warn("failed to clear user session index", zap.String("user_id", s.UserID), zap.Error(err))
	}

	if err := m.recorder.RecordRevoked(ctx, sessionID, reason); err != nil {
		m.logger.Warn("failed to record session revocation", zap.String("session_id", sessionID), zap.Error(err))
	}
	return true, nil
}

// Helper functions
func (m *Manager) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (m *Manager) userKey(userID string) string {
	return fmt.Sprintf("session_user:%s", userID)
}
