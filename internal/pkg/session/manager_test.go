package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"frontdesk-gateway/internal/domain/auth"
	xerrors "frontdesk-gateway/internal/pkg/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingRecorder struct {
	mu        sync.Mutex
	created   []string
	refreshed []string
	revoked   map[string]auth.SignOutReason
}

func (r *recordingRecorder) RecordCreated(_ context.Context, s *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, s.ID)
	return nil
}

func (r *recordingRecorder) RecordRefreshed(_ context.Context, s *auth.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, s.ID)
	return nil
}

func (r *recordingRecorder) RecordRevoked(_ context.Context, id string, reason auth.SignOutReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revoked == nil {
		r.revoked = map[string]auth.SignOutReason{}
	}
	r.revoked[id] = reason
	return errors.New("database unavailable")
}

func newMiniRedisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func newSession(userID string) *auth.Session {
	now := time.Now()
	return &auth.Session{
		UserID:               userID,
		Name:                 "Ada",
		Email:                "ada@example.com",
		Role:                 auth.RoleWorker,
		AccessToken:          "backend-token",
		AccessTokenExpiresAt: now.Add(15 * time.Minute),
		ExpiresAt:            now.Add(24 * time.Hour),
	}
}

func TestCreateAndGetSession(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	rec := &recordingRecorder{}
	m := NewManager(client, rec, zap.NewNop())
	ctx := context.Background()

	s := newSession("7")
	require.NoError(t, m.CreateSession(ctx, s))
	require.NotEmpty(t, s.ID)
	require.EqualValues(t, 1, s.Version)
	require.Equal(t, []string{s.ID}, rec.created)

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "backend-token", got.AccessToken)

	sid, err := m.CurrentSessionID(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, s.ID, sid)

	require.Greater(t, mr.TTL("session:"+s.ID), 23*time.Hour)

	mr.FastForward(25 * time.Hour)
	_, err = m.GetSession(ctx, s.ID)
	require.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestCreateSessionClampsTokenExpiry(t *testing.T) {
	_, client := newMiniRedisClient(t)
	m := NewManager(client, nil, zap.NewNop())

	s := newSession("7")
	s.AccessTokenExpiresAt = s.ExpiresAt.Add(time.Hour)
	require.NoError(t, m.CreateSession(context.Background(), s))
	require.Equal(t, s.ExpiresAt, s.AccessTokenExpiresAt)
}

func TestApplyRefreshRejectsStaleResult(t *testing.T) {
	_, client := newMiniRedisClient(t)
	rec := &recordingRecorder{}
	m := NewManager(client, rec, zap.NewNop())
	ctx := context.Background()

	s := newSession("9")
	require.NoError(t, m.CreateSession(ctx, s))

	newer := RefreshResult{
		AccessToken:          "fresh",
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
		ExpiresAt:            time.Now().Add(24 * time.Hour),
		IssuedAt:             s.TokenIssuedAt.Add(time.Second),
	}
	updated, err := m.ApplyRefresh(ctx, s.ID, newer)
	require.NoError(t, err)
	require.Equal(t, "fresh", updated.AccessToken)
	require.EqualValues(t, 2, updated.Version)
	require.Equal(t, []string{s.ID}, rec.refreshed)

	stale := newer
	stale.AccessToken = "stale"
	stale.IssuedAt = s.TokenIssuedAt
	_, err = m.ApplyRefresh(ctx, s.ID, stale)
	require.ErrorIs(t, err, xerrors.ErrStaleWrite)

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, "fresh", got.AccessToken)
	require.EqualValues(t, 2, got.Version)
}

func TestUpdateNeverResurrectsDeletedSession(t *testing.T) {
	_, client := newMiniRedisClient(t)
	m := NewManager(client, nil, zap.NewNop())
	ctx := context.Background()

	s := newSession("3")
	require.NoError(t, m.CreateSession(ctx, s))

	deleted, err := m.DeleteSession(ctx, s.ID, auth.ReasonUser)
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = m.ApplyRefresh(ctx, s.ID, RefreshResult{AccessToken: "late", IssuedAt: time.Now().Add(time.Minute), ExpiresAt: time.Now().Add(time.Hour)})
	require.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = m.GetSession(ctx, s.ID)
	require.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	_, client := newMiniRedisClient(t)
	rec := &recordingRecorder{}
	m := NewManager(client, rec, zap.NewNop())
	ctx := context.Background()

	s := newSession("5")
	require.NoError(t, m.CreateSession(ctx, s))

	deleted, err := m.DeleteSession(ctx, s.ID, auth.ReasonInactive)
	require.NoError(t, err, "recorder failures must not fail the delete")
	require.True(t, deleted)
	require.Equal(t, auth.ReasonInactive, rec.revoked[s.ID])

	deleted, err = m.DeleteSession(ctx, s.ID, auth.ReasonInactive)
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = m.CurrentSessionID(ctx, "5")
	require.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestDeleteOlderSessionKeepsCurrentIndex(t *testing.T) {
	_, client := newMiniRedisClient(t)
	m := NewManager(client, nil, zap.NewNop())
	ctx := context.Background()

	first := newSession("11")
	require.NoError(t, m.CreateSession(ctx, first))
	second := newSession("11")
	require.NoError(t, m.CreateSession(ctx, second))

	_, err := m.DeleteSession(ctx, first.ID, auth.ReasonUser)
	require.NoError(t, err)

	sid, err := m.CurrentSessionID(ctx, "11")
	require.NoError(t, err)
	require.Equal(t, second.ID, sid)
}

func TestMarkError(t *testing.T) {
	_, client := newMiniRedisClient(t)
	m := NewManager(client, nil, zap.NewNop())
	ctx := context.Background()

	s := newSession("12")
	require.NoError(t, m.CreateSession(ctx, s))
	require.NoError(t, m.MarkError(ctx, s.ID, auth.ErrorRefreshFailed))

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, auth.ErrorRefreshFailed, got.Error)
	require.Equal(t, "backend-token", got.AccessToken)
}

func TestConcurrentUpdatesAllLand(t *testing.T) {
	_, client := newMiniRedisClient(t)
	m := NewManager(client, nil, zap.NewNop())
	ctx := context.Background()

	s := newSession("13")
	require.NoError(t, m.CreateSession(ctx, s))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.UpdateSession(ctx, s.ID, func(*auth.Session) error { return nil })
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.GetSession(ctx, s.ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, got.Version)
}
