package monitor

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"frontdesk-gateway/internal/domain/auth"
	xerrors "frontdesk-gateway/internal/pkg/errors"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSessions struct {
	mu       sync.Mutex
	live     bool
	probes   int
	signOuts []auth.SignOutReason
}

func (f *fakeSessions) CurrentSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
	if !f.live {
		return nil, xerrors.ErrNotFound
	}
	return &auth.Session{ID: sessionID, UserID: "u1"}, nil
}

func (f *fakeSessions) SignOut(ctx context.Context, sessionID string, reason auth.SignOutReason) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	first := f.live || len(f.signOuts) == 0
	f.live = false
	f.signOuts = append(f.signOuts, reason)
	return first, nil
}

func (f *fakeSessions) setLive(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = v
}

func (f *fakeSessions) reasons() []auth.SignOutReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]auth.SignOutReason(nil), f.signOuts...)
}

type noticeSink struct {
	mu      sync.Mutex
	notices []auth.Notice
}

func (s *noticeSink) add(n auth.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

func (s *noticeSink) all() []auth.Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auth.Notice(nil), s.notices...)
}

func TestProbeWithoutUserSignsOutOnce(t *testing.T) {
	sessions := &fakeSessions{live: false}
	sink := &noticeSink{}
	m := New(sessions, Config{ProbeInterval: 10 * time.Millisecond, IdleTimeout: time.Hour}, zap.NewNop())

	w := m.Watch(context.Background(), "sid", sink.add)
	<-w.Done()
	time.Sleep(30 * time.Millisecond)

	require.Equal(t, []auth.SignOutReason{auth.ReasonExpired}, sessions.reasons())
	notices := sink.all()
	require.Len(t, notices, 1)
	require.Equal(t, auth.NoticeExpired, notices[0].Kind)
	require.Equal(t, "/login", notices[0].Redirect)
	require.Contains(t, strings.ToLower(notices[0].Message), "expired")
}

func TestRevocationDetectedByLaterProbe(t *testing.T) {
	sessions := &fakeSessions{live: true}
	sink := &noticeSink{}
	m := New(sessions, Config{ProbeInterval: 20 * time.Millisecond, IdleTimeout: time.Hour}, zap.NewNop())

	w := m.Watch(context.Background(), "sid", sink.add)
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, sink.all())

	sessions.setLive(false)
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("watch did not end after revocation")
	}

	require.Equal(t, []auth.SignOutReason{auth.ReasonExpired}, sessions.reasons())
	require.Len(t, sink.all(), 1)
}

func TestInactivitySignsOut(t *testing.T) {
	sessions := &fakeSessions{live: true}
	sink := &noticeSink{}
	m := New(sessions, Config{ProbeInterval: time.Hour, IdleTimeout: 40 * time.Millisecond}, zap.NewNop())

	w := m.Watch(context.Background(), "sid", sink.add)
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("watch did not end after inactivity")
	}

	require.Equal(t, []auth.SignOutReason{auth.ReasonInactive}, sessions.reasons())
	notices := sink.all()
	require.Len(t, notices, 1)
	require.Equal(t, auth.NoticeInactive, notices[0].Kind)
	require.Equal(t, auth.MessageInactive, notices[0].Message)
	require.NotEqual(t, auth.MessageExpired, notices[0].Message)
	require.Equal(t, "/login", notices[0].Redirect)
}

func TestActivityKeepsSessionAlive(t *testing.T) {
	sessions := &fakeSessions{live: true}
	sink := &noticeSink{}
	m := New(sessions, Config{ProbeInterval: time.Hour, IdleTimeout: 80 * time.Millisecond}, zap.NewNop())

	w := m.Watch(context.Background(), "sid", sink.add)
	for i := 0; i < 10; i++ {
		time.Sleep(20 * time.Millisecond)
		w.Touch()
	}
	require.Empty(t, sink.all())

	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("watch did not end once activity stopped")
	}
	require.Equal(t, []auth.SignOutReason{auth.ReasonInactive}, sessions.reasons())
}

func TestStopCancelsTimers(t *testing.T) {
	sessions := &fakeSessions{live: true}
	sink := &noticeSink{}
	m := New(sessions, Config{ProbeInterval: 10 * time.Millisecond, IdleTimeout: 30 * time.Millisecond}, zap.NewNop())

	w := m.Watch(context.Background(), "sid", sink.add)
	w.Stop()
	time.Sleep(60 * time.Millisecond)

	require.Empty(t, sink.all())
	require.Empty(t, sessions.reasons())
}

func TestJitterStaysWithinTenPercent(t *testing.T) {
	m := New(&fakeSessions{}, Config{}, zap.NewNop())
	for i := 0; i < 100; i++ {
		d := m.jittered(time.Minute)
		require.GreaterOrEqual(t, d, time.Minute)
		require.Less(t, d, time.Minute+6*time.Second)
	}
}
