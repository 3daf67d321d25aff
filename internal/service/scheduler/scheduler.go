// Package scheduler refreshes backend access tokens ahead of their expiry.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"frontdesk-gateway/internal/backend"
	"frontdesk-gateway/internal/domain/auth"
	xerrors "frontdesk-gateway/internal/pkg/errors"
	"frontdesk-gateway/internal/pkg/jwt"

	"go.uber.org/zap"
)

// Outcome describes what Schedule did with a token.
type Outcome string

const (
	OutcomeScheduled    Outcome = "scheduled"
	OutcomeRefreshing   Outcome = "refreshing"
	OutcomeBlocked      Outcome = "blocked"
	OutcomeInvalidToken Outcome = "invalid_token"
)

// Sessions is the session layer the scheduler drives.
type Sessions interface {
	// RefreshUser exchanges the user's current backend token, stores the
	// result and returns the new token.
	RefreshUser(ctx context.Context, userID string) (string, error)
	MarkRefreshFailed(ctx context.Context, userID string) error
	SignOutUser(ctx context.Context, userID string, reason auth.SignOutReason) (bool, error)
}

type Notifier interface {
	Notify(userID string, notice auth.Notice)
}

type Config struct {
	// Lead is how long before expiry a refresh is attempted. Tokens closer
	// than Lead to expiry are refreshed immediately.
	Lead time.Duration
	// Cooldown holds the per-user re-entrancy flag and spaces the single retry.
	Cooldown time.Duration
	// Timeout bounds every refresh call.
	Timeout time.Duration
}

type Scheduler struct {
	registry *Registry
	sessions Sessions
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time

	mu     sync.Mutex
	guards map[string]*time.Timer
}

func New(registry *Registry, sessions Sessions, notifier Notifier, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Scheduler{
		registry: registry,
		sessions: sessions,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		guards:   make(map[string]*time.Timer),
	}
}

// Schedule arranges the next refresh for userID from the expiry embedded in
// accessToken. It never fails; the outcome is informational.
func (s *Scheduler) Schedule(accessToken, userID string) Outcome {
	exp, err := jwt.ExpiryOf(accessToken)
	if err != nil {
		s.logger.Warn("cannot schedule token refresh", zap.String("user_id", userID), zap.Error(err))
		return OutcomeInvalidToken
	}

	remaining := exp.Sub(s.now())
	if remaining > s.cfg.Lead {
		s.arm(userID, remaining-s.cfg.Lead, 0)
		return OutcomeScheduled
	}

	// a blocked call leaves any pending retry armed
	if !s.acquire(userID) {
		return OutcomeBlocked
	}
	s.registry.Cancel(userID)

	s.notifier.Notify(userID, auth.ExpiringNotice())
	go s.fire(userID, 0)
	return OutcomeRefreshing
}

// Cancel drops the user's pending refresh.
func (s *Scheduler) Cancel(userID string) {
	s.registry.Cancel(userID)
}

// ClearAll cancels every pending refresh and releases every re-entrancy flag.
func (s *Scheduler) ClearAll() int {
	s.mu.Lock()
	for userID, t := range s.guards {
		t.Stop()
		delete(s.guards, userID)
	}
	s.mu.Unlock()

	return s.registry.ClearAll()
}

func (s *Scheduler) Pending() int {
	return s.registry.Len()
}

// acquire takes the user's re-entrancy flag. The flag releases itself after
// the cooldown whatever the refresh outcome.
func (s *Scheduler) acquire(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.guards[userID]; held {
		return false
	}

	var t *time.Timer
	t = time.AfterFunc(s.cfg.Cooldown, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.guards[userID] == t {
			delete(s.guards, userID)
		}
	})
	s.guards[userID] = t
	return true
}

func (s *Scheduler) arm(userID string, delay time.Duration, attempt int) {
	s.registry.Set(userID, delay, func() {
		s.fire(userID, attempt)
	})
}

func (s *Scheduler) fire(userID string, attempt int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	token, err := s.sessions.RefreshUser(ctx, userID)
	if err == nil {
		s.rearm(token, userID)
		return
	}

	log := s.logger.With(zap.String("user_id", userID), zap.Int("attempt", attempt), zap.Error(err))

	switch {
	case errors.Is(err, xerrors.ErrNotFound), errors.Is(err, xerrors.ErrSessionExpired):
		log.Info("session gone before token refresh")
		s.forceSignOut(userID, auth.ReasonExpired)
	case backend.IsRejected(err), xerrors.IsKind(err, xerrors.KindAuth):
		log.Warn("backend rejected token refresh")
		s.forceSignOut(userID, auth.ReasonRefreshFailed)
	case !backend.IsTransient(err):
		log.Error("token refresh failed permanently")
		s.forceSignOut(userID, auth.ReasonRefreshFailed)
	case attempt > 0:
		log.Error("token refresh failed twice")
		s.forceSignOut(userID, auth.ReasonRefreshFailed)
	default:
		log.Warn("token refresh failed, retrying after cooldown")
		markCtx, markCancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
		if err := s.sessions.MarkRefreshFailed(markCtx, userID); err != nil {
			s.logger.Warn("failed to tag session", zap.String("user_id", userID), zap.Error(err))
		}
		markCancel()
		s.arm(userID, s.cfg.Cooldown, attempt+1)
	}
}

// rearm schedules the refresh following a successful one.
func (s *Scheduler) rearm(token, userID string) {
	exp, err := jwt.ExpiryOf(token)
	if err != nil {
		s.logger.Warn("refreshed token has no readable expiry", zap.String("user_id", userID), zap.Error(err))
		return
	}

	delay := exp.Sub(s.now()) - s.cfg.Lead
	if delay < s.cfg.Cooldown {
		s.logger.Warn("backend token lifetime is shorter than the refresh lead",
			zap.String("user_id", userID),
			zap.Duration("lead", s.cfg.Lead),
		)
		delay = s.cfg.Cooldown
	}
	s.arm(userID, delay, 0)
}

func (s *Scheduler) forceSignOut(userID string, reason auth.SignOutReason) {
	s.registry.Cancel(userID)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	if _, err := s.sessions.SignOutUser(ctx, userID, reason); err != nil {
		s.logger.Error("forced sign-out failed", zap.String("user_id", userID), zap.Error(err))
	}
	s.notifier.Notify(userID, auth.ExpiredNotice())
}
