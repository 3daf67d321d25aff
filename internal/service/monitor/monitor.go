// Package monitor watches a live browser session for silent revocation and
// for inactivity.
package monitor

import (
	"context"
	"math/rand/v2"
	"time"

	"frontdesk-gateway/internal/domain/auth"

	"go.uber.org/zap"
)

// Sessions is what a watch probes and signs out.
type Sessions interface {
	CurrentSession(ctx context.Context, sessionID string) (*auth.Session, error)
	SignOut(ctx context.Context, sessionID string, reason auth.SignOutReason) (bool, error)
}

type Config struct {
	ProbeInterval time.Duration
	IdleTimeout   time.Duration
	// Timeout bounds each probe and the sign-out call.
	Timeout time.Duration
}

type Monitor struct {
	sessions Sessions
	cfg      Config
	logger   *zap.Logger
}

func New(sessions Sessions, cfg Config, logger *zap.Logger) *Monitor {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 5 * time.Minute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Monitor{sessions: sessions, cfg: cfg, logger: logger}
}

// Watch is one running watchdog. It ends on sign-out or when Stop is called.
type Watch struct {
	activity chan struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// Watch starts watching sessionID. onSignOut receives the notice for the
// single forced sign-out, if one happens.
func (m *Monitor) Watch(ctx context.Context, sessionID string, onSignOut func(auth.Notice)) *Watch {
	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{
		activity: make(chan struct{}, 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go m.run(ctx, w, sessionID, onSignOut)
	return w
}

// Touch resets the inactivity window.
func (w *Watch) Touch() {
	select {
	case w.activity <- struct{}{}:
	default:
	}
}

// Stop ends the watch and waits for it to exit.
func (w *Watch) Stop() {
	w.cancel()
	<-w.done
}

func (w *Watch) Done() <-chan struct{} {
	return w.done
}

func (m *Monitor) run(ctx context.Context, w *Watch, sessionID string, onSignOut func(auth.Notice)) {
	defer close(w.done)
	defer w.cancel()

	log := m.logger.With(zap.String("session_id", sessionID))

	if !m.probe(ctx, sessionID, log) {
		m.signOut(ctx, sessionID, auth.ReasonExpired, auth.ExpiredNotice(), onSignOut, log)
		return
	}

	probe := time.NewTimer(m.jittered(m.cfg.ProbeInterval))
	defer probe.Stop()
	idle := time.NewTimer(m.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.activity:
			idle.Reset(m.cfg.IdleTimeout)

		case <-probe.C:
			if !m.probe(ctx, sessionID, log) {
				m.signOut(ctx, sessionID, auth.ReasonExpired, auth.ExpiredNotice(), onSignOut, log)
				return
			}
			probe.Reset(m.jittered(m.cfg.ProbeInterval))

		case <-idle.C:
			m.signOut(ctx, sessionID, auth.ReasonInactive, auth.InactiveNotice(), onSignOut, log)
			return
		}
	}
}

func (m *Monitor) probe(ctx context.Context, sessionID string, log *zap.Logger) bool {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	sess, err := m.sessions.CurrentSession(ctx, sessionID)
	if err != nil {
		if ctx.Err() == nil {
			log.Info("session probe found no active user", zap.Error(err))
		}
		return false
	}
	return sess != nil && sess.UserID != ""
}

func (m *Monitor) signOut(ctx context.Context, sessionID string, reason auth.SignOutReason, notice auth.Notice, onSignOut func(auth.Notice), log *zap.Logger) {
	// A watch stopped while probing is not a sign-out.
	if ctx.Err() != nil {
		return
	}

	signCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.cfg.Timeout)
	defer cancel()

	if _, err := m.sessions.SignOut(signCtx, sessionID, reason); err != nil {
		log.Error("forced sign-out failed", zap.Error(err))
	}
	log.Info("session signed out by monitor", zap.String("reason", string(reason)))

	if onSignOut != nil {
		onSignOut(notice)
	}
}

// jittered spreads probes by up to a tenth of the interval.
func (m *Monitor) jittered(d time.Duration) time.Duration {
	spread := int64(d / 10)
	if spread <= 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(spread))
}
