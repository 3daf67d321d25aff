// internal/service/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"frontdesk-gateway/internal/backend"
	"frontdesk-gateway/internal/domain/auth"
	xerrors "frontdesk-gateway/internal/pkg/errors"
	"frontdesk-gateway/internal/pkg/jwt"
	"frontdesk-gateway/internal/pkg/session"
	"frontdesk-gateway/internal/service/scheduler"

	"go.uber.org/zap"
)

// Backend is the part of the business API the session layer needs.
type Backend interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
	RefreshToken(ctx context.Context, oldToken string) (string, error)
}

// RefreshScheduler arranges token refreshes ahead of expiry.
type RefreshScheduler interface {
	Schedule(accessToken, userID string) scheduler.Outcome
	Cancel(userID string)
}

type Notifier interface {
	Notify(userID string, notice auth.Notice)
}

// TokenForgetter drops the anti-forgery token bound to a session.
type TokenForgetter interface {
	Forget(ctx context.Context, sessionID string) error
}

// SignInResult is a new session plus the browser token that carries it.
type SignInResult struct {
	Session      *auth.Session
	SessionToken string
}

type AuthService struct {
	backend        Backend
	sessionManager *session.Manager
	jwtManager     *jwt.Manager
	rateLimiter    *session.RateLimiter
	scheduler      RefreshScheduler
	csrf           TokenForgetter
	notifier       Notifier
	maxAge         time.Duration
	logger         *zap.Logger
	now            func() time.Time
}

func NewAuthService(
	backend Backend,
	sessionManager *session.Manager,
	jwtManager *jwt.Manager,
	rateLimiter *session.RateLimiter,
	notifier Notifier,
	maxAge time.Duration,
	logger *zap.Logger,
) *AuthService {
	if maxAge <= 0 {
		maxAge = 24 * time.Hour
	}
	return &AuthService{
		backend:        backend,
		sessionManager: sessionManager,
		jwtManager:     jwtManager,
		rateLimiter:    rateLimiter,
		notifier:       notifier,
		maxAge:         maxAge,
		logger:         logger,
		now:            time.Now,
	}
}

// AttachScheduler wires the refresh scheduler, which itself depends on this
// service.
func (s *AuthService) AttachScheduler(sch RefreshScheduler) {
	s.scheduler = sch
}

// AttachCSRF wires the anti-forgery token store so every sign-out path drops
// the session's token.
func (s *AuthService) AttachCSRF(store TokenForgetter) {
	s.csrf = store
}

// ========== Sign-in / Sign-out ==========

// SignIn authenticates against the backend and opens a session
func (s *AuthService) SignIn(ctx context.Context, req *auth.SignInRequest) (*SignInResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if s.rateLimiter != nil {
		allowed, _, err := s.rateLimiter.CheckSignInAttempt(ctx, req.IPAddress, email)
		if err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
		if !allowed {
			return nil, xerrors.ErrRateLimited
		}
	}

	login, err := s.backend.Login(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}

	if s.rateLimiter != nil {
		if err := s.rateLimiter.ResetSignInAttempts(ctx, req.IPAddress, email); err != nil {
			s.logger.Warn("failed to reset sign-in attempts", zap.Error(err))
		}
	}

	now := s.now()
	sess := &auth.Session{
		ID:            session.NewID(),
		UserID:        login.User.ID,
		Name:          login.User.Name,
		Email:         login.User.Email,
		Role:          auth.ParseRole(login.User.Role),
		AccessToken:   login.Token,
		TokenIssuedAt: now,
		ExpiresAt:     now.Add(s.maxAge),
		IPAddress:     req.IPAddress,
		UserAgent:     req.UserAgent,
	}
	if exp, err := jwt.ExpiryOf(login.Token); err == nil {
		sess.AccessTokenExpiresAt = exp
	}

	if err := s.sessionManager.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.IssueSessionToken(sess)
	if err != nil {
		return nil, err
	}

	s.schedule(sess.AccessToken, sess.UserID)

	s.logger.Info("user signed in",
		zap.String("user_id", sess.UserID),
		zap.String("session_id", sess.ID),
		zap.String("role", string(sess.Role)),
	)

	return &SignInResult{Session: sess, SessionToken: token}, nil
}

// SignOut ends a session. Signing out a session that is already gone reports
// false without error.
func (s *AuthService) SignOut(ctx context.Context, sessionID string, reason auth.SignOutReason) (bool, error) {
	sess, err := s.sessionManager.GetSession(ctx, sessionID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	deleted, err := s.sessionManager.DeleteSession(ctx, sessionID, reason)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if s.csrf != nil {
		if err := s.csrf.Forget(ctx, sessionID); err != nil {
			s.logger.Warn("failed to drop csrf token", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	// Another session of the same user keeps its refresh timer.
	if _, err := s.sessionManager.CurrentSessionID(ctx, sess.UserID); errors.Is(err, xerrors.ErrNotFound) && s.scheduler != nil {
		s.scheduler.Cancel(sess.UserID)
	}

	s.logger.Info("session signed out",
		zap.String("user_id", sess.UserID),
		zap.String("session_id", sessionID),
		zap.String("reason", string(reason)),
	)
	return true, nil
}

// SignOutUser ends the user's current session.
func (s *AuthService) SignOutUser(ctx context.Context, userID string, reason auth.SignOutReason) (bool, error) {
	sid, err := s.sessionManager.CurrentSessionID(ctx, userID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.SignOut(ctx, sid, reason)
}

// ========== Session access ==========

// CurrentSession returns the live session, tagged TokenExpired when the
// backend token needs a refresh. A missing or expired session is ErrNotFound.
func (s *AuthService) CurrentSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	sess, err := s.sessionManager.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if sess.Expired(now) {
		return nil, xerrors.ErrNotFound
	}
	if sess.Error == auth.ErrorNone && sess.NeedsRefresh(now) {
		sess.Error = auth.ErrorTokenExpired
	}
	return sess, nil
}

// Authenticate verifies a browser session token locally.
func (s *AuthService) Authenticate(token string) (*jwt.Claims, error) {
	return s.jwtManager.Verifier.Verify(token)
}

// IssueSessionToken signs the browser token for sess.
func (s *AuthService) IssueSessionToken(sess *auth.Session) (string, error) {
	token, err := s.jwtManager.Generator.Generate(sess)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}

// ========== Token refresh ==========

// Exchange trades accessToken for a new backend token and computes the new
// session expiry. Nothing is written.
func (s *AuthService) Exchange(ctx context.Context, accessToken string) (*session.RefreshResult, error) {
	if accessToken == "" {
		return nil, xerrors.AuthError("no valid token to refresh")
	}

	newToken, err := s.backend.RefreshToken(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res := &session.RefreshResult{
		AccessToken: newToken,
		ExpiresAt:   now.Add(s.maxAge),
		IssuedAt:    now,
	}
	if exp, err := jwt.ExpiryOf(newToken); err == nil {
		res.AccessTokenExpiresAt = exp
	}
	return res, nil
}

// RefreshSession exchanges the backend token held by the given session.
func (s *AuthService) RefreshSession(ctx context.Context, sessionID string) (*session.RefreshResult, error) {
	sess, err := s.sessionManager.GetSession(ctx, sessionID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.AuthError("no valid token to refresh")
	}
	if err != nil {
		return nil, err
	}
	return s.Exchange(ctx, sess.AccessToken)
}

// ApplyRefresh stores a refresh result, re-arms the refresh timer and tells
// the user's open pages.
func (s *AuthService) ApplyRefresh(ctx context.Context, sessionID string, res *session.RefreshResult) (*auth.Session, error) {
	sess, err := s.sessionManager.ApplyRefresh(ctx, sessionID, *res)
	if err != nil {
		return nil, err
	}

	s.schedule(sess.AccessToken, sess.UserID)
	s.notify(sess.UserID, auth.RefreshedNotice())
	return sess, nil
}

// UpdateSessionToken writes a token the browser obtained from the refresh
// endpoint. exp is the session expiry in seconds and is capped at the maximum
// session age. issuedAt is the exchange time the refresh endpoint reported; a
// token stored since then wins.
func (s *AuthService) UpdateSessionToken(ctx context.Context, sessionID, accessToken string, exp int64, issuedAt time.Time) (*auth.Session, error) {
	if accessToken == "" {
		return nil, xerrors.AuthError("no valid token to refresh")
	}

	now := s.now()
	expiresAt := time.Unix(exp, 0)
	if limit := now.Add(s.maxAge); expiresAt.After(limit) {
		expiresAt = limit
	}
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: session expiry is in the past", xerrors.ErrInvalidInput)
	}
	if issuedAt.IsZero() || issuedAt.After(now) {
		return nil, fmt.Errorf("%w: token issue time is missing or in the future", xerrors.ErrInvalidInput)
	}

	res := &session.RefreshResult{
		AccessToken: accessToken,
		ExpiresAt:   expiresAt,
		IssuedAt:    issuedAt,
	}
	if tokenExp, err := jwt.ExpiryOf(accessToken); err == nil {
		res.AccessTokenExpiresAt = tokenExp
	}
	return s.ApplyRefresh(ctx, sessionID, res)
}

// RefreshUser refreshes the user's current session on behalf of the
// scheduler and returns the token now stored.
func (s *AuthService) RefreshUser(ctx context.Context, userID string) (string, error) {
	sid, err := s.sessionManager.CurrentSessionID(ctx, userID)
	if errors.Is(err, xerrors.ErrNotFound) {
		return "", xerrors.ErrSessionExpired
	}
	if err != nil {
		return "", err
	}

	res, err := s.RefreshSession(ctx, sid)
	if err != nil {
		return "", err
	}

	sess, err := s.sessionManager.ApplyRefresh(ctx, sid, *res)
	switch {
	case errors.Is(err, xerrors.ErrStaleWrite):
		// A newer token landed first; keep it.
		current, err := s.sessionManager.GetSession(ctx, sid)
		if err != nil {
			return "", err
		}
		return current.AccessToken, nil
	case errors.Is(err, xerrors.ErrNotFound):
		return "", xerrors.ErrSessionExpired
	case err != nil:
		return "", err
	}

	s.notify(userID, auth.RefreshedNotice())
	return sess.AccessToken, nil
}

// MarkRefreshFailed tags the user's current session RefreshFailed.
func (s *AuthService) MarkRefreshFailed(ctx context.Context, userID string) error {
	sid, err := s.sessionManager.CurrentSessionID(ctx, userID)
	if err != nil {
		return err
	}
	return s.sessionManager.MarkError(ctx, sid, auth.ErrorRefreshFailed)
}

func (s *AuthService) schedule(accessToken, userID string) {
	if s.scheduler == nil {
		return
	}
	outcome := s.scheduler.Schedule(accessToken, userID)
	s.logger.Debug("token refresh scheduled",
		zap.String("user_id", userID),
		zap.String("outcome", string(outcome)),
	)
}

func (s *AuthService) notify(userID string, notice auth.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(userID, notice)
	}
}
