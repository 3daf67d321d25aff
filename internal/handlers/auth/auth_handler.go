// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"net/http"
	"time"

	"frontdesk-gateway/internal/domain/auth"
	"frontdesk-gateway/internal/middleware"
	"frontdesk-gateway/internal/pkg/csrf"
	xerrors "frontdesk-gateway/internal/pkg/errors"
	"frontdesk-gateway/internal/pkg/response"
	authUsecase "frontdesk-gateway/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// cookieSlack is how far the cookie expiry may lag the session before the
// session probe re-issues it.
const cookieSlack = time.Minute

type AuthHandler struct {
	authService *authUsecase.AuthService
	cookie      *middleware.SessionCookie
	csrfStore   csrf.Store
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, cookie *middleware.SessionCookie, csrfStore csrf.Store, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookie:      cookie,
		csrfStore:   csrfStore,
		logger:      logger,
	}
}

// ========== Sign-in / Sign-out ==========

// SignIn exchanges credentials for a session cookie
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req auth.SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.IPAddress = c.ClientIP()
	req.UserAgent = c.GetHeader("User-Agent")

	res, err := h.authService.SignIn(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("sign-in failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.Fail(c, err)
		return
	}

	h.cookie.Write(c, res.SessionToken, res.Session.ExpiresAt)
	response.Success(c, http.StatusOK, "signed in", sessionResponse(res.Session))
}

// SignOut ends the caller's session. It succeeds whether or not one exists.
func (h *AuthHandler) SignOut(c *gin.Context) {
	signedOut := false
	if sid, ok := middleware.GetSessionID(c); ok {
		var err error
		signedOut, err = h.authService.SignOut(c.Request.Context(), sid, auth.ReasonUser)
		if err != nil {
			h.logger.Error("sign-out failed", zap.String("session_id", sid), zap.Error(err))
			response.Fail(c, err)
			return
		}
	}

	h.cookie.Clear(c)
	response.Success(c, http.StatusOK, "signed out", gin.H{"signed_out": signedOut})
}

// ========== Session ==========

// GetSession is the session probe. No session answers an empty object.
func (h *AuthHandler) GetSession(c *gin.Context) {
	sid, ok := middleware.GetSessionID(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	sess, err := h.authService.CurrentSession(c.Request.Context(), sid)
	if errors.Is(err, xerrors.ErrNotFound) {
		h.cookie.Clear(c)
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	if err != nil {
		h.logger.Error("session probe failed", zap.String("session_id", sid), zap.Error(err))
		response.Fail(c, err)
		return
	}

	h.renewCookie(c, sess)
	c.JSON(http.StatusOK, sessionResponse(sess))
}

// UpdateSession writes a refresh result into the caller's session
func (h *AuthHandler) UpdateSession(c *gin.Context) {
	sid := middleware.MustGetSessionID(c)

	var req auth.SessionUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	sess, err := h.authService.UpdateSessionToken(c.Request.Context(), sid, req.AccessToken, req.Exp, req.IssuedAt)
	switch {
	case errors.Is(err, xerrors.ErrStaleWrite):
		response.Error(c, http.StatusConflict, "a newer token is already stored", nil)
		return
	case errors.Is(err, xerrors.ErrNotFound):
		h.cookie.Clear(c)
		response.Unauthorized(c, "session expired")
		return
	case err != nil:
		h.logger.Error("session update failed", zap.String("session_id", sid), zap.Error(err))
		response.Fail(c, err)
		return
	}

	h.renewCookie(c, sess)
	c.JSON(http.StatusOK, sessionResponse(sess))
}

// ========== Token refresh ==========

// Refresh exchanges the session's backend token for a new one. The session
// itself is left untouched; the caller writes the result back with
// PATCH /api/auth/session.
func (h *AuthHandler) Refresh(c *gin.Context) {
	sid, ok := middleware.GetSessionID(c)
	if !ok {
		refreshFailed(c, xerrors.AuthError("no valid token to refresh"))
		return
	}

	res, err := h.authService.RefreshSession(c.Request.Context(), sid)
	if err != nil {
		h.logger.Warn("token refresh failed",
			zap.String("session_id", sid),
			zap.Int("status", xerrors.StatusOf(err)),
			zap.Error(err),
		)
		refreshFailed(c, err)
		return
	}

	c.JSON(http.StatusOK, auth.RefreshResponse{
		AccessToken: res.AccessToken,
		Exp:         res.ExpiresAt.Unix(),
		IssuedAt:    res.IssuedAt,
	})
}

func refreshFailed(c *gin.Context, err error) {
	c.AbortWithStatusJSON(xerrors.StatusOf(err), gin.H{"error": xerrors.MessageOf(err)})
}

// ========== CSRF ==========

// CSRFToken issues a form token, bound to the session when there is one
func (h *AuthHandler) CSRFToken(c *gin.Context) {
	token := csrf.Generate()

	if sid, ok := middleware.GetSessionID(c); ok {
		if err := h.csrfStore.Bind(c.Request.Context(), sid, token); err != nil {
			h.logger.Error("failed to bind csrf token", zap.String("session_id", sid), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "failed to issue csrf token", nil)
			return
		}
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, auth.CSRFResponse{Token: token})
}

// renewCookie re-issues the session cookie when a refresh moved the session
// expiry past the one the cookie carries.
func (h *AuthHandler) renewCookie(c *gin.Context, sess *auth.Session) {
	claims, ok := middleware.GetClaims(c)
	if ok && claims.ExpiresAt != nil && sess.ExpiresAt.Sub(claims.ExpiresAt.Time) < cookieSlack {
		return
	}

	token, err := h.authService.IssueSessionToken(sess)
	if err != nil {
		h.logger.Error("failed to renew session cookie", zap.String("session_id", sess.ID), zap.Error(err))
		return
	}
	h.cookie.Write(c, token, sess.ExpiresAt)
}

func sessionResponse(sess *auth.Session) auth.SessionResponse {
	expires := sess.ExpiresAt
	return auth.SessionResponse{
		User:    auth.NewUserInfo(sess),
		Expires: &expires,
		Error:   sess.Error,
	}
}
