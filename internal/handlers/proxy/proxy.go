// internal/handlers/proxy/proxy.go
package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"frontdesk-gateway/internal/domain/auth"
	"frontdesk-gateway/internal/middleware"
	xerrors "frontdesk-gateway/internal/pkg/errors"
	"frontdesk-gateway/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Sessions resolves the backend token of a session.
type Sessions interface {
	CurrentSession(ctx context.Context, sessionID string) (*auth.Session, error)
}

// ProxyHandler forwards CRUD calls from /api/<resource> to the backend's
// /<resource>, with the session's backend token as bearer credential.
type ProxyHandler struct {
	target   *url.URL
	sessions Sessions
	proxy    *httputil.ReverseProxy
	logger   *zap.Logger
}

func NewProxyHandler(baseURL string, sessions Sessions, transport http.RoundTripper, logger *zap.Logger) *ProxyHandler {
	h := &ProxyHandler{sessions: sessions, logger: logger}

	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		target, err := url.Parse(strings.TrimRight(baseURL, "/"))
		if err != nil || target.Scheme == "" || target.Host == "" {
			logger.Error("invalid backend API URL, proxy disabled", zap.String("url", baseURL), zap.Error(err))
		} else {
			h.target = target
		}
	}

	h.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(h.target)
			pr.SetXForwarded()
			pr.Out.Host = h.target.Host
			// the browser session never leaves the gateway
			pr.Out.Header.Del("Cookie")
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("backend proxy error", zap.String("path", r.URL.Path), zap.Error(err))
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"success":false,"message":"backend unavailable","error":"backend unavailable"}`))
		},
	}
	return h
}

// Forward relays an authenticated request. MUST be used after Auth().
func (h *ProxyHandler) Forward(c *gin.Context) {
	sid := middleware.MustGetSessionID(c)

	sess, err := h.sessions.CurrentSession(c.Request.Context(), sid)
	if errors.Is(err, xerrors.ErrNotFound) {
		response.Unauthorized(c, "session expired")
		return
	}
	if err != nil {
		response.Fail(c, err)
		return
	}
	if sess.AccessToken == "" {
		response.Unauthorized(c, "no valid token")
		return
	}

	h.serve(c, "Bearer "+sess.AccessToken)
}

// ForwardPublic relays an anonymous request such as registration.
func (h *ProxyHandler) ForwardPublic(c *gin.Context) {
	h.serve(c, "")
}

func (h *ProxyHandler) serve(c *gin.Context, authorization string) {
	if h.target == nil {
		response.Fail(c, xerrors.ConfigError("backend API URL is not configured", nil))
		return
	}

	req := c.Request.Clone(c.Request.Context())
	req.URL.Path = BackendPath(c.Request.URL.Path)
	req.URL.RawPath = ""
	req.Header.Del("Authorization")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	h.proxy.ServeHTTP(c.Writer, req)
}

// BackendPath maps a gateway path onto the backend: /api/clients/7 becomes
// /clients/7.
func BackendPath(path string) string {
	trimmed := strings.TrimPrefix(path, "/api")
	if trimmed == "" {
		return "/"
	}
	return trimmed
}
