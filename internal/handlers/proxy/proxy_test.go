package proxy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"frontdesk-gateway/internal/domain/auth"
	xerrors "frontdesk-gateway/internal/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapSessions map[string]*auth.Session

func (m mapSessions) CurrentSession(ctx context.Context, sessionID string) (*auth.Session, error) {
	s, ok := m[sessionID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return s, nil
}

func withSession(sid string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("session_id", sid)
		c.Next()
	}
}

func newRouter(h *ProxyHandler, sid string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Any("/api/clients/*path", withSession(sid), h.Forward)
	r.POST("/api/auth/register", h.ForwardPublic)
	return r
}

func TestBackendPath(t *testing.T) {
	require.Equal(t, "/clients/7", BackendPath("/api/clients/7"))
	require.Equal(t, "/auth/register", BackendPath("/api/auth/register"))
	require.Equal(t, "/", BackendPath("/api"))
}

func TestForwardAddsBearerAndDropsCookie(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/clients/7", r.URL.Path)
		require.Equal(t, "q=1", r.URL.RawQuery)
		require.Equal(t, "Bearer backend-token", r.Header.Get("Authorization"))
		require.Empty(t, r.Header.Get("Cookie"))
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write(body)
	}))
	defer backend.Close()

	h := NewProxyHandler(backend.URL+"/v1", mapSessions{"sid": {ID: "sid", AccessToken: "backend-token"}}, nil, zap.NewNop())
	r := newRouter(h, "sid")

	req := httptest.NewRequest(http.MethodPost, "/api/clients/7?q=1", strings.NewReader(`{"name":"Acme"}`))
	req.Header.Set("Authorization", "Bearer spoofed")
	req.AddCookie(&http.Cookie{Name: "session-token", Value: "secret"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, `{"name":"Acme"}`, w.Body.String())
}

func TestForwardWithoutSession(t *testing.T) {
	h := NewProxyHandler("http://127.0.0.1:1", mapSessions{}, nil, zap.NewNop())
	r := newRouter(h, "gone")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/clients/", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestForwardPublicWithoutBackendURL(t *testing.T) {
	h := NewProxyHandler("", mapSessions{}, nil, zap.NewNop())
	r := newRouter(h, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/auth/register", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestBackendDownIsBadGateway(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := backend.URL
	backend.Close()

	h := NewProxyHandler(url, mapSessions{"sid": {ID: "sid", AccessToken: "tok"}}, nil, zap.NewNop())
	r := newRouter(h, "sid")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/clients/", nil))
	require.Equal(t, http.StatusBadGateway, w.Code)
}
