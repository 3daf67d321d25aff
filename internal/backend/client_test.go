package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	xerrors "frontdesk-gateway/internal/pkg/errors"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return NewClient(server.URL+"/", time.Second)
}

func TestRefreshTokenSendsBearer(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, refreshPath, r.URL.Path)
		require.Equal(t, "Bearer old-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"token":"new-token"}`))
	})

	token, err := c.RefreshToken(context.Background(), "old-token")
	require.NoError(t, err)
	require.Equal(t, "new-token", token)
}

func TestRefreshTokenErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		status  int
		body    string
		kind    xerrors.Kind
		code    int
		message string
	}{
		{name: "forbidden passthrough", status: http.StatusForbidden, body: `{"message":"token revoked"}`, kind: xerrors.KindBackend, code: http.StatusForbidden, message: "token revoked"},
		{name: "error field", status: http.StatusUnauthorized, body: `{"error":"expired"}`, kind: xerrors.KindBackend, code: http.StatusUnauthorized, message: "expired"},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream down", kind: xerrors.KindBackend, code: http.StatusBadGateway, message: "upstream down"},
		{name: "empty body", status: http.StatusServiceUnavailable, body: "", kind: xerrors.KindBackend, code: http.StatusServiceUnavailable, message: "Service Unavailable"},
		{name: "missing token", status: http.StatusOK, body: `{}`, kind: xerrors.KindProtocol, code: http.StatusInternalServerError},
		{name: "not json", status: http.StatusOK, body: `<html>`, kind: xerrors.KindProtocol, code: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := c.RefreshToken(context.Background(), "old")
			require.Error(t, err)
			require.True(t, xerrors.IsKind(err, tc.kind))
			require.Equal(t, tc.code, xerrors.StatusOf(err))
			if tc.message != "" {
				require.Equal(t, tc.message, xerrors.MessageOf(err))
			}
		})
	}
}

func TestMissingBaseURLIsConfigError(t *testing.T) {
	t.Parallel()

	c := NewClient("  ", 0)
	_, err := c.RefreshToken(context.Background(), "old")
	require.True(t, xerrors.IsKind(err, xerrors.KindConfig))
	require.Equal(t, http.StatusInternalServerError, xerrors.StatusOf(err))
	require.False(t, IsTransient(err))
}

func TestUnreachableBackendIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient(url, time.Second)
	_, err := c.RefreshToken(context.Background(), "old")
	require.True(t, xerrors.IsKind(err, xerrors.KindConfig))
	require.True(t, IsTransient(err))
	require.False(t, IsRejected(err))
}

func TestLogin(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, loginPath, r.URL.Path)
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		if in["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok","user":{"id":"u1","name":"Ann","email":"ann@example.com","role":"ADMIN"}}`))
	})

	res, err := c.Login(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "tok", res.Token)
	require.Equal(t, "u1", res.User.ID)
	require.Equal(t, "ADMIN", res.User.Role)

	_, err = c.Login(context.Background(), "ann@example.com", "wrong")
	require.True(t, IsRejected(err))
	require.Equal(t, "Invalid credentials", xerrors.MessageOf(err))
}

func TestClassification(t *testing.T) {
	t.Parallel()

	require.True(t, IsRejected(xerrors.BackendError(http.StatusForbidden, "")))
	require.False(t, IsRejected(xerrors.BackendError(http.StatusInternalServerError, "")))
	require.True(t, IsTransient(xerrors.BackendError(http.StatusBadGateway, "")))
	require.False(t, IsTransient(xerrors.BackendError(http.StatusUnauthorized, "")))
	require.False(t, IsTransient(xerrors.ProtocolError("bad")))
	require.False(t, IsTransient(context.Canceled))
}
