// Package backend talks to the opaque business API behind the gateway.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	xerrors "frontdesk-gateway/internal/pkg/errors"
)

const (
	loginPath   = "/auth/login"
	refreshPath = "/auth/refresh-token"

	maxBodyBytes = 1 << 20
)

// User is the identity the backend returns at login.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type LoginResult struct {
	Token string
	User  User
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient never fails. A missing base URL is reported as a ConfigError by
// every call so that the HTTP layer can answer 500 instead of refusing to boot.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Login exchanges credentials for a backend access token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login request: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, loginPath, "", payload)
	if err != nil {
		return nil, err
	}

	var out struct {
		Token string `json:"token"`
		User  *User  `json:"user"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, xerrors.ProtocolError("backend login response is not valid JSON")
	}
	if out.Token == "" || out.User == nil || out.User.ID == "" {
		return nil, xerrors.ProtocolError("backend login response is missing token or user")
	}
	return &LoginResult{Token: out.Token, User: *out.User}, nil
}

// RefreshToken presents oldToken as a bearer credential and returns its
// replacement.
func (c *Client) RefreshToken(ctx context.Context, oldToken string) (string, error) {
	body, err := c.do(ctx, http.MethodPost, refreshPath, oldToken, nil)
	if err != nil {
		return "", err
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", xerrors.ProtocolError("backend refresh response is not valid JSON")
	}
	if out.Token == "" {
		return "", xerrors.ProtocolError("backend refresh response has no token")
	}
	return out.Token, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, payload []byte) ([]byte, error) {
	if c.baseURL == "" {
		return nil, xerrors.ConfigError("backend API URL is not configured", nil)
	}

	var reader io.Reader
	if len(payload) > 0 {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, xerrors.ConfigError("invalid backend request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, xerrors.ConfigError("backend is unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, xerrors.ConfigError("failed to read backend response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, xerrors.BackendError(resp.StatusCode, errorMessage(body))
	}
	return body, nil
}

// errorMessage pulls the backend's own message out of an error body.
func errorMessage(body []byte) string {
	var out struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &out); err == nil {
		if out.Message != "" {
			return out.Message
		}
		if out.Error != "" {
			return out.Error
		}
		return ""
	}
	return strings.TrimSpace(string(body))
}

// IsRejected reports whether the backend refused the credential itself, as
// opposed to failing to answer.
func IsRejected(err error) bool {
	e, ok := xerrors.As(err)
	if !ok || e.Kind != xerrors.KindBackend {
		return false
	}
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// IsTransient reports whether a retry could plausibly succeed.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	e, ok := xerrors.As(err)
	if !ok {
		return true
	}
	switch e.Kind {
	case xerrors.KindConfig:
		return e.Err != nil
	case xerrors.KindBackend:
		return e.Status >= http.StatusInternalServerError
	default:
		return false
	}
}
