package jwt

import (
	"testing"
	"time"

	"frontdesk-gateway/internal/domain/auth"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, secret string) *Manager {
	t.Helper()
	m, err := LoadAndBuild(Config{Secret: secret, Issuer: "frontdesk"})
	require.NoError(t, err)
	return m
}

func testSession() *auth.Session {
	return &auth.Session{
		ID:        "01JSESSION",
		UserID:    "42",
		Name:      "Ada",
		Email:     "ada@example.com",
		Role:      auth.RoleAdmin,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestGenerateAndVerify(t *testing.T) {
	m := newTestManager(t, "secret")

	token, err := m.Generator.Generate(testSession())
	require.NoError(t, err)

	claims, err := m.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01JSESSION", claims.SessionID)
	require.Equal(t, "42", claims.UserID())
	require.True(t, claims.IsAdmin())
	require.True(t, claims.HasRole(auth.RoleWorker, auth.RoleAdmin))
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, err := newTestManager(t, "secret").Generator.Generate(testSession())
	require.NoError(t, err)

	_, err = newTestManager(t, "other").Verifier.Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsExpiredAndGarbage(t *testing.T) {
	m := newTestManager(t, "secret")
	s := testSession()
	s.ExpiresAt = time.Now().Add(-time.Minute)

	token, err := m.Generator.Generate(s)
	require.NoError(t, err)

	_, err = m.Verifier.Verify(token)
	require.Error(t, err)

	_, err = m.Verifier.Verify("not-a-jwt")
	require.Error(t, err)
}

func TestLoadAndBuildRequiresSecret(t *testing.T) {
	_, err := LoadAndBuild(Config{})
	require.Error(t, err)
}

func TestExpiryOf(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	tok := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{
		ExpiresAt: gojwt.NewNumericDate(exp),
	})
	signed, err := tok.SignedString([]byte("backend-key"))
	require.NoError(t, err)

	got, err := ExpiryOf(signed)
	require.NoError(t, err)
	require.True(t, exp.Equal(got))

	noExp, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ExpiryOf(noExp)
	require.Error(t, err)

	_, err = ExpiryOf("garbage")
	require.Error(t, err)
}
