package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignInRateLimit(t *testing.T) {
	mr, client := newMiniRedisClient(t)
	limiter := NewRateLimiter(client)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, _, err := limiter.CheckSignInAttempt(ctx, "10.0.0.1", "ada@example.com")
		require.NoError(t, err)
		require.True(t, allowed, "attempt %d", i+1)
	}

	allowed, remaining, err := limiter.CheckSignInAttempt(ctx, "10.0.0.1", "ada@example.com")
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	mr.FastForward(16 * time.Minute)

	allowed, remaining, err = limiter.CheckSignInAttempt(ctx, "10.0.0.1", "ada@example.com")
	require.NoError(t, err)
	require.True(t, allowed)
	require.EqualValues(t, 4, remaining)
}

func TestResetSignInAttempts(t *testing.T) {
	_, client := newMiniRedisClient(t)
	limiter := NewRateLimiter(client)
	ctx := context.Background()

	_, _, err := limiter.CheckSignInAttempt(ctx, "ip", "e")
	require.NoError(t, err)
	require.NoError(t, limiter.ResetSignInAttempts(ctx, "ip", "e"))

	allowed, remaining, err := limiter.CheckSignInAttempt(ctx, "ip", "e")
	require.NoError(t, err)
	require.True(t, allowed)
	require.EqualValues(t, 4, remaining)
}
