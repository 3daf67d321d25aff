package csrf

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestGenerateYieldsDistinctTokens(t *testing.T) {
	a, b := Generate(), Generate()
	require.NotEqual(t, a, b)
	require.Len(t, a, 64)
}

func TestHolderValidatesOnlyLatestToken(t *testing.T) {
	var h Holder
	require.False(t, h.Validate(""))

	first := Generate()
	h.Store(first)
	require.True(t, h.Validate(first))

	second := Generate()
	h.Store(second)
	require.False(t, h.Validate(first))
	require.True(t, h.Validate(second))
	require.False(t, h.Validate(""))
}

func TestMemoryStoreIsPerSession(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(time.Hour)

	tok := Generate()
	require.NoError(t, s.Bind(ctx, "a", tok))

	ok, err := s.Validate(ctx, "a", tok)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Validate(ctx, "b", tok)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Forget(ctx, "a"))
	ok, err = s.Validate(ctx, "a", tok)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemoryStoreDropsUnboundSessions(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	tok := Generate()
	require.NoError(t, s.Bind(ctx, "stale", tok))
	require.NoError(t, s.Bind(ctx, "live", tok))
	require.Equal(t, 2, s.Len())

	now = now.Add(50 * time.Minute)
	require.NoError(t, s.Bind(ctx, "live", tok))

	now = now.Add(20 * time.Minute)
	ok, err := s.Validate(ctx, "stale", tok)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.Validate(ctx, "live", tok)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Hour)
	require.NoError(t, s.Bind(ctx, "fresh", tok))
	require.Equal(t, 1, s.Len())
}

func TestRedisStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	ctx := context.Background()
	s := NewRedisStore(client, time.Hour)

	first, second := Generate(), Generate()
	require.NoError(t, s.Bind(ctx, "sid", first))
	require.NoError(t, s.Bind(ctx, "sid", second))

	ok, err := s.Validate(ctx, "sid", first)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = s.Validate(ctx, "sid", second)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Forget(ctx, "sid"))
	require.False(t, mr.Exists("csrf:sid"))

	require.NoError(t, s.Bind(ctx, "sid", second))
	mr.FastForward(2 * time.Hour)
	ok, err = s.Validate(ctx, "sid", second)
	require.NoError(t, err)
	require.False(t, ok)
}
