// internal/pkg/session/rate_limiter.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxSignInAttempts = int64(5)
	signInWindow      = 15 * time.Minute
)

type RateLimiter struct {
	client *redis.Client
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// CheckSignInAttempt counts an attempt and reports whether it is allowed
func (r *RateLimiter) CheckSignInAttempt(ctx context.Context, ip, email string) (bool, int64, error) {
	key := r.signInKey(ip, email)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment sign-in attempt: %w", err)
	}

	// Set expiration on first attempt
	if count == 1 {
		r.client.Expire(ctx, key, signInWindow)
	}

	remaining := maxSignInAttempts - count
	if remaining < 0 {
		remaining = 0
	}

	return count <= maxSignInAttempts, remaining, nil
}

// ResetSignInAttempts resets the attempt counter after a successful sign-in
func (r *RateLimiter) ResetSignInAttempts(ctx context.Context, ip, email string) error {
	return r.client.Del(ctx, r.signInKey(ip, email)).Err()
}

func (r *RateLimiter) signInKey(ip, email string) string {
	return fmt.Sprintf("ratelimit:signin:%s:%s", ip, email)
}
