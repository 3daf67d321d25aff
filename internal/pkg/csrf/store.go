package csrf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store binds tokens to a session id.
type Store interface {
	Bind(ctx context.Context, sessionID, token string) error
	Validate(ctx context.Context, sessionID, candidate string) (bool, error)
	Forget(ctx context.Context, sessionID string) error
}

// MemoryStore keeps one Holder per session in process memory. A holder not
// rebound within ttl is dropped, so sessions that expire without a sign-out
// do not accumulate.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	holders map[string]*memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	holder  Holder
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{ttl: ttl, holders: make(map[string]*memoryEntry), now: time.Now}
}

func (s *MemoryStore) Bind(_ context.Context, sessionID, token string) error {
	s.mu.Lock()
	now := s.now()
	s.prune(now)
	e, ok := s.holders[sessionID]
	if !ok {
		e = &memoryEntry{}
		s.holders[sessionID] = e
	}
	e.expires = now.Add(s.ttl)
	s.mu.Unlock()

	e.holder.Store(token)
	return nil
}

func (s *MemoryStore) Validate(_ context.Context, sessionID, candidate string) (bool, error) {
	s.mu.Lock()
	e, ok := s.holders[sessionID]
	if ok && !s.now().Before(e.expires) {
		delete(s.holders, sessionID)
		ok = false
	}
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return e.holder.Validate(candidate), nil
}

func (s *MemoryStore) Forget(_ context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.holders, sessionID)
	s.mu.Unlock()
	return nil
}

// Len reports how many sessions hold a token.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.holders)
}

// prune must be called with mu held.
func (s *MemoryStore) prune(now time.Time) {
	for sid, e := range s.holders {
		if !now.Before(e.expires) {
			delete(s.holders, sid)
		}
	}
}

// RedisStore keeps the latest token per session under csrf:<sid>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Bind(ctx context.Context, sessionID, token string) error {
	if err := s.client.Set(ctx, s.key(sessionID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to bind csrf token: %w", err)
	}
	return nil
}

func (s *RedisStore) Validate(ctx context.Context, sessionID, candidate string) (bool, error) {
	held, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read csrf token: %w", err)
	}
	return equal(held, candidate), nil
}

func (s *RedisStore) Forget(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to drop csrf token: %w", err)
	}
	return nil
}

func (s *RedisStore) key(sessionID string) string {
	return fmt.Sprintf("csrf:%s", sessionID)
}
