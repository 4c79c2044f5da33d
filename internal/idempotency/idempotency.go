// Package idempotency remembers inbound message ids so that a redelivered
// chat message is acknowledged without running the workflow twice.
package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	// MarkProcessed records key for ttl. It reports true when the key was not
	// seen before.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

const keyPrefix = "khata:message:"

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewRedisStore(client), nil
}

func (s *RedisStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("marking message processed: %w", err)
	}

	return ok, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

// MemoryStore is a single-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	now     func() time.Time
	swept   time.Time
	sweepIn time.Duration
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		seen:    make(map[string]time.Time),
		now:     time.Now,
		sweepIn: time.Minute,
	}
}

func (s *MemoryStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if exp, ok := s.seen[key]; ok && now.Before(exp) {
		return false, nil
	}

	s.seen[key] = now.Add(ttl)

	return true, nil
}

func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.swept) < s.sweepIn {
		return
	}

	for k, exp := range s.seen {
		if !now.Before(exp) {
			delete(s.seen, k)
		}
	}

	s.swept = now
}
