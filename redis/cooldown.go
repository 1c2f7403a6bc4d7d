// Package redis provides a Redis-backed cooldown marker store for
// deployments that already coordinate shared rate limits in Redis. The
// marker is a TTL-keyed timestamp: expiry in Redis and expiry of the
// marker coincide, so stale markers clean themselves up.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopsync/syncpump"
)

const defaultKeyPrefix = "syncpump:cooldown:"

// CooldownStore implements syncpump.CooldownStore on Redis.
type CooldownStore struct {
	client *redis.Client
	prefix string
	clock  syncpump.Clock
}

var _ syncpump.CooldownStore = (*CooldownStore)(nil)

// Option configures the cooldown store.
type Option func(*CooldownStore)

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *CooldownStore) {
		s.prefix = prefix
	}
}

// WithClock sets the time source used for TTL computation.
func WithClock(clock syncpump.Clock) Option {
	return func(s *CooldownStore) {
		s.clock = clock
	}
}

// NewCooldownStore constructs a cooldown store over an existing client.
func NewCooldownStore(client *redis.Client, opts ...Option) (*CooldownStore, error) {
	if client == nil {
		return nil, errors.New("syncpump redis: client is required")
	}

	store := &CooldownStore{
		client: client,
		prefix: defaultKeyPrefix,
		clock:  syncpump.SystemClock{},
	}
	for _, opt := range opts {
		opt(store)
	}

	return store, nil
}

// CooldownUntil implements syncpump.CooldownStore; a missing or expired
// key returns the zero time.
func (s *CooldownStore) CooldownUntil(ctx context.Context, dependency string) (time.Time, error) {
	value, err := s.client.Get(ctx, s.key(dependency)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("syncpump redis: read cooldown failed: %w", err)
	}

	until, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("syncpump redis: decode cooldown failed: %w", err)
	}

	return until, nil
}

// SetCooldown implements syncpump.CooldownStore, letting the key expire
// together with the marker.
func (s *CooldownStore) SetCooldown(ctx context.Context, dependency string, until time.Time) error {
	ttl := until.Sub(s.clock.Now())
	if ttl <= 0 {
		return s.ClearCooldown(ctx, dependency)
	}

	if err := s.client.Set(ctx, s.key(dependency), until.UTC().Format(time.RFC3339Nano), ttl).Err(); err != nil {
		return fmt.Errorf("syncpump redis: set cooldown failed: %w", err)
	}

	return nil
}

// ClearCooldown implements syncpump.CooldownStore.
func (s *CooldownStore) ClearCooldown(ctx context.Context, dependency string) error {
	if err := s.client.Del(ctx, s.key(dependency)).Err(); err != nil {
		return fmt.Errorf("syncpump redis: clear cooldown failed: %w", err)
	}

	return nil
}

func (s *CooldownStore) key(dependency string) string {
	return s.prefix + dependency
}
