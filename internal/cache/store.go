package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/observability"

	"github.com/redis/go-redis/v9"
)

// DefaultProfileTTL bounds how stale a cached public profile may be.
const DefaultProfileTTL = 5 * time.Minute

// ProfileKey is the cache key of a user's public profile.
func ProfileKey(userID uint) string {
	return fmt.Sprintf("profile:%d", userID)
}

// Store is a JSON cache over Redis. A Store with a nil client is a valid no-op cache.
type Store struct {
	client *redis.Client
	name   string
}

// NewStore wraps client. name labels cache metrics.
func NewStore(client *redis.Client, name string) *Store {
	return &Store{client: client, name: name}
}

// Enabled reports whether a Redis client backs the store.
func (s *Store) Enabled() bool {
	return s != nil && s.client != nil
}

// GetJSON loads key into dest. Returns (true, nil) on hit and (false, nil) on miss.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if !s.Enabled() {
		return false, nil
	}
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.CacheLookups.WithLabelValues(s.name, "miss").Inc()
		return false, nil
	}
	if err != nil {
		observability.CacheLookups.WithLabelValues(s.name, "error").Inc()
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		observability.CacheLookups.WithLabelValues(s.name, "error").Inc()
		return false, err
	}
	observability.CacheLookups.WithLabelValues(s.name, "hit").Inc()
	return true, nil
}

// SetJSON stores v under key for ttl.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, ttl).Err()
}

// Aside serves dest from cache, or calls fetch to fill it and stores the result.
// Cache failures degrade to fetch; fetch errors are returned unchanged.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	found, err := s.GetJSON(ctx, key, dest)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "cache read failed", "key", key, "error", err.Error())
	}
	if found {
		return nil
	}

	if err := fetch(); err != nil {
		return err
	}

	if err := s.SetJSON(ctx, key, dest, ttl); err != nil {
		middleware.Logger.WarnContext(ctx, "cache write failed", "key", key, "error", err.Error())
	}
	return nil
}

// Invalidate deletes keys, logging failures.
func (s *Store) Invalidate(ctx context.Context, keys ...string) {
	if !s.Enabled() || len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation failed", "keys", keys, "error", err.Error())
	}
}

// InvalidateProfiles drops cached profiles for the given users.
func (s *Store) InvalidateProfiles(ctx context.Context, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, ProfileKey(id))
	}
	s.Invalidate(ctx, keys...)
}
