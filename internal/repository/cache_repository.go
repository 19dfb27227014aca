package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrCacheMiss signals that a key was absent. A nil client degrades every
// lookup to a miss so the portal keeps working without Redis.
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository wraps Redis for the roster cache and the session
// denylist.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if r.client == nil {
		return ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// Delete removes a single cached entry.
func (r *CacheRepository) Delete(ctx context.Context, key string) error {
	if r.client == nil {
		return nil
	}
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Deny records a revoked session token ID until its natural expiry.
func (r *CacheRepository) Deny(ctx context.Context, tokenID string, until time.Duration) error {
	if r.client == nil {
		return nil
	}
	if until <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, denyKey(tokenID), "1", until).Err(); err != nil {
		return fmt.Errorf("redis deny %s: %w", tokenID, err)
	}
	return nil
}

// IsDenied reports whether a session token ID has been revoked. Redis
// being down fails open: a revoked token would outlive logout only for
// its remaining lifetime, which the operator can read from the logs.
func (r *CacheRepository) IsDenied(ctx context.Context, tokenID string) bool {
	if r.client == nil {
		return false
	}
	n, err := r.client.Exists(ctx, denyKey(tokenID)).Result()
	if err != nil {
		r.logger.Warn("session denylist lookup failed", zap.Error(err))
		return false
	}
	return n > 0
}

func denyKey(tokenID string) string {
	return "session:denied:" + tokenID
}
