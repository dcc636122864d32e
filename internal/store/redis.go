package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the redis client used for the event queue, the per-batch token
// cache and health checks.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// CacheBatchToken stores the latest token id issued for a batch so the API can
// serve "current token" lookups without hitting Postgres. TTL matches the
// token validity window.
func (r *Redis) CacheBatchToken(ctx context.Context, batchID, tokenID string, ttl time.Duration) error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Set(ctx, "academy:batchtoken:"+batchID, tokenID, ttl).Err()
}

// CachedBatchToken returns the cached token id for a batch, or "" on miss.
func (r *Redis) CachedBatchToken(ctx context.Context, batchID string) string {
	if r == nil || r.Client == nil {
		return ""
	}
	val, err := r.Client.Get(ctx, "academy:batchtoken:"+batchID).Result()
	if err != nil {
		return ""
	}
	return val
}
