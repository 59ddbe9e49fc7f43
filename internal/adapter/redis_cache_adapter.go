package adapter

import (
	"context"
	"errors"
	"time"

	"quizly/internal/cache"
	"quizly/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RedisCacheAdapter implements domain.Cache on a Redis client.
type RedisCacheAdapter struct {
	client *redis.Client
}

func NewRedisCacheAdapter(client *redis.Client) *RedisCacheAdapter {
	return &RedisCacheAdapter{client: client}
}

// Get translates redis.Nil to domain.ErrCacheMiss.
func (r *RedisCacheAdapter) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrCacheMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisCacheAdapter) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisCacheAdapter) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCacheAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// CacheTokenBlacklist stores revoked token IDs in a domain.Cache.
type CacheTokenBlacklist struct {
	cache domain.Cache
}

func NewCacheTokenBlacklist(c domain.Cache) *CacheTokenBlacklist {
	return &CacheTokenBlacklist{cache: c}
}

// Revoke keeps the entry for ttl. A non-positive ttl means the token has
// already expired and nothing is written.
func (b *CacheTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.cache.Set(ctx, cache.RevokedTokenKey(jti), "1", ttl)
}

func (b *CacheTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	_, err := b.cache.Get(ctx, cache.RevokedTokenKey(jti))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrCacheMiss) {
		return false, nil
	}
	return false, err
}
