// Package cache provides SymbolCache implementations
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bobmcallan/brokeclub/internal/interfaces"
	"github.com/bobmcallan/brokeclub/internal/models"
)

const keyPrefix = "brokeclub:"

// Compile-time check to ensure RedisCache implements SymbolCache
var _ interfaces.SymbolCache = (*RedisCache)(nil)

// RedisCache stores symbol search results as JSON strings with a TTL
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached matches for key. A missing key is a miss, not an error.
func (r *RedisCache) Get(ctx context.Context, key string) ([]models.SymbolMatch, bool, error) {
	payload, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}

	var matches []models.SymbolMatch
	if err := json.Unmarshal(payload, &matches); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return matches, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, matches []models.SymbolMatch, ttl time.Duration) error {
	if matches == nil {
		matches = []models.SymbolMatch{}
	}
	payload, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying client
func (r *RedisCache) Close() error {
	return r.client.Close()
}
