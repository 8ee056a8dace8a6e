// Package resultcache caches OptimizerResult values in redis, keyed by a
// deterministic hash of the inputs that fully determine the result
// (property: identical requests produce identical results, so a repeat
// request can skip recomputation entirely).
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gearopt/internal/gear"
)

const keyPrefix = "optimizer:result:"

// Cache wraps a redis client for OptimizerResult storage.
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

// New builds a Cache around an already-connected redis client.
func New(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

// Key is the cache-key input: everything the engine's output depends on.
type Key struct {
	Player      gear.Player
	Monster     gear.Monster
	Constraints gear.Constraints
	Objective   gear.Objective
}

// HashKey reduces a Key to a stable hex digest, independent of Go map
// iteration order, since json.Marshal sorts map keys.
func HashKey(k Key) (string, error) {
	data, err := json.Marshal(k)
	if err != nil {
		return "", fmt.Errorf("hash optimizer cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Get retrieves a cached result by its hash, returning ok=false on a cache
// miss (including a redis.Nil).
func (c *Cache) Get(ctx context.Context, hash string) (gear.OptimizerResult, bool, error) {
	fullKey := keyPrefix + hash
	data, err := c.client.Get(ctx, fullKey).Result()
	if err != nil {
		if err == redis.Nil {
			return gear.OptimizerResult{}, false, nil
		}
		return gear.OptimizerResult{}, false, fmt.Errorf("get cached optimizer result: %w", err)
	}

	var result gear.OptimizerResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return gear.OptimizerResult{}, false, fmt.Errorf("unmarshal cached optimizer result: %w", err)
	}

	c.logger.WithField("cache_key", fullKey).Debug("resultcache hit")
	return result, true, nil
}

// Set stores result under hash with the given TTL.
func (c *Cache) Set(ctx context.Context, hash string, result gear.OptimizerResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal optimizer result for cache: %w", err)
	}

	fullKey := keyPrefix + hash
	if err := c.client.Set(ctx, fullKey, data, ttl).Err(); err != nil {
		return fmt.Errorf("set cached optimizer result: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"cache_key": fullKey,
		"ttl":       ttl,
	}).Debug("resultcache store")
	return nil
}

// Delete evicts hash's cached entry, if any.
func (c *Cache) Delete(ctx context.Context, hash string) error {
	fullKey := keyPrefix + hash
	if err := c.client.Del(ctx, fullKey).Err(); err != nil {
		return fmt.Errorf("delete cached optimizer result: %w", err)
	}
	return nil
}
