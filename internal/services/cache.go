package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unicatolica/registro-huellas/internal/clock"
	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultCacheTTL applies when no TTL is configured
	DefaultCacheTTL = 5 * time.Minute
)

// CacheKey generates a cache key for a specific resource.
func CacheKey(resource, identifier string) string {
	return CacheKeyPrefix + resource + ":" + identifier
}

// PersonCache is a read-through Redis cache in front of card lookups.
// Redis errors degrade to store reads.
type PersonCache struct {
	store  repository.PersonStore
	client *redis.Client
	ttl    time.Duration
	clock  clock.Clock
	logger *slog.Logger
}

func NewPersonCache(store repository.PersonStore, client *redis.Client, ttl time.Duration, clk clock.Clock, logger *slog.Logger) *PersonCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &PersonCache{store: store, client: client, ttl: ttl, clock: clk, logger: logger}
}

func (c *PersonCache) FindByCard(ctx context.Context, card string) (*models.Person, error) {
	key := CacheKey("persona", card)

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var p models.Person
		if jsonErr := json.Unmarshal([]byte(val), &p); jsonErr == nil && !p.Expired(c.clock.Now()) {
			return &p, nil
		}
		c.client.Del(ctx, key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("person cache read failed", "key", key, "error", err)
	}

	p, err := c.store.FindByCard(ctx, card)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(p)
	if err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("person cache write failed", "key", key, "error", err)
		}
	}
	return p, nil
}

// Invalidate drops the cached entries for every card of p.
func (c *PersonCache) Invalidate(ctx context.Context, p *models.Person) {
	var keys []string
	for _, card := range []string{p.Carnet, p.NumeroTarjeta} {
		if card != "" {
			keys = append(keys, CacheKey("persona", card))
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("person cache invalidation failed", "keys", keys, "error", err)
	}
}
