package cache

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/noah-isme/webchat-api/internal/observability"
)

// QueriesSuffix names the namespace holding fingerprinted read results of an aggregate.
const QueriesSuffix = ":queries"

// Cache is a namespace handle over a Store. Values are JSON encoded.
// Store failures are logged and reported as misses. A nil *Cache is a
// disabled cache.
type Cache struct {
	store     Store
	namespace string
	logger    zerolog.Logger
}

// New constructs a handle for namespace over store.
func New(store Store, namespace string, logger zerolog.Logger) *Cache {
	if store == nil {
		return nil
	}
	return &Cache{
		store:     store,
		namespace: namespace,
		logger:    logger.With().Str("component", "cache").Str("namespace", namespace).Logger(),
	}
}

// Pair returns the entity and queries handles for an aggregate.
func Pair(store Store, aggregate string, logger zerolog.Logger) (*Cache, *Cache) {
	return New(store, aggregate, logger), New(store, aggregate+QueriesSuffix, logger)
}

// Namespace returns the namespace the handle writes to.
func (c *Cache) Namespace() string {
	if c == nil {
		return ""
	}
	return c.namespace
}

// Get decodes the cached value for key into dest and reports a hit.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}

	raw, ok, err := c.store.Get(ctx, c.namespace, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to read cache")
		c.count("miss")
		return false
	}
	if !ok {
		c.count("miss")
		return false
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to decode cache entry")
		c.count("miss")
		return false
	}

	c.count("hit")
	return true
}

// Put stores value under key.
func (c *Cache) Put(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to encode cache entry")
		return
	}

	if err := c.store.Set(ctx, c.namespace, key, payload); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to store cache entry")
	}
}

// Evict removes the entry stored under key.
func (c *Cache) Evict(ctx context.Context, key string) {
	if c == nil {
		return
	}

	if err := c.store.Delete(ctx, c.namespace, key); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("failed to evict cache entry")
		return
	}
	observability.CacheEvictions().WithLabelValues(c.namespace, "key").Inc()
}

// EvictAll removes every entry of the namespace.
func (c *Cache) EvictAll(ctx context.Context) {
	if c == nil {
		return
	}

	if err := c.store.Clear(ctx, c.namespace); err != nil {
		c.logger.Warn().Err(err).Msg("failed to clear cache namespace")
		return
	}
	observability.CacheEvictions().WithLabelValues(c.namespace, "all").Inc()
}

func (c *Cache) count(result string) {
	observability.CacheLookups().WithLabelValues(c.namespace, result).Inc()
}

// Memoize returns the cached value for key or computes it with fetch and
// stores the result. Errors from fetch are returned and never cached.
func Memoize[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		return cached, nil
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	c.Put(ctx, key, value)
	return value, nil
}
