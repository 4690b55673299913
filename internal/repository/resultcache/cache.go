// Package resultcache caches serialized result pages in Redis. A cache
// failure is always treated as a miss; the engine must keep answering when
// the cache is down.
package resultcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"

	"github.com/meritview/cutoffd/internal/domain/query"
	"github.com/meritview/cutoffd/internal/metrics"
)

const keyPrefix = "cutoffd:query:"

// Config holds cache connection settings.
type Config struct {
	Addrs    []string
	Password string
	TTL      time.Duration
}

// Cache is a Redis-backed result page cache.
type Cache struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New creates a Cache.
func New(cfg Config, logger *zap.Logger) (*Cache, error) {
	if len(cfg.Addrs) == 0 {
		return nil, fmt.Errorf("cache addrs is required")
	}
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache client: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl, logger: logger}, nil
}

// Get returns the cached page for key, or false on miss or any error.
func (c *Cache) Get(ctx context.Context, key string) (*query.Page, bool) {
	cmd := c.client.B().Get().Key(keyPrefix + key).Build()
	data, err := c.client.Do(ctx, cmd).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	var page query.Page
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Warn("cache unmarshal failed", zap.String("key", key), zap.Error(err))
		metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
	return &page, true
}

// Set stores a page under key with the configured TTL. Errors are logged,
// never returned.
func (c *Cache) Set(ctx context.Context, key string, page *query.Page) {
	data, err := json.Marshal(page)
	if err != nil {
		c.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	cmd := c.client.B().Set().Key(keyPrefix + key).Value(string(data)).Ex(c.ttl).Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		c.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Ping checks cache connectivity.
func (c *Cache) Ping(ctx context.Context) error {
	cmd := c.client.B().Ping().Build()
	if err := c.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (c *Cache) Close() {
	c.client.Close()
}
