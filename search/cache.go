package search

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores results of an inner Searcher in Redis for a short TTL.
// Redis errors never fail a search; the inner searcher is asked instead.
type Cache struct {
	redis  redis.UniversalClient
	inner  Searcher
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewCache(rdb redis.UniversalClient, inner Searcher, ttl time.Duration, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		redis:  rdb,
		inner:  inner,
		ttl:    ttl,
		prefix: "search:",
		logger: logger,
	}
}

func (c *Cache) key(query string, limit int) string {
	return c.prefix + strconv.Itoa(limit) + ":" + strings.ToLower(query)
}

func (c *Cache) Search(ctx context.Context, query string, limit int) (*Results, error) {
	key := c.key(query, limit)

	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var res Results
		if err := json.Unmarshal(data, &res); err == nil {
			return res.normalize(), nil
		}
		c.logger.Warn("discarding corrupt search cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("search cache read failed", slog.String("error", err.Error()))
	}

	res, err := c.inner.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	res = res.normalize()

	if c.ttl > 0 {
		if data, err := json.Marshal(res); err == nil {
			if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
				c.logger.Warn("search cache write failed", slog.String("error", err.Error()))
			}
		}
	}
	return res, nil
}
