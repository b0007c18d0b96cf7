package rate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Window is a fixed-window request counter keyed by caller (usually the
// client IP). It guards the public API surface as a whole.
type Window struct {
	redis  redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// Result describes the state of a window after a hit.
type Result struct {
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

func NewWindow(redisClient redis.UniversalClient, prefix string, limit int, window time.Duration) *Window {
	if prefix == "" {
		prefix = "awin"
	}
	return &Window{
		redis:  redisClient,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

// Allow records one hit for key. It returns ErrRateLimited once the
// window's limit is exceeded; Result is filled in either way.
func (w *Window) Allow(ctx context.Context, key string) (Result, error) {
	res := Result{Limit: w.limit, ResetIn: w.window}
	if w.limit <= 0 {
		res.Remaining = -1
		return res, nil
	}

	redisKey := w.prefix + ":" + key
	count, err := incrementWithTTL(ctx, w.redis, redisKey, w.window)
	if err != nil {
		return res, err
	}
	if ttl, err := w.redis.PTTL(ctx, redisKey).Result(); err == nil && ttl > 0 {
		res.ResetIn = ttl
	}

	res.Remaining = w.limit - int(count)
	if res.Remaining < 0 {
		res.Remaining = 0
		return res, ErrRateLimited
	}
	return res, nil
}
