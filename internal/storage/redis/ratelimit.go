package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"
)

var fixedWindowScript = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// FixedWindowLimiter limits requests per key in a fixed time window shared by
// every API replica.
type FixedWindowLimiter struct {
	client *goredis.Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewFixedWindowLimiter creates a Redis-backed limiter. Windows are counted
// in whole milliseconds, so window must be at least one millisecond.
func NewFixedWindowLimiter(client *goredis.Client, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 {
		return nil, errors.New("rate limiter requires a positive limit")
	}
	if window < time.Millisecond {
		return nil, errors.Errorf("rate limiter window %s is shorter than 1ms", window)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "gamestore:ratelimit"
	}
	return &FixedWindowLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
		now:    time.Now,
	}, nil
}

// Allow reports whether key is within quota. On Redis failures it fails
// closed and returns false with the error.
func (l *FixedWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	windowMs := l.window.Milliseconds()
	slot := l.now().UTC().UnixMilli() / windowMs
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, windowMs).Int64()
	if err != nil {
		return false, fmt.Errorf("running rate limit script: %w", err)
	}
	return n <= int64(l.limit), nil
}
