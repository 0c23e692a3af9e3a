package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// allowScript trims expired entries from the sorted set, counts the rest,
// and admits the call only if the window still has room. Running server-side
// keeps the counter atomic across all concurrent callers and instances.
var allowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, tostring(now) .. '-' .. tostring(redis.call('INCR', key .. ':seq')))
redis.call('PEXPIRE', key, window)
return 1
`)

// RateWindow is a Redis-backed rolling window for the rate limiter, shared
// across service instances.
type RateWindow struct {
	client *redis.Client
	now    func() time.Time
}

func NewRateWindow(client *redis.Client) *RateWindow {
	return &RateWindow{client: client, now: time.Now}
}

// NewRateWindowWithClock is test-only for deterministic timestamps.
func NewRateWindowWithClock(client *redis.Client, now func() time.Time) *RateWindow {
	return &RateWindow{client: client, now: now}
}

func (w *RateWindow) Allow(ctx context.Context, key string, limit int, per time.Duration) (bool, error) {
	nowMillis := w.now().UnixMilli()
	res, err := allowScript.Run(ctx, w.client, []string{w.key(key)},
		strconv.FormatInt(nowMillis, 10),
		strconv.FormatInt(per.Milliseconds(), 10),
		strconv.Itoa(limit),
	).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (w *RateWindow) key(key string) string {
	return "quiz:ratelimit:" + key
}
