package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRateLimitPrefix = "vaquinha:rate_limit"

// chargeWindowScript increments the hit counter and arms its expiry on the
// first hit of a window. Replies {hits, pttl}.
var chargeWindowScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local pttl = redis.call("PTTL", KEYS[1])
if pttl < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
  pttl = tonumber(ARGV[1])
end
return {hits, pttl}
`)

// RedisRateLimiter counts payment charge attempts per client in fixed
// windows shared by every API instance.
type RedisRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisRateLimiter(client redis.UniversalClient, prefix string) *RedisRateLimiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = defaultRateLimitPrefix
	}
	return &RedisRateLimiter{client: client, prefix: prefix}
}

// ConsumeRateLimit records one hit for subject under scope. It returns the
// hits seen in the current window and the seconds until the window resets.
// Without a client, a limit or a subject nothing is counted.
func (r *RedisRateLimiter) ConsumeRateLimit(ctx context.Context, scope, subject string, limit int, window time.Duration) (int, int, error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}
	scope, subject = strings.TrimSpace(scope), strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return 0, 0, nil
	}

	windowMs := windowMillis(window)
	reply, err := chargeWindowScript.Run(ctx, r.client, []string{rateLimitKey(r.prefix, scope, subject)}, windowMs).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("rate limit %s: %w", scope, err)
	}
	if len(reply) != 2 {
		return 0, 0, fmt.Errorf("rate limit %s: unexpected reply length %d", scope, len(reply))
	}

	hits, pttl := reply[0], reply[1]
	if pttl < 0 {
		pttl = windowMs
	}
	return int(hits), retryAfterFromMillis(pttl), nil
}

// windowMillis floors windows at one second so Retry-After stays meaningful.
func windowMillis(window time.Duration) int64 {
	return max(window.Milliseconds(), 1000)
}

func rateLimitKey(prefix, scope, subject string) string {
	return prefix + ":" + scope + ":" + subject
}

func retryAfterFromMillis(ms int64) int {
	return max(int(math.Ceil(float64(ms)/1000)), 1)
}
