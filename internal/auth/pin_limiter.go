package auth

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/ovomonie/banking-service/internal/domain/ports"
)

// INCR + PEXPIRE in one round trip so the first request in a window atomically
// starts the clock.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisAttemptLimiter is a fixed-window counter shared by every server
// instance. It backs PIN lockout and per-endpoint rate limits, so a client
// cannot dodge either by hitting a different replica.
type RedisAttemptLimiter struct {
	client redis.UniversalClient
	prefix string
}

var _ ports.AttemptLimiter = (*RedisAttemptLimiter)(nil)

// NewRedisAttemptLimiter creates a limiter with the given key prefix.
func NewRedisAttemptLimiter(client redis.UniversalClient, prefix string) *RedisAttemptLimiter {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = "banking:attempts"
	}
	return &RedisAttemptLimiter{
		client: client,
		prefix: strings.TrimSuffix(trimmed, ":"),
	}
}

// Consume increments the counter for scope/subject and returns the count in
// the current window plus the seconds until it resets. A nil client or
// non-positive limit disables limiting rather than blocking traffic.
func (r *RedisAttemptLimiter) Consume(ctx context.Context, scope, subject string, limit int, windowSeconds int) (int, int, error) {
	if r == nil || r.client == nil || limit <= 0 || windowSeconds <= 0 {
		return 0, 0, nil
	}

	scope = strings.TrimSpace(scope)
	subject = strings.TrimSpace(subject)
	if scope == "" || subject == "" {
		return 0, 0, nil
	}

	key := fmt.Sprintf("%s:%s:%s", r.prefix, scope, subject)
	windowMs := int64(windowSeconds) * 1000

	raw, err := fixedWindowScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(count), 0, fmt.Errorf("unexpected limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return int(count), retryAfter, nil
}

// Reset clears the counter so a successful PIN entry forgives prior misses.
func (r *RedisAttemptLimiter) Reset(ctx context.Context, scope, subject string) error {
	if r == nil || r.client == nil {
		return nil
	}
	key := fmt.Sprintf("%s:%s:%s", r.prefix, strings.TrimSpace(scope), strings.TrimSpace(subject))
	return r.client.Del(ctx, key).Err()
}
