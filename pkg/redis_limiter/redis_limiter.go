// Package redis_limiter holds the redis-backed per-model concurrency limiter
// and the task claim lock.
package redis_limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// ErrLimitReached is returned when no slot frees up within the wait window.
var ErrLimitReached = errors.New("concurrency limit reached")

// acquireScript increments the counter only while it is below ARGV[1].
// It returns the new count, or limit+1 when full.
var acquireScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
	return current + 1
end
local n = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
return n`)

// releaseScript decrements and drops the key once it reaches zero.
var releaseScript = redis.NewScript(`
local n = redis.call('DECR', KEYS[1])
if tonumber(n) <= 0 then
	redis.call('DEL', KEYS[1])
	return 0
end
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
return n`)

// RedisLimiter bounds concurrent calls per key across processes.
type RedisLimiter struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	maxWait   time.Duration
	logger    logrus.FieldLogger
}

// NewRedisLimiter creates a limiter. ttl expires counters left by crashed
// holders; maxWait bounds how long Acquire polls for a slot.
func NewRedisLimiter(client *redis.Client, keyPrefix string, ttl, maxWait time.Duration, logger logrus.FieldLogger) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		maxWait:   maxWait,
		logger:    logger,
	}
}

// Acquire takes one of limit slots for key, polling with capped exponential
// backoff until maxWait elapses or ctx is done.
func (rl *RedisLimiter) Acquire(ctx context.Context, key string, limit int) error {
	if limit <= 0 {
		return nil
	}
	redisKey := rl.keyPrefix + key
	start := time.Now()
	interval := 200 * time.Millisecond
	const maxInterval = 5 * time.Second

	for {
		n, err := acquireScript.Run(ctx, rl.client, []string{redisKey}, limit, int(rl.ttl.Seconds())).Int()
		if err != nil {
			return fmt.Errorf("run acquire script: %w", err)
		}
		if n <= limit {
			rl.logger.WithFields(logrus.Fields{"key": key, "current": n, "limit": limit}).Debug("limiter slot acquired")
			return nil
		}

		elapsed := time.Since(start)
		if elapsed >= rl.maxWait {
			return fmt.Errorf("%w: %s waited %v", ErrLimitReached, key, elapsed.Round(time.Millisecond))
		}
		rl.logger.WithFields(logrus.Fields{"key": key, "limit": limit}).Debug("limiter full, waiting")

		select {
		case <-time.After(interval):
			interval *= 2
			if interval > maxInterval {
				interval = maxInterval
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Release returns a slot. It uses its own context so a cancelled caller
// still frees the slot.
func (rl *RedisLimiter) Release(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, rl.client, []string{rl.keyPrefix + key}, int(rl.ttl.Seconds())).Err(); err != nil {
		rl.logger.WithError(err).WithField("key", key).Warn("limiter release failed")
	}
}

// Current returns the number of held slots for key.
func (rl *RedisLimiter) Current(ctx context.Context, key string) (int, error) {
	n, err := rl.client.Get(ctx, rl.keyPrefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get limiter count: %w", err)
	}
	return n, nil
}
