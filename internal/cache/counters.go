package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// IncrementDonationTotal adds amount to the stream's running total and
// pushes its expiry out to DonationTTL. A missing counter starts at amount.
// ok is false when Redis could not be updated.
func (c *RedisCache) IncrementDonationTotal(ctx context.Context, streamID string, amount float64) (total float64, ok bool) {
	key := entityKey(NSDonations, streamID)

	err := c.do(ctx, func(ctx context.Context) error {
		pipe := c.client.TxPipeline()
		incr := pipe.IncrByFloat(ctx, c.key(key), amount)
		pipe.Expire(ctx, c.key(key), DonationTTL)
		if _, err := pipe.Exec(ctx); err != nil {
			return err
		}
		total = incr.Val()
		return nil
	})
	if err != nil {
		c.logFailure(ctx, NSDonations, key, "incrbyfloat", err)
		return 0, false
	}
	return total, true
}

// GetDonationTotal returns the stream's running total, or 0 when the
// counter is absent or unreadable.
func (c *RedisCache) GetDonationTotal(ctx context.Context, streamID string) float64 {
	key := entityKey(NSDonations, streamID)

	var raw string
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = c.client.Get(ctx, c.key(key)).Result()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		c.logFailure(ctx, NSDonations, key, "get", err)
		return 0
	}

	total, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.logFailure(ctx, NSDonations, key, "decode", err)
		return 0
	}
	return total
}

// CheckRateLimit counts one attempt of action by userID in a fixed window
// and reports whether it is within limit. The window starts at the first
// attempt. Any Redis failure allows the attempt.
func (c *RedisCache) CheckRateLimit(ctx context.Context, userID, action string, limit int64, window time.Duration) bool {
	key := rateLimitKey(action, userID)

	var count int64
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		count, err = c.client.Incr(ctx, c.key(key)).Result()
		return err
	})
	if err != nil {
		c.logFailure(ctx, NSRateLimit, key, "incr", err)
		rateLimitDecisions.WithLabelValues(action, "fail_open").Inc()
		return true
	}

	if count == 1 {
		c.expireWindow(ctx, key, window)
	} else if count > limit {
		// A counter left without an expiry (EXPIRE lost after INCR) would
		// block the user forever.
		c.repairWindow(ctx, key, window)
	}

	if count > limit {
		rateLimitDecisions.WithLabelValues(action, "rejected").Inc()
		return false
	}
	rateLimitDecisions.WithLabelValues(action, "allowed").Inc()
	return true
}

func (c *RedisCache) expireWindow(ctx context.Context, key string, window time.Duration) {
	err := c.do(ctx, func(ctx context.Context) error {
		return c.client.Expire(ctx, c.key(key), window).Err()
	})
	if err != nil {
		c.logFailure(ctx, NSRateLimit, key, "expire", err)
	}
}

func (c *RedisCache) repairWindow(ctx context.Context, key string, window time.Duration) {
	var ttl time.Duration
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		ttl, err = c.client.TTL(ctx, c.key(key)).Result()
		return err
	})
	if err != nil {
		c.logFailure(ctx, NSRateLimit, key, "ttl", err)
		return
	}
	// go-redis reports "no expiry" as -1 (a negative duration).
	if ttl == -1 {
		c.expireWindow(ctx, key, window)
	}
}
