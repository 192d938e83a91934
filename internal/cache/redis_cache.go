package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
)

// Options configures a RedisCache. Zero values take defaults.
type Options struct {
	// Prefix is prepended to every key, e.g. "tubepay:".
	Prefix string
	TTLs   TTLs
	// OpTimeout bounds each Redis round trip.
	OpTimeout time.Duration
	// ScanCount is the COUNT hint for SCAN during pattern invalidation.
	ScanCount int64
	Breaker   BreakerSettings
}

// BreakerSettings configures the circuit breaker in front of Redis.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

const (
	defaultOpTimeout = 500 * time.Millisecond
	defaultScanCount = 100
)

// RedisCache is the single owner of key construction, TTL selection and
// invalidation fan-out. Reads report Hit, Miss or Degraded; writes and
// invalidations never fail the caller.
type RedisCache struct {
	client    redis.UniversalClient
	prefix    string
	ttls      TTLs
	opTimeout time.Duration
	scanCount int64
	breaker   *gobreaker.CircuitBreaker
}

// NewRedisCache wraps an already constructed client. The caller owns the
// client's lifecycle.
func NewRedisCache(client redis.UniversalClient, opts Options) *RedisCache {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = defaultOpTimeout
	}
	if opts.ScanCount <= 0 {
		opts.ScanCount = defaultScanCount
	}
	if opts.Breaker.ConsecutiveFailures == 0 {
		opts.Breaker.ConsecutiveFailures = 5
	}
	if opts.Breaker.OpenTimeout <= 0 {
		opts.Breaker.OpenTimeout = 10 * time.Second
	}
	if opts.Breaker.HalfOpenRequests == 0 {
		opts.Breaker.HalfOpenRequests = 1
	}

	bs := opts.Breaker
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: bs.HalfOpenRequests,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bs.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l := log.L()
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
		// A missing key or a caller that gave up says nothing about Redis
		// health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled)
		},
	})

	return &RedisCache{
		client:    client,
		prefix:    opts.Prefix,
		ttls:      opts.TTLs.withDefaults(),
		opTimeout: opts.OpTimeout,
		scanCount: opts.ScanCount,
		breaker:   breaker,
	}
}

// TTL returns the expiry applied to ns.
func (c *RedisCache) TTL(ns Namespace) time.Duration {
	return c.ttls.forNamespace(ns)
}

func (c *RedisCache) key(k string) string {
	return c.prefix + k
}

func (c *RedisCache) pattern(p string) string {
	return escapeGlob(c.prefix) + p
}

// do runs one Redis round trip under the op timeout and the breaker.
func (c *RedisCache) do(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

func (c *RedisCache) logFailure(ctx context.Context, ns Namespace, key, op string, err error) {
	cacheErrors.WithLabelValues(string(ns), op).Inc()

	l := log.Ctx(ctx)
	l.Warn().Err(err).
		Str(log.FieldNamespace, string(ns)).
		Str(log.FieldCacheKey, key).
		Str(log.FieldOperation, op).
		Msg("cache operation failed")
}

func getEntry[T any](ctx context.Context, c *RedisCache, codec Codec[T], key string) Result[T] {
	ns := codec.Namespace()

	var raw []byte
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = c.client.Get(ctx, c.key(key)).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		cacheReads.WithLabelValues(string(ns), Miss.String()).Inc()
		return Result[T]{Status: Miss}
	}
	if err != nil {
		cacheReads.WithLabelValues(string(ns), Degraded.String()).Inc()
		c.logFailure(ctx, ns, key, "get", err)
		return Result[T]{Status: Degraded, Err: err}
	}

	v, err := codec.Decode(raw)
	if err != nil {
		cacheReads.WithLabelValues(string(ns), Degraded.String()).Inc()
		c.logFailure(ctx, ns, key, "decode", err)
		// Drop the unreadable entry so the next read repopulates it.
		c.del(ctx, ns, key)
		return Result[T]{Status: Degraded, Err: err}
	}

	cacheReads.WithLabelValues(string(ns), Hit.String()).Inc()
	return Result[T]{Value: v, Status: Hit}
}

func setEntry[T any](ctx context.Context, c *RedisCache, codec Codec[T], key string, v T) {
	ns := codec.Namespace()

	data, err := codec.Encode(v)
	if err != nil {
		c.logFailure(ctx, ns, key, "encode", err)
		return
	}

	err = c.do(ctx, func(ctx context.Context) error {
		return c.client.Set(ctx, c.key(key), data, c.TTL(ns)).Err()
	})
	if err != nil {
		c.logFailure(ctx, ns, key, "set", err)
	}
}

// del deletes exact keys and returns how many existed.
func (c *RedisCache) del(ctx context.Context, ns Namespace, keys ...string) int {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}

	var n int64
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		n, err = c.client.Del(ctx, full...).Result()
		return err
	})
	if err != nil {
		c.logFailure(ctx, ns, keys[0], "delete", err)
		return 0
	}
	cacheInvalidations.WithLabelValues(string(ns)).Add(float64(n))
	return int(n)
}

// scanDelete deletes every key matching pattern (unprefixed, already
// escaped) and returns the number deleted. It stops at the first failure.
func (c *RedisCache) scanDelete(ctx context.Context, ns Namespace, pattern string) int {
	match := c.pattern(pattern)
	deleted := 0

	var cursor uint64
	for {
		var keys []string
		err := c.do(ctx, func(ctx context.Context) error {
			var err error
			keys, cursor, err = c.client.Scan(ctx, cursor, match, c.scanCount).Result()
			return err
		})
		if err != nil {
			c.logFailure(ctx, ns, match, "scan", err)
			break
		}

		if len(keys) > 0 {
			var n int64
			err := c.do(ctx, func(ctx context.Context) error {
				var err error
				n, err = c.client.Del(ctx, keys...).Result()
				return err
			})
			if err != nil {
				c.logFailure(ctx, ns, match, "delete", err)
				break
			}
			deleted += int(n)
		}

		if cursor == 0 {
			break
		}
	}

	cacheInvalidations.WithLabelValues(string(ns)).Add(float64(deleted))
	return deleted
}
