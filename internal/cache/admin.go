package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ManikLakhanpal/Tube-Pay/pkg/log"
)

// HealthStatus is the result of a cache health probe.
type HealthStatus struct {
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Breaker   string    `json:"breaker"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Stats is a snapshot of the Redis backend.
type Stats struct {
	DBSize    int64             `json:"dbSize"`
	Server    map[string]string `json:"stats,omitempty"`
	Keyspace  map[string]string `json:"keyspace,omitempty"`
	Breaker   string            `json:"breaker"`
	Timestamp time.Time         `json:"timestamp"`
}

// paymentPrefixes are cleared by ClearPaymentCaches.
var paymentPrefixes = []Namespace{
	"payment",
	NSSentPayments,
	NSReceivedPayments,
	NSDonations,
	NSStreamStats,
}

// HealthCheck pings Redis.
func (c *RedisCache) HealthCheck(ctx context.Context) HealthStatus {
	hs := HealthStatus{
		Status:    StatusHealthy,
		Breaker:   c.breaker.State().String(),
		Timestamp: time.Now().UTC(),
	}

	err := c.do(ctx, func(ctx context.Context) error {
		return c.client.Ping(ctx).Err()
	})
	if err != nil {
		hs.Status = StatusUnhealthy
		hs.Error = err.Error()
	}
	return hs
}

// Stats reports the key count and the INFO stats and keyspace sections.
// An INFO failure leaves its section empty; only a DBSIZE failure is an
// error.
func (c *RedisCache) Stats(ctx context.Context) (*Stats, error) {
	s := &Stats{
		Breaker:   c.breaker.State().String(),
		Timestamp: time.Now().UTC(),
	}

	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		s.DBSize, err = c.client.DBSize(ctx).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read redis dbsize: %w", err)
	}

	s.Server = c.infoSection(ctx, "stats")
	s.Keyspace = c.infoSection(ctx, "keyspace")
	return s, nil
}

func (c *RedisCache) infoSection(ctx context.Context, section string) map[string]string {
	var raw string
	err := c.do(ctx, func(ctx context.Context) error {
		var err error
		raw, err = c.client.Info(ctx, section).Result()
		return err
	})
	if err != nil {
		l := log.Ctx(ctx)
		l.Debug().Err(err).Str("section", section).Msg("redis info unavailable")
		return nil
	}
	return parseInfo(raw)
}

// parseInfo turns "key:value" lines of an INFO reply into a map.
func parseInfo(raw string) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if k, v, ok := strings.Cut(line, ":"); ok {
			out[k] = v
		}
	}
	return out
}

// ClearNamespace deletes every key starting with prefix and returns the
// number deleted.
func (c *RedisCache) ClearNamespace(ctx context.Context, prefix string) int {
	n := c.scanDelete(ctx, Namespace(prefix), escapeGlob(prefix)+"*")

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldNamespace, prefix).Int("deleted", n).Msg("cache namespace cleared")
	return n
}

// ClearPaymentCaches deletes every payment-derived key.
func (c *RedisCache) ClearPaymentCaches(ctx context.Context) int {
	total := 0
	for _, p := range paymentPrefixes {
		total += c.ClearNamespace(ctx, string(p))
	}
	return total
}
