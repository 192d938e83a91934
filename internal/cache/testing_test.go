package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts Options) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr:       mr.Addr(),
		MaxRetries: -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCache(client, opts), mr
}

func requireTTL(t *testing.T, mr *miniredis.Miniredis, key string, want time.Duration) {
	t.Helper()
	require.True(t, mr.Exists(key), "key %q should exist", key)
	require.Equal(t, want, mr.TTL(key), "ttl of %q", key)
}
