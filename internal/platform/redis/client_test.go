package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atatek/internal/platform/config"
)

func TestNewWithoutURLDisablesRedis(t *testing.T) {
	c, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "://nope"})
	assert.Error(t, err)
}

func TestHealthAndPoolMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), config.RedisConfig{
		URL:         "redis://" + mr.Addr(),
		PoolSize:    4,
		DialTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Health(context.Background()))

	reg := prometheus.NewRegistry()
	c.RegisterPoolMetrics(reg)
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{
		"atatek_redis_pool_total_conns",
		"atatek_redis_pool_idle_conns",
		"atatek_redis_pool_wait_timeouts",
	}, names)

	mr.Close()
	assert.Error(t, c.Health(context.Background()))
}
