package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ATATEK_ADDR", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("TREE_SOURCE_TIMEOUT", "")
	t.Setenv("TREE_SOURCE_PACING", "")
	t.Setenv("DATABASE_URL", "")

	cfg := FromEnv()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, 25*time.Second, cfg.Server.RequestTimeout)
	assert.Nil(t, cfg.Kafka.Brokers)
	assert.Equal(t, 10*time.Second, cfg.Source.Timeout)
	assert.Equal(t, time.Second, cfg.Source.Pacing)
	assert.Equal(t, 600*time.Second, cfg.Cache.TreeChildrenTTL)
	assert.Equal(t, 600*time.Second, cfg.Cache.UserProfileTTL)
	assert.Equal(t, 180*time.Second, cfg.Cache.VerifyCodeTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("ATATEK_ADDR", ":9090")
	t.Setenv("TREE_SOURCE_TIMEOUT", "2s")
	t.Setenv("TREE_SOURCE_PACING", "not-a-duration")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("REDIS_POOL_SIZE", "-4")

	cfg := FromEnv()

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 2*time.Second, cfg.Source.Timeout)
	assert.Equal(t, time.Second, cfg.Source.Pacing, "invalid durations fall back")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 50, cfg.Redis.PoolSize, "non-positive ints fall back")
}
