package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"atatek/internal/platform/config"
)

const healthTimeout = 2 * time.Second

// Client is the shared Redis connection behind the cache.
type Client struct {
	*redis.Client
}

// New connects to cfg.URL. It returns a nil Client when no URL is configured,
// which callers treat as "cache disabled".
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health pings with its own short deadline so a hung backend cannot stall
// the health endpoint.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	return c.Ping(ctx).Err()
}

// RegisterPoolMetrics exposes connection pool gauges on reg.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) {
	stat := func(name, help string, read func(*redis.PoolStats) uint32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "atatek_redis_pool_" + name,
			Help: help,
		}, func() float64 { return float64(read(c.PoolStats())) })
	}
	reg.MustRegister(
		stat("total_conns", "Connections currently in the pool", func(s *redis.PoolStats) uint32 { return s.TotalConns }),
		stat("idle_conns", "Idle connections in the pool", func(s *redis.PoolStats) uint32 { return s.IdleConns }),
		stat("wait_timeouts", "Pool waits that timed out since start", func(s *redis.PoolStats) uint32 { return s.Timeouts }),
	)
}
