package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates everything cmd/server needs to wire the application.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Source   SourceConfig
	Cache    CacheConfig
	Kafka    KafkaConfig
	LogLevel string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
	// RequestTimeout bounds authenticated API requests.
	RequestTimeout time.Duration
}

// DatabaseConfig configures the PostgreSQL pool. An empty URL selects the
// in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the cache backend. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SourceConfig configures the external genealogy source.
type SourceConfig struct {
	BaseURL string
	Timeout time.Duration
	// Pacing is the minimum gap between two requests to the source.
	Pacing time.Duration
	// ActorID is recorded as created_by on nodes inserted by sync.
	ActorID int64
	// BreakerThreshold consecutive outages open the source circuit for
	// BreakerCooldown between probes.
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// CacheConfig holds per-namespace TTLs.
type CacheConfig struct {
	TreeChildrenTTL time.Duration
	UserProfileTTL  time.Duration
	VerifyCodeTTL   time.Duration
}

// KafkaConfig configures the audit event sink. No brokers means audit events
// go to the log.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

const defaultSourceURL = "https://tumalas.kz/wp-admin/admin-ajax.php?action=tuma_cached_childnew_get&nodeid=14"

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:            envString("ATATEK_ADDR", ":8080"),
			ShutdownTimeout: envDuration("ATATEK_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  envDuration("ATATEK_REQUEST_TIMEOUT", 25*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 50),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 5),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Source: SourceConfig{
			BaseURL: envString("TREE_SOURCE_URL", defaultSourceURL),
			Timeout: envDuration("TREE_SOURCE_TIMEOUT", 10*time.Second),
			Pacing:  envDuration("TREE_SOURCE_PACING", time.Second),
			ActorID: int64(envInt("TREE_SYNC_ACTOR_ID", 1)),

			BreakerThreshold: envInt("TREE_SOURCE_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  envDuration("TREE_SOURCE_BREAKER_COOLDOWN", 30*time.Second),
		},
		Cache: CacheConfig{
			TreeChildrenTTL: envDuration("CACHE_TREE_CHILDREN_TTL", 600*time.Second),
			UserProfileTTL:  envDuration("CACHE_USER_PROFILE_TTL", 600*time.Second),
			VerifyCodeTTL:   envDuration("CACHE_VERIFY_CODE_TTL", 180*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    envList("KAFKA_BROKERS"),
			AuditTopic: envString("KAFKA_AUDIT_TOPIC", "atatek.audit"),
		},
		LogLevel: envString("LOG_LEVEL", "info"),
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
