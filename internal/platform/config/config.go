// Package config builds runtime configuration from the environment so
// main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "github.com/brahimakil/buscollege-mobile-sub000/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// AdminToken is the shared secret for operator endpoints.
	AdminToken string

	// BoardingCodeSecret keys the boarding-code MAC. Rotating it
	// invalidates every outstanding code.
	BoardingCodeSecret string

	// PostgresDSN selects the durable bus store; empty means the
	// in-memory store (dev and tests only).
	PostgresDSN string

	Redis RedisConfig
	Sweep SweepConfig
	Kafka KafkaConfig
}

// RedisConfig configures the optional Redis client used for the sweep
// lease. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SweepConfig tunes the expiration scheduler.
type SweepConfig struct {
	Interval    time.Duration
	Budget      time.Duration
	BatchSize   int
	Concurrency int
}

// KafkaConfig configures the optional audit event sink. No brokers means
// audit events stay in memory.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development fallback, must be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}
	codeSecret := os.Getenv("BOARDING_CODE_SECRET")
	if codeSecret == "" {
		codeSecret = jwtSigningKey
	}

	return Server{
		Addr:               envString("BUSCOLLEGE_ADDR", ":8080"),
		JWTSigningKey:      jwtSigningKey,
		JWTIssuer:          envString("JWT_ISSUER", "buscollege"),
		JWTAudience:        envString("JWT_AUDIENCE", "buscollege-mobile"),
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		BoardingCodeSecret: codeSecret,
		PostgresDSN:        os.Getenv("POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Sweep: SweepConfig{
			Interval:    envDuration("SWEEP_INTERVAL", time.Hour),
			Budget:      envDuration("SWEEP_BUDGET", 10*time.Minute),
			BatchSize:   envInt("SWEEP_BATCH_SIZE", 500),
			Concurrency: envInt("SWEEP_CONCURRENCY", 8),
		},
		Kafka: KafkaConfig{
			Brokers: envList("KAFKA_BROKERS"),
			Topic:   envString("KAFKA_AUDIT_TOPIC", "buscollege.audit"),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	return pstrings.DedupeAndTrim(strings.Split(v, ","))
}
