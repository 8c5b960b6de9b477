package config

import (
	"os"
	"strconv"
	"time"

	"github.com/kirillkom/irrrl-engine/internal/infrastructure/resilience"
)

type Config struct {
	APIPort  string
	LogLevel string

	// PostgresDSN selects the in-memory repository when empty.
	PostgresDSN string

	// NATSURL selects the log-only publisher when empty.
	NATSURL           string
	NATSSubjectPrefix string

	// RedisURL selects the in-process locker when empty.
	RedisURL string
	LockTTL  time.Duration

	PolicyFile string

	APIRateLimitRPS      float64
	APIRateLimitBurst    int
	APIMaxInFlight       int
	APIMaxConnections    int
	APIOpenAPIValidation bool

	WorkerMetricsPort     string
	WorkerAnalysisTimeout time.Duration

	Resilience resilience.Config
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		PostgresDSN: mustEnv("POSTGRES_DSN", ""),

		NATSURL:           mustEnv("NATS_URL", ""),
		NATSSubjectPrefix: mustEnv("NATS_SUBJECT_PREFIX", "irrrl"),

		RedisURL: mustEnv("REDIS_URL", ""),
		LockTTL:  time.Duration(mustEnvInt("LOCK_TTL_SECONDS", 30)) * time.Second,

		PolicyFile: mustEnv("POLICY_FILE", ""),

		APIRateLimitRPS:      mustEnvFloat("API_RATE_LIMIT_RPS", 50),
		APIRateLimitBurst:    mustEnvInt("API_RATE_LIMIT_BURST", 100),
		APIMaxInFlight:       mustEnvInt("API_MAX_IN_FLIGHT", 64),
		APIMaxConnections:    mustEnvInt("API_MAX_CONNECTIONS", 512),
		APIOpenAPIValidation: mustEnvBool("API_OPENAPI_VALIDATION", true),

		WorkerMetricsPort:     mustEnv("WORKER_METRICS_PORT", "9090"),
		WorkerAnalysisTimeout: time.Duration(mustEnvInt("WORKER_ANALYSIS_TIMEOUT_SECONDS", 30)) * time.Second,

		Resilience: resilience.Config{
			Retry: resilience.RetryConfig{
				MaxAttempts:    mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
				InitialBackoff: time.Duration(mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 100)) * time.Millisecond,
				MaxBackoff:     time.Duration(mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", 400)) * time.Millisecond,
				Multiplier:     mustEnvFloat("RESILIENCE_RETRY_MULTIPLIER", 2),
			},
			Breaker: resilience.BreakerConfig{
				Enabled:          mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
				MinRequests:      uint32(max(mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 10), 0)),
				FailureRatio:     mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.5),
				OpenTimeout:      time.Duration(mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_SECONDS", 30)) * time.Second,
				HalfOpenMaxCalls: uint32(max(mustEnvInt("RESILIENCE_BREAKER_HALF_OPEN_MAX_CALLS", 2), 0)),
			},
		},
	}
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
