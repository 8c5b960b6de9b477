package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsToInProcessAdapters(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("NATS_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("LOCK_TTL_SECONDS", "")
	t.Setenv("API_RATE_LIMIT_RPS", "")
	t.Setenv("API_OPENAPI_VALIDATION", "")

	cfg := Load()
	if cfg.PostgresDSN != "" || cfg.NATSURL != "" || cfg.RedisURL != "" {
		t.Fatalf("expected in-process adapters by default, got %+v", cfg)
	}
	if cfg.NATSSubjectPrefix != "irrrl" {
		t.Fatalf("expected default subject prefix irrrl, got %q", cfg.NATSSubjectPrefix)
	}
	if cfg.LockTTL != 30*time.Second {
		t.Fatalf("expected default lock ttl 30s, got %v", cfg.LockTTL)
	}
	if cfg.APIRateLimitRPS != 50 || !cfg.APIOpenAPIValidation {
		t.Fatalf("unexpected traffic defaults rps=%v validation=%v", cfg.APIRateLimitRPS, cfg.APIOpenAPIValidation)
	}
	if cfg.Resilience.Retry.MaxAttempts != 3 || !cfg.Resilience.Breaker.Enabled {
		t.Fatalf("unexpected resilience defaults %+v", cfg.Resilience)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("LOCK_TTL_SECONDS", "5")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("API_OPENAPI_VALIDATION", "false")
	t.Setenv("WORKER_ANALYSIS_TIMEOUT_SECONDS", "12")
	t.Setenv("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", "20")
	t.Setenv("RESILIENCE_BREAKER_MIN_REQUESTS", "4")

	cfg := Load()
	if cfg.LockTTL != 5*time.Second {
		t.Fatalf("expected lock ttl 5s, got %v", cfg.LockTTL)
	}
	if cfg.APIRateLimitRPS != 2.5 || cfg.APIOpenAPIValidation {
		t.Fatalf("unexpected traffic overrides rps=%v validation=%v", cfg.APIRateLimitRPS, cfg.APIOpenAPIValidation)
	}
	if cfg.WorkerAnalysisTimeout != 12*time.Second {
		t.Fatalf("expected analysis timeout 12s, got %v", cfg.WorkerAnalysisTimeout)
	}
	if cfg.Resilience.Retry.InitialBackoff != 20*time.Millisecond || cfg.Resilience.Breaker.MinRequests != 4 {
		t.Fatalf("unexpected resilience overrides %+v", cfg.Resilience)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("API_MAX_IN_FLIGHT", "lots")
	t.Setenv("API_RATE_LIMIT_BURST", "1e3")

	cfg := Load()
	if cfg.APIMaxInFlight != 64 || cfg.APIRateLimitBurst != 100 {
		t.Fatalf("expected fallbacks, got in_flight=%d burst=%d", cfg.APIMaxInFlight, cfg.APIRateLimitBurst)
	}
}
