package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	BackendBaseURL     string
	RedisURL           string
	CORSAllowedOrigins []string
	BodyLimitBytes     int64

	BackendTimeout        time.Duration
	BackendMaxAttempts    int
	BackendBaseBackoff    time.Duration
	BackendBreakerMinReqs int
	BackendBreakerRatio   float64
	BackendBreakerOpenFor time.Duration
	TokenClockSkew        time.Duration

	LookupCacheTTL  time.Duration
	LookupDebounce  time.Duration
	LookupRateLimit string

	SubmitLockTTL         time.Duration
	IdempotencyTTL        time.Duration
	SubmitRateLimitMax    int
	SubmitRateLimitWindow time.Duration
	ValidationStrictness  string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		BackendBaseURL:     strings.TrimRight(strings.TrimSpace(k.String("BACKEND_BASE_URL")), "/"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),

		BackendTimeout:        parseDuration(k.String("BACKEND_TIMEOUT"), "10s"),
		BackendMaxAttempts:    parseInt(k.String("BACKEND_MAX_ATTEMPTS"), 3),
		BackendBaseBackoff:    parseDuration(k.String("BACKEND_BASE_BACKOFF"), "200ms"),
		BackendBreakerMinReqs: parseInt(k.String("BACKEND_BREAKER_MIN_REQUESTS"), 10),
		BackendBreakerRatio:   parseFloat(k.String("BACKEND_BREAKER_FAILURE_RATIO"), 0.5),
		BackendBreakerOpenFor: parseDuration(k.String("BACKEND_BREAKER_OPEN_FOR"), "30s"),
		TokenClockSkew:        parseDuration(k.String("TOKEN_CLOCK_SKEW"), "30s"),

		LookupCacheTTL:  parseDuration(k.String("LOOKUP_CACHE_TTL"), "30s"),
		LookupDebounce:  parseDuration(k.String("LOOKUP_DEBOUNCE"), "500ms"),
		LookupRateLimit: valueOrDefault(k.String("LOOKUP_RATE_LIMIT"), "120-M"),

		SubmitLockTTL:         parseDuration(k.String("SUBMIT_LOCK_TTL"), "30s"),
		IdempotencyTTL:        parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		SubmitRateLimitMax:    parseInt(k.String("SUBMIT_RATE_LIMIT_MAX"), 20),
		SubmitRateLimitWindow: parseDuration(k.String("SUBMIT_RATE_LIMIT_WINDOW"), "1m"),
		ValidationStrictness:  strings.ToLower(valueOrDefault(k.String("SALE_VALIDATION_STRICTNESS"), "lenient")),
	}

	if cfg.BackendBaseURL == "" {
		return nil, errors.New("BACKEND_BASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	switch cfg.ValidationStrictness {
	case "strict", "lenient":
	default:
		return nil, fmt.Errorf("SALE_VALIDATION_STRICTNESS must be strict or lenient, got %q", cfg.ValidationStrictness)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseFloat(value string, fallback float64) float64 {
	parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
