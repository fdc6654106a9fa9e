package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"BACKEND_BASE_URL": "http://localhost:5001/api/",
		"REDIS_URL":        "redis://localhost:6379/0",
		"LOOKUP_DEBOUNCE":  "",
		"PORT":             "",
	})
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5001/api", cfg.BackendBaseURL)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 500*time.Millisecond, cfg.LookupDebounce)
	require.Equal(t, 3, cfg.BackendMaxAttempts)
	require.Equal(t, "lenient", cfg.ValidationStrictness)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadForTests(map[string]string{
		"BACKEND_BASE_URL":           "http://backend",
		"REDIS_URL":                  "redis://localhost:6379/0",
		"BACKEND_MAX_ATTEMPTS":       "5",
		"SUBMIT_LOCK_TTL":            "10s",
		"SALE_VALIDATION_STRICTNESS": "Strict",
		"CORS_ALLOWED_ORIGINS":       "http://a.test, http://b.test",
		"BACKEND_TIMEOUT":            "nonsense",
	})
	require.NoError(t, err)
	require.Equal(t, 5, cfg.BackendMaxAttempts)
	require.Equal(t, 10*time.Second, cfg.SubmitLockTTL)
	require.Equal(t, "strict", cfg.ValidationStrictness)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 10*time.Second, cfg.BackendTimeout)
}

func TestLoadRequiresBackendAndRedis(t *testing.T) {
	_, err := LoadForTests(map[string]string{"BACKEND_BASE_URL": "", "REDIS_URL": "redis://x"})
	require.ErrorContains(t, err, "BACKEND_BASE_URL")

	_, err = LoadForTests(map[string]string{"BACKEND_BASE_URL": "http://backend", "REDIS_URL": ""})
	require.ErrorContains(t, err, "REDIS_URL")

	_, err = LoadForTests(map[string]string{
		"BACKEND_BASE_URL":           "http://backend",
		"REDIS_URL":                  "redis://x",
		"SALE_VALIDATION_STRICTNESS": "loose",
	})
	require.ErrorContains(t, err, "SALE_VALIDATION_STRICTNESS")
}
