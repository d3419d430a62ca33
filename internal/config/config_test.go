package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, "stravalink", cfg.ServiceName)
	require.Equal(t, "https://www.strava.com", cfg.StravaBaseURL)
	require.Equal(t, "activity:read_all", cfg.StravaScope)
	require.Equal(t, 6*time.Hour, cfg.EventDedupeTTL)
	require.Equal(t, 600, cfg.RateLimitRPM)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("STRAVA_CLIENT_ID", "12345")
	t.Setenv("STRAVA_SCOPE", "activity:read")
	t.Setenv("EVENT_DEDUPE_TTL", "90m")
	t.Setenv("RATE_LIMIT_RPM", "120")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, "9090", cfg.HTTPPort)
	require.Equal(t, "12345", cfg.StravaClientID)
	require.Equal(t, "activity:read", cfg.StravaScope)
	require.Equal(t, 90*time.Minute, cfg.EventDedupeTTL)
	require.Equal(t, 120, cfg.RateLimitRPM)
	require.Equal(t, 3, cfg.RedisDB)
}

func TestLoadDoesNotRequireProviderSettings(t *testing.T) {
	// Missing Strava and Discord values surface per-request, not at startup.
	cfg, err := Load()
	require.NoError(t, err)
	require.Empty(t, cfg.StateSigningSecret)
	require.Empty(t, cfg.DiscordWebhookURL)
}

func TestLoadNormalizesBaseURL(t *testing.T) {
	t.Setenv("STRAVA_BASE_URL", "https://strava.test/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "https://strava.test", cfg.StravaBaseURL)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("EVENT_DEDUPE_TTL", "soon")
	t.Setenv("RATE_LIMIT_RPM", "lots")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 6*time.Hour, cfg.EventDedupeTTL)
	require.Equal(t, 600, cfg.RateLimitRPM)
	require.True(t, cfg.TelemetryInsecure)
}
