package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config contains runtime configuration values. It is assembled once at
// process start and passed into constructors; no component reads the
// environment directly.
type Config struct {
	Environment string
	HTTPPort    string
	ServiceName string

	// DatabaseURL selects the Postgres credential store when set; the
	// in-memory store is used otherwise. RedisAddr does the same for the
	// event dedupe cache.
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StravaBaseURL      string
	StravaClientID     string
	StravaClientSecret string
	StravaRedirectURI  string
	StravaScope        string
	StravaVerifyToken  string
	StateSigningSecret string
	WebhookCallbackURL string

	DiscordWebhookURL string

	EventDedupeTTL    time.Duration
	RateLimitRPM      int
	TelemetryEndpoint string
	TelemetryInsecure bool
}

// Load reads configuration from environment variables with sane defaults.
// Strava and Discord settings are deliberately not required here: the
// handlers report 500 when a path needs a value that is absent, which keeps
// webhook verification alive when only account linking is misconfigured.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:        getEnv("APP_ENV", "development"),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		ServiceName:        getEnv("SERVICE_NAME", "stravalink"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getInt("REDIS_DB", 0),
		StravaBaseURL:      getEnv("STRAVA_BASE_URL", "https://www.strava.com"),
		StravaClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		StravaClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
		StravaRedirectURI:  os.Getenv("STRAVA_REDIRECT_URI"),
		StravaScope:        getEnv("STRAVA_SCOPE", "activity:read_all"),
		StravaVerifyToken:  os.Getenv("STRAVA_VERIFY_TOKEN"),
		StateSigningSecret: os.Getenv("STATE_SIGNING_SECRET"),
		WebhookCallbackURL: os.Getenv("WEBHOOK_CALLBACK_URL"),
		DiscordWebhookURL:  os.Getenv("DISCORD_WEBHOOK_URL"),
		EventDedupeTTL:     getDuration("EVENT_DEDUPE_TTL", 6*time.Hour),
		RateLimitRPM:       getInt("RATE_LIMIT_RPM", 600),
		TelemetryEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		TelemetryInsecure:  getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
	}

	cfg.StravaBaseURL = strings.TrimRight(cfg.StravaBaseURL, "/")
	if cfg.EventDedupeTTL <= 0 {
		cfg.EventDedupeTTL = 6 * time.Hour
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(v) {
		case "1", "true", "t", "yes", "y", "on":
			return true
		case "0", "false", "f", "no", "n", "off":
			return false
		}
	}
	return def
}
