package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

const defaultTokenTTL = 7 * 24 * time.Hour

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok && value != "" {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}

	return Config{
		DBName: getEnvDefault("DB_NAME", "pickup.db"),
		Port:   getEnvDefault("PORT", "8080"),
		Turso: TursoConfig{
			PrimaryURL: os.Getenv("TURSO_PRIMARY_URL"),
			AuthToken:  os.Getenv("TURSO_AUTH_TOKEN"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET"),
			TokenTTL:  parseDuration(os.Getenv("JWT_EXPIRES_IN"), defaultTokenTTL),
		},
		Slack: SlackConfig{
			Token:     os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID: os.Getenv("SLACK_CHANNEL_ID"),
		},
		Realtime: RealtimeConfig{
			AllowAnonymous: parseBool(os.Getenv("REALTIME_ALLOW_ANONYMOUS")),
		},
		ProjectID:  os.Getenv("GCP_PROJECT"),
		CORSOrigin: getEnvDefault("CORS_ORIGIN", "*"),
	}
}

func getEnvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(raw)
	return err == nil && value
}

// parseDuration accepts Go durations ("12h") and the day shorthand ("7d").
func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if n := len(raw); n > 1 && raw[n-1] == 'd' {
		if days, err := strconv.Atoi(raw[:n-1]); err == nil && days > 0 {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Warn("Invalid duration, using default", "value", raw, "default", fallback)
		return fallback
	}
	return d
}
