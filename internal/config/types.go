package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName   string
	Port     string
	Turso    TursoConfig
	Auth     AuthConfig
	Slack    SlackConfig
	Realtime RealtimeConfig
	// ProjectID enables Google Pub/Sub fan-out of match events when set.
	ProjectID  string
	CORSOrigin string
}
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}
type SlackConfig struct {
	Token     string
	ChannelID string
}
type RealtimeConfig struct {
	// AllowAnonymous admits websocket clients without a valid token as guests.
	AllowAnonymous bool
}
