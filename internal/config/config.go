// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log/slog"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

type Config struct {
	Host string `env:"HOST,default=0.0.0.0"`
	Port int    `env:"PORT,default=8080"`

	// DatabaseURL empty selects the in-memory backend; VALKEY_ADDRESS empty
	// falls back to hub-local presence.
	DatabaseURL   string `env:"DATABASE_URL"`
	ValkeyAddress string `env:"VALKEY_ADDRESS"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,default=720h"`

	MessageMaxLength     int `env:"MESSAGE_MAX_LENGTH,default=2000"`
	DefaultPageSize      int `env:"DEFAULT_PAGE_SIZE,default=50"`
	ConnectionBufferSize int `env:"CONNECTION_BUFFER_SIZE,default=256"`

	AllowedOrigin string `env:"ALLOWED_ORIGIN,default=*"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
