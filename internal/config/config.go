// Package config loads the immutable runtime configuration from the
// environment. It is read once at startup; a missing chat credential is a
// fatal startup error.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config holds everything the process needs at startup.
type Config struct {
	// TelegramBotToken authenticates against the Telegram Bot API.
	// Required.
	TelegramBotToken string

	// Port is where the liveness/metrics server listens.
	Port string

	// CeremonyBaseURL overrides the ceremony backend, mainly for tests.
	// Empty selects the production backend.
	CeremonyBaseURL string

	// LogLevel is the slog level for the whole process.
	LogLevel slog.Level
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if cfg.TelegramBotToken == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.Port = getEnvString("PORT", "10000")
	cfg.CeremonyBaseURL = os.Getenv("CEREMONY_BASE_URL")
	cfg.LogLevel = parseLogLevel(getEnvString("LOG_LEVEL", "info"))

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
