// Package config loads the server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the application.
type Config struct {
	Addr        string
	YelpAPIKey  string
	DBPath      string
	BaseURL     string
	ShareSecret string

	// Telegram Config (optional; sharing to Telegram is off without it)
	TelegramBotToken string
	TelegramChatID   int64
}

// NewFromEnv creates a new Config object from environment variables,
// loading a .env file first when present. The Yelp credential is not
// validated here: the proxy rejects requests at call time so the rest
// of the app can still run without it.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:             getEnv("DINEAHEAD_ADDR", ":8080"),
		YelpAPIKey:       os.Getenv("YELP_API_KEY"),
		DBPath:           getEnv("DINEAHEAD_DB_PATH", "data/dineahead.db"),
		BaseURL:          getEnv("DINEAHEAD_BASE_URL", "http://localhost:8080"),
		ShareSecret:      os.Getenv("DINEAHEAD_SHARE_SECRET"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}

	if chatIDStr := os.Getenv("TELEGRAM_CHAT_ID"); chatIDStr != "" {
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", chatIDStr, err)
		}
		cfg.TelegramChatID = chatID
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
