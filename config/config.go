package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port        string
	Environment string

	// Database
	PostgresURL string

	// LLM
	LLMAPIKey      string
	LLMBaseURL     string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// Notifications
	TelegramToken     string
	SchedulerEnabled  bool
	ActivityExpiryHrs int

	LogLevel string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, reading environment variables from the system")
	}

	cfg := &Config{
		Port:        getEnvWithDefault("PORT", "8000"),
		Environment: getEnvWithDefault("ENVIRONMENT", "development"),

		PostgresURL: os.Getenv("POSTGRES_URL"),

		LLMAPIKey:      os.Getenv("LLM_API_KEY"),
		LLMBaseURL:     getEnvWithDefault("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModel:       getEnvWithDefault("LLM_MODEL", "gpt-4"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2000),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),

		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		SchedulerEnabled:  getEnvBool("SCHEDULER_ENABLED", true),
		ActivityExpiryHrs: getEnvInt("ACTIVITY_EXPIRY_HOURS", 12),

		LogLevel: getEnvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PostgresURL == "" {
		return fmt.Errorf("POSTGRES_URL environment variable is not set")
	}

	if c.LLMAPIKey == "" {
		slog.Warn("LLM_API_KEY is not set, assistant endpoints will fail upstream calls")
	}

	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}
