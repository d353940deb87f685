package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// validate is shared across Load calls; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL     string     `validate:"required,url"`
	LLMAPIKey      string     `validate:"required"`
	LLMModelName   string     `validate:"required"`
	LLMTemperature float64    `validate:"gte=0,lte=2"`
	LLMMaxTokens   int        `validate:"gt=0,lte=4096"`
	LLMMaxRetries  int        `validate:"gte=0,lte=10"`
	APIPort        string     `validate:"required"`
	DBPath         string     `validate:"required"`
	LogLevel       slog.Level `validate:"-"`
	LogFormat      string     `validate:"oneof=text json"`
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	// Check current directory first, then walk up to find project root (where go.mod is)
	_ = godotenv.Load() // Try current directory

	// Try to find project root by looking for go.mod
	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break // Reached filesystem root
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:   getEnv("LLM_BASE_URL", "https://api.openai.com"),
		LLMAPIKey:    getEnv("LLM_API_KEY", ""),
		LLMModelName: getEnv("LLM_MODEL", "gpt-4o-mini"),
		APIPort:      getEnv("API_PORT", "9000"),
		DBPath:       getEnv("DB_PATH", "./data/jobchat-ai.db"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
	}

	// The provider credential is the only variable without a usable default.
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}

	temperature, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.3"), 64)
	if err != nil {
		return nil, fmt.Errorf("LLM_TEMPERATURE must be a valid number: %w", err)
	}
	cfg.LLMTemperature = temperature

	maxTokens, err := strconv.Atoi(getEnv("LLM_MAX_TOKENS", "350"))
	if err != nil {
		return nil, fmt.Errorf("LLM_MAX_TOKENS must be a valid integer: %w", err)
	}
	cfg.LLMMaxTokens = maxTokens

	maxRetries, err := strconv.Atoi(getEnv("LLM_MAX_RETRIES", "2"))
	if err != nil {
		return nil, fmt.Errorf("LLM_MAX_RETRIES must be a valid integer: %w", err)
	}
	cfg.LLMMaxRetries = maxRetries

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Create the data directory if it doesn't exist (for the DB file)
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseLogLevel maps a LOG_LEVEL string to a slog level.
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error (got %q)", s)
}
