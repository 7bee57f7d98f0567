package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken      string        `validate:"required"`
	DatabaseURL        string        `validate:"required"`
	AdminTelegramID    int64         `validate:"required,gt=0"`
	LogLevel           string        `validate:"oneof=trace debug info warn warning error fatal panic"`
	Environment        string        `validate:"oneof=development staging production test"`
	CronSpecAllowances string        `validate:"required"` // Daily allowance payout run
	CronSpecChores     string        `validate:"required"` // Daily chore occurrence generation
	ChoreLookaheadDays int           `validate:"gte=1,lte=31"`
	JobTimeout         time.Duration `validate:"gt=0"`
	MetricsAddr        string        `validate:"required,hostname_port"`
}

var validate = validator.New()

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
	if adminIDStr == "" {
		return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
	}
	cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	cfg.CronSpecAllowances = envOrDefault("CRON_SPEC_ALLOWANCES", "0 6 * * *") // 06:00 UTC daily
	cfg.CronSpecChores = envOrDefault("CRON_SPEC_CHORES", "0 5 * * *")         // 05:00 UTC daily

	cfg.ChoreLookaheadDays = 7
	if v := os.Getenv("CHORE_LOOKAHEAD_DAYS"); v != "" {
		cfg.ChoreLookaheadDays, err = strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CHORE_LOOKAHEAD_DAYS: %w", err)
		}
	}

	cfg.JobTimeout = 5 * time.Minute
	if v := os.Getenv("JOB_TIMEOUT"); v != "" {
		cfg.JobTimeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid JOB_TIMEOUT: %w", err)
		}
	}

	cfg.MetricsAddr = envOrDefault("METRICS_ADDR", ":9090")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
