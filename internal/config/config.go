// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/admin.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches the bootstrap migrations
// --------------------------------------------------------------------------

const (
	ProductsTable    = "products"
	EventsTable      = "product_events"
	SubscribersTable = "subscribers"
	TasksTable       = "notification_tasks"
	FeedItemsTable   = "feed_items"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string `validate:"required"`
	DBPoolMinConns int    `validate:"gte=0"`
	DBPoolMaxConns int    `validate:"gte=1"`
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int    `validate:"gte=1,lte=65535"`
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting (inbound API)
	RateLimitEnabled  bool
	RateLimitRequests int `validate:"gte=1"`
	RateLimitWindow   time.Duration

	// Monitoring scheduler
	CheckInterval  time.Duration `validate:"required"`
	CheckWorkers   int           `validate:"gte=1"`
	FetchTimeout   time.Duration `validate:"required"`
	FetchPerMinute int           `validate:"gte=1"` // outbound budget shared by all workers
	MaxFailures    int           `validate:"gte=1"` // consecutive failures before status=failed
	BackoffBase    time.Duration `validate:"required"`
	BackoffMax     time.Duration `validate:"required"`

	// Notification queue
	DrainInterval   time.Duration `validate:"required"`
	DrainBatchSize  int           `validate:"gte=1"`
	DispatchTimeout time.Duration `validate:"required"`
	DryRun          bool
	RetentionWindow time.Duration `validate:"required"`

	// Feeds
	FeedMaxItems int           `validate:"gte=1"`
	FeedMaxAge   time.Duration `validate:"required"`
	FeedBaseURL  string

	// Email (AWS SESv2)
	SESFromEmail string
	AWSRegion    string

	// Telegram
	TelegramBotToken string

	// Daily summary report
	SummaryEnabled bool
	SummaryHour    int `validate:"gte=0,lte=23"` // local wall-clock hour

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("DEALWATCH_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or DEALWATCH_DATABASE_URL must be set")
	}

	cfg := &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CheckInterval:  envDuration("CHECK_INTERVAL", 5*time.Minute),
		CheckWorkers:   envInt("CHECK_WORKERS", 4),
		FetchTimeout:   envDuration("FETCH_TIMEOUT", 20*time.Second),
		FetchPerMinute: envInt("FETCH_PER_MINUTE", 30),
		MaxFailures:    envInt("MAX_FAILURES", 5),
		BackoffBase:    envDuration("BACKOFF_BASE", 2*time.Minute),
		BackoffMax:     envDuration("BACKOFF_MAX", 2*time.Hour),

		DrainInterval:   envDuration("DRAIN_INTERVAL", 30*time.Second),
		DrainBatchSize:  envInt("DRAIN_BATCH_SIZE", 100),
		DispatchTimeout: envDuration("DISPATCH_TIMEOUT", 10*time.Second),
		DryRun:          envBool("DRY_RUN", false),
		RetentionWindow: time.Duration(envInt("RETENTION_DAYS", 30)) * 24 * time.Hour,

		FeedMaxItems: envInt("FEED_MAX_ITEMS", 50),
		FeedMaxAge:   time.Duration(envInt("FEED_MAX_AGE_DAYS", 7)) * 24 * time.Hour,
		FeedBaseURL:  envOr("FEED_BASE_URL", "http://localhost:8000"),

		SESFromEmail: envOr("SES_FROM_EMAIL", ""),
		AWSRegion:    envOr("AWS_REGION", "us-east-2"),

		TelegramBotToken: envOr("TELEGRAM_BOT_TOKEN", ""),

		SummaryEnabled: envBool("SUMMARY_ENABLED", true),
		SummaryHour:    envInt("SUMMARY_HOUR", 9),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
