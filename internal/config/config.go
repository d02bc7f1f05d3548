// Package config reads the runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage drivers accepted by STORE_DRIVER.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	// Sources
	FeedsConfigPath     string
	RelevanceConfigPath string // empty = embedded defaults

	// Selection
	TopK       int
	NewsMaxAge time.Duration

	// Fetching
	FetchConcurrency int
	FetchTimeout     time.Duration
	UserAgent        string

	// Scraper settings
	MinBodyChars      int // feed bodies shorter than this get the full article
	ScrapeMaxArticles int // cap of articles to extract per run
	ScrapeInterval    time.Duration

	// Storage
	StoreDriver     string
	StoreDSN        string
	CacheFilePath   string
	CacheTTLHours   int
	DuplicateWindow int // hours for similar-title detection

	// Publishing
	PublishEnabled bool
	TelegramToken  string
	TelegramChatID string
	PostInterval   time.Duration
	MaxPostsPerRun int
	MaxPostChars   int
	HashtagRegion  string

	// Gemini settings
	GeminiAPIKey      string
	GeminiModel       string
	MaxGeminiRequests int // maximum Gemini requests per run (0 = unlimited)

	// Monitoring
	EnableHTTPMonitoring bool
	MonitoringPort       string

	// App settings
	Debug         bool
	RetryAttempts int
	RetryDelay    time.Duration
	RetryBackoff  bool
}

func Load() (*Config, error) {
	cfg := &Config{
		FeedsConfigPath:     getEnvOrDefault("FEEDS_CONFIG_PATH", "configs/feeds.yaml"),
		RelevanceConfigPath: os.Getenv("RELEVANCE_CONFIG_PATH"),

		TopK:       getEnvIntOrDefault("TOP_K", 3),
		NewsMaxAge: getEnvDurationOrDefault("NEWS_MAX_AGE", 24*time.Hour),

		FetchConcurrency: getEnvIntOrDefault("FETCH_CONCURRENCY", 4),
		FetchTimeout:     getEnvDurationOrDefault("FETCH_TIMEOUT", 30*time.Second),
		UserAgent:        getEnvOrDefault("USER_AGENT", "Mozilla/5.0 (compatible; hrnews/1.0)"),

		MinBodyChars:      getEnvIntOrDefault("MIN_BODY_CHARS", 200),
		ScrapeMaxArticles: getEnvIntOrDefault("SCRAPE_MAX_ARTICLES", 10),
		ScrapeInterval:    getEnvDurationOrDefault("SCRAPE_INTERVAL", time.Second),

		StoreDriver:     strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverFile)),
		StoreDSN:        getEnvOrDefault("STORE_DSN", os.Getenv("DATABASE_URL")),
		CacheFilePath:   getEnvOrDefault("CACHE_FILE_PATH", "seen_news.json"),
		CacheTTLHours:   getEnvIntOrDefault("CACHE_TTL_HOURS", 48),
		DuplicateWindow: getEnvIntOrDefault("DUPLICATE_WINDOW_HOURS", 6),

		PublishEnabled: getEnvBoolOrDefault("PUBLISH_ENABLED", false),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),
		PostInterval:   getEnvDurationOrDefault("POST_INTERVAL", 2*time.Second),
		MaxPostsPerRun: getEnvIntOrDefault("MAX_POSTS_PER_RUN", 3),
		MaxPostChars:   getEnvIntOrDefault("MAX_POST_CHARS", 280),
		HashtagRegion:  getEnvOrDefault("HASHTAG_REGION", "Haryana"),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		MaxGeminiRequests: getEnvIntOrDefault("MAX_GEMINI_REQUESTS", 3),

		EnableHTTPMonitoring: getEnvBoolOrDefault("ENABLE_HTTP_MONITORING", false),
		MonitoringPort:       getEnvOrDefault("MONITORING_PORT", "8080"),

		Debug:         getEnvBoolOrDefault("DEBUG", false),
		RetryAttempts: getEnvIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryDelay:    getEnvDurationOrDefault("RETRY_DELAY", 5*time.Second),
		RetryBackoff:  getEnvBoolOrDefault("RETRY_BACKOFF", true),
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("90s") or plain seconds.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.FetchConcurrency <= 0 {
		return fmt.Errorf("FETCH_CONCURRENCY must be positive, got %d", c.FetchConcurrency)
	}
	if c.NewsMaxAge <= 0 {
		return fmt.Errorf("NEWS_MAX_AGE must be positive")
	}

	switch c.StoreDriver {
	case DriverFile:
		if c.CacheFilePath == "" {
			return fmt.Errorf("CACHE_FILE_PATH is required for the file store")
		}
	case DriverSQLite, DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("STORE_DSN is required for the %s store", c.StoreDriver)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of file, sqlite, postgres; got %q", c.StoreDriver)
	}

	if c.PublishEnabled {
		if c.TelegramToken == "" {
			return fmt.Errorf("TELEGRAM_TOKEN is required when PUBLISH_ENABLED=true")
		}
		if c.TelegramChatID == "" {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required when PUBLISH_ENABLED=true")
		}
	}
	return nil
}

// CacheTTL is CacheTTLHours as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}
