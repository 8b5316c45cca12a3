package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	Extractor ExtractorConfig
	Scraper   ScraperConfig
	Browser   BrowserConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Queue     QueueConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// ExtractorConfig carries the engine's plausibility bands and tie-break
// constants. The defaults are the tuned production values; values outside a
// band are discarded, never clamped.
type ExtractorConfig struct {
	// Plausible consumer-price bands, EUR.
	TotalMin   float64
	TotalMax   float64
	PerUnitMin float64
	PerUnitMax float64
	PerDoseMax float64

	// A kg- or litre-derived implied total replaces the chosen total when the
	// chosen total exceeds it by more than this factor.
	UnitDominance float64

	// Prefer the first visible price over the chosen one when the chosen
	// total exceeds it by more than this factor and a related-products
	// carousel heading follows (intermarche layout).
	CarouselCutoff float64

	// Plausible consumer-pack weight range, kilograms.
	PackKgMin float64
	PackKgMax float64

	// Ratio windows for the last-resort scan that picks a total relative to
	// a detected per-kg / per-litre price.
	KgRatioLow     float64
	KgRatioHigh    float64
	LiterRatioLow  float64
	LiterRatioHigh float64

	// How far into the page text quantity parsing reads when the title
	// yields nothing.
	TextScanLimit int
}

type ScraperConfig struct {
	RateLimitMin    time.Duration
	RateLimitMax    time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	ConcurrentLimit int
	DebugDumpDir    string
}

type BrowserConfig struct {
	Enabled        bool
	Headless       bool
	Timeout        time.Duration
	BotWallTimeout time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	AcceptLanguage string
	TimezoneID     string
	Locale         string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QueueConfig struct {
	Type      string
	BatchSize int
	MaxSize   int
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Extractor: ExtractorConfig{
			TotalMin:       getFloatOrDefault("EXTRACTOR_TOTAL_MIN", 0.20),
			TotalMax:       getFloatOrDefault("EXTRACTOR_TOTAL_MAX", 200.00),
			PerUnitMin:     getFloatOrDefault("EXTRACTOR_PER_UNIT_MIN", 0.01),
			PerUnitMax:     getFloatOrDefault("EXTRACTOR_PER_UNIT_MAX", 999.00),
			PerDoseMax:     getFloatOrDefault("EXTRACTOR_PER_DOSE_MAX", 10.00),
			UnitDominance:  getFloatOrDefault("EXTRACTOR_UNIT_DOMINANCE", 1.18),
			CarouselCutoff: getFloatOrDefault("EXTRACTOR_CAROUSEL_CUTOFF", 1.5),
			PackKgMin:      getFloatOrDefault("EXTRACTOR_PACK_KG_MIN", 0.05),
			PackKgMax:      getFloatOrDefault("EXTRACTOR_PACK_KG_MAX", 5.0),
			KgRatioLow:     getFloatOrDefault("EXTRACTOR_KG_RATIO_LOW", 0.15),
			KgRatioHigh:    getFloatOrDefault("EXTRACTOR_KG_RATIO_HIGH", 0.95),
			LiterRatioLow:  getFloatOrDefault("EXTRACTOR_LITER_RATIO_LOW", 0.3),
			LiterRatioHigh: getFloatOrDefault("EXTRACTOR_LITER_RATIO_HIGH", 3.2),
			TextScanLimit:  getIntOrDefault("EXTRACTOR_TEXT_SCAN_LIMIT", 6000),
		},
		Scraper: ScraperConfig{
			RateLimitMin:    getDurationOrDefault("SCRAPER_RATE_LIMIT_MIN", 5*time.Second),
			RateLimitMax:    getDurationOrDefault("SCRAPER_RATE_LIMIT_MAX", 30*time.Second),
			MaxRetries:      getIntOrDefault("SCRAPER_MAX_RETRIES", 3),
			RetryDelay:      getDurationOrDefault("SCRAPER_RETRY_DELAY", 5*time.Second),
			ConcurrentLimit: getIntOrDefault("SCRAPER_CONCURRENT_LIMIT", 2),
			DebugDumpDir:    getEnvOrDefault("SCRAPER_DEBUG_DUMP_DIR", ""),
		},
		Browser: BrowserConfig{
			Enabled:        getBoolOrDefault("BROWSER_ENABLED", true),
			Headless:       getBoolOrDefault("BROWSER_HEADLESS", true),
			Timeout:        getDurationOrDefault("BROWSER_TIMEOUT", 30*time.Second),
			BotWallTimeout: getDurationOrDefault("BROWSER_BOT_WALL_TIMEOUT", 3*time.Minute),
			UserAgent:      getEnvOrDefault("BROWSER_USER_AGENT", defaultUserAgent),
			ViewportWidth:  getIntOrDefault("BROWSER_VIEWPORT_WIDTH", 1920),
			ViewportHeight: getIntOrDefault("BROWSER_VIEWPORT_HEIGHT", 1080),
			AcceptLanguage: getEnvOrDefault("BROWSER_ACCEPT_LANGUAGE", "fr-FR,fr;q=0.9,en;q=0.8"),
			TimezoneID:     getEnvOrDefault("BROWSER_TIMEZONE", "Europe/Paris"),
			Locale:         getEnvOrDefault("BROWSER_LOCALE", "fr-FR"),
		},
		Database: DatabaseConfig{
			Enabled:  getBoolOrDefault("DB_ENABLED", false),
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getIntOrDefault("DB_PORT", 5432),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", ""),
			DBName:   getEnvOrDefault("DB_NAME", "maxicourses"),
			SSLMode:  getEnvOrDefault("DB_SSL_MODE", "disable"),
			MaxConns: int32(getIntOrDefault("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			DB:       getIntOrDefault("REDIS_DB", 0),
		},
		Queue: QueueConfig{
			Type:      getEnvOrDefault("QUEUE_TYPE", "memory"),
			BatchSize: getIntOrDefault("QUEUE_BATCH_SIZE", 10),
			MaxSize:   getIntOrDefault("QUEUE_MAX_SIZE", 1000),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Extractor.TotalMin >= c.Extractor.TotalMax {
		return fmt.Errorf("EXTRACTOR_TOTAL_MIN must be below EXTRACTOR_TOTAL_MAX")
	}

	if c.Extractor.PerUnitMin >= c.Extractor.PerUnitMax {
		return fmt.Errorf("EXTRACTOR_PER_UNIT_MIN must be below EXTRACTOR_PER_UNIT_MAX")
	}

	if c.Extractor.UnitDominance <= 1.0 {
		return fmt.Errorf("EXTRACTOR_UNIT_DOMINANCE must be above 1.0")
	}

	if c.Scraper.ConcurrentLimit < 1 {
		return fmt.Errorf("SCRAPER_CONCURRENT_LIMIT must be at least 1")
	}

	if c.Scraper.RateLimitMin > c.Scraper.RateLimitMax {
		return fmt.Errorf("SCRAPER_RATE_LIMIT_MIN cannot be greater than SCRAPER_RATE_LIMIT_MAX")
	}

	if c.Queue.BatchSize < 1 {
		return fmt.Errorf("QUEUE_BATCH_SIZE must be at least 1")
	}

	return nil
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
