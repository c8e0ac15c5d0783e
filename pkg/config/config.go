package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Cache
	Cache CacheConfig

	// Redis
	Redis RedisConfig

	// Database (optional run history)
	Database DatabaseConfig

	// Upstream providers
	Providers ProvidersConfig

	// Screening
	Screening ScreeningConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// CacheConfig selects the cache backend
type CacheConfig struct {
	Backend string // file, memory, redis
	Dir     string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds run-history storage configuration.
// Both URLs are optional; an empty value disables that recorder.
type DatabaseConfig struct {
	URL        string
	SQLitePath string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// ProvidersConfig holds upstream endpoints and request pacing
type ProvidersConfig struct {
	EastMoneyBaseURL string
	EastMoneyHisURL  string
	TencentBaseURL   string
	TencentQuoteURL  string
	SinaBaseURL      string
	SinaFinanceURL   string

	RequestsPerSecond float64
	Timeout           time.Duration

	UniverseBackup string
}

// ScreeningConfig holds screening loop limits
type ScreeningConfig struct {
	MaxStocks   int
	Pause       time.Duration
	PauseEvery  int
	ErrorBudget int
	UseDefaults bool
	PresetsFile string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Cache: CacheConfig{
			Backend: getEnv("CACHE_BACKEND", "file"),
			Dir:     getEnv("CACHE_DIR", ".cache"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			SQLitePath:      getEnv("SQLITE_PATH", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 5),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Providers: ProvidersConfig{
			EastMoneyBaseURL:  getEnv("EASTMONEY_BASE_URL", "https://push2.eastmoney.com"),
			EastMoneyHisURL:   getEnv("EASTMONEY_HIS_URL", "https://push2his.eastmoney.com"),
			TencentBaseURL:    getEnv("TENCENT_BASE_URL", "https://web.ifzq.gtimg.cn"),
			TencentQuoteURL:   getEnv("TENCENT_QUOTE_URL", "https://qt.gtimg.cn"),
			SinaBaseURL:       getEnv("SINA_BASE_URL", "https://money.finance.sina.com.cn"),
			SinaFinanceURL:    getEnv("SINA_FINANCE_URL", "https://vip.stock.finance.sina.com.cn"),
			RequestsPerSecond: getEnvAsFloat("PROVIDER_RPS", 3),
			Timeout:           getEnvAsDuration("HTTP_TIMEOUT", "10s"),
			UniverseBackup:    getEnv("UNIVERSE_BACKUP", "stock_list_backup.csv"),
		},

		Screening: ScreeningConfig{
			MaxStocks:   getEnvAsInt("SCREEN_MAX_STOCKS", 200),
			Pause:       getEnvAsDuration("SCREEN_PAUSE", "500ms"),
			PauseEvery:  getEnvAsInt("SCREEN_PAUSE_EVERY", 10),
			ErrorBudget: getEnvAsInt("SCREEN_ERROR_BUDGET", 20),
			UseDefaults: getEnvAsBool("SCREEN_USE_DEFAULTS", false),
			PresetsFile: getEnv("SCREEN_PRESETS", ""),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	switch c.Cache.Backend {
	case "file", "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("CACHE_BACKEND=redis requires REDIS_ENABLED=true")
		}
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of: file, memory, redis")
	}

	if c.Providers.RequestsPerSecond <= 0 {
		return fmt.Errorf("PROVIDER_RPS must be positive")
	}
	if c.Screening.ErrorBudget < 0 {
		return fmt.Errorf("SCREEN_ERROR_BUDGET must not be negative")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
