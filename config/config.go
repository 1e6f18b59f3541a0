// Package config loads SnackSmith settings from config.yaml, .env and SNACKSMITH_* variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Nutrition NutritionConfig `mapstructure:"nutrition"`
	Search    SearchConfig    `mapstructure:"search"`
	AI        AIConfig        `mapstructure:"ai"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig selects where ingredient reference data comes from
type CatalogConfig struct {
	Source  string        `mapstructure:"source"` // "embedded" or "remote"
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// NutritionConfig selects the nutrition engine
type NutritionConfig struct {
	Engine       string        `mapstructure:"engine"` // "local" or "remote"
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	ServingSizeG float64       `mapstructure:"serving_size_g"`
	Debug        bool          `mapstructure:"debug"`
}

// SearchConfig tunes ingredient search
type SearchConfig struct {
	MinScore          float64 `mapstructure:"min_score"`
	EnableFuzzy       bool    `mapstructure:"enable_fuzzy"`
	FuzzyEditDistance int     `mapstructure:"fuzzy_edit_distance"`
}

// AIConfig holds generative-language settings
type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	APIKey   string        `mapstructure:"api_key"`
	BaseURL  string        `mapstructure:"base_url"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Fallback bool          `mapstructure:"fallback"`
}

type StorageConfig struct {
	Type       string `mapstructure:"type"` // "memory" or "sqlite"
	SQLitePath string `mapstructure:"sqlite_path"`
}

type CacheConfig struct {
	Type       string        `mapstructure:"type"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// RateLimitConfig holds inbound and upstream limits
type RateLimitConfig struct {
	PerIP         int     `mapstructure:"per_ip"` // requests per minute
	UpstreamRPS   float64 `mapstructure:"upstream_rps"`
	UpstreamBurst int     `mapstructure:"upstream_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Load loads configuration from .env, config files and environment variables
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/snacksmith/")

	v.SetEnvPrefix("SNACKSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env when present. Variables already set win.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	v.SetDefault("catalog.source", "embedded")
	v.SetDefault("catalog.url", "")
	v.SetDefault("catalog.timeout", "15s")

	v.SetDefault("nutrition.engine", "local")
	v.SetDefault("nutrition.base_url", "")
	v.SetDefault("nutrition.timeout", "10s")
	v.SetDefault("nutrition.serving_size_g", 0)
	v.SetDefault("nutrition.debug", false)

	v.SetDefault("search.min_score", 40)
	v.SetDefault("search.enable_fuzzy", true)
	v.SetDefault("search.fuzzy_edit_distance", 2)

	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", "30s")
	v.SetDefault("ai.fallback", true)

	v.SetDefault("storage.type", "memory")
	v.SetDefault("storage.sqlite_path", "snacksmith.db")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_entries", 1000)

	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.upstream_rps", 5)
	v.SetDefault("ratelimit.upstream_burst", 10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func validate(config *Config) error {
	switch config.Catalog.Source {
	case "embedded":
	case "remote":
		if config.Catalog.URL == "" {
			return fmt.Errorf("catalog URL is required when catalog source is 'remote' (set SNACKSMITH_CATALOG_URL)")
		}
	default:
		return fmt.Errorf("catalog source must be 'embedded' or 'remote', got: %s", config.Catalog.Source)
	}

	switch config.Nutrition.Engine {
	case "local":
	case "remote":
		if config.Nutrition.BaseURL == "" {
			return fmt.Errorf("nutrition base URL is required when engine is 'remote' (set SNACKSMITH_NUTRITION_BASE_URL)")
		}
	default:
		return fmt.Errorf("nutrition engine must be 'local' or 'remote', got: %s", config.Nutrition.Engine)
	}
	if s := config.Nutrition.ServingSizeG; s < 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return fmt.Errorf("serving size must be a non-negative finite number, got: %g", s)
	}

	if config.AI.Enabled && config.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required when AI is enabled (set SNACKSMITH_AI_API_KEY)")
	}

	switch config.Storage.Type {
	case "memory":
	case "sqlite":
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required when storage type is 'sqlite'")
		}
	default:
		return fmt.Errorf("storage type must be 'memory' or 'sqlite', got: %s", config.Storage.Type)
	}

	if config.Cache.Type != "memory" {
		return fmt.Errorf("cache type must be 'memory', got: %s", config.Cache.Type)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("per-IP rate limit must not be negative, got: %d", config.RateLimit.PerIP)
	}

	if _, err := parseLevel(config.Log.Level); err != nil {
		return err
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", config.Log.Format)
	}

	return nil
}

func parseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}

// NewLogger builds the process logger. JSON goes to stdout, text to stderr.
func NewLogger(level, format string) *slog.Logger {
	if format == "json" {
		return newLogger(os.Stdout, level, format)
	}
	return newLogger(os.Stderr, level, format)
}

// NewStdioLogger logs to stderr in either format. Used when stdout carries
// protocol or command output.
func NewStdioLogger(level, format string) *slog.Logger {
	return newLogger(os.Stderr, level, format)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl, err := parseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewTestLogger writes text records at or above level to w
func NewTestLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
