package config

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"os"
	"strings"
	"testing"
	"time"
)

// isolate runs the test from an empty directory with every SNACKSMITH_ variable cleared
func isolate(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "SNACKSMITH_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	t.Chdir(t.TempDir())
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		isolate(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Catalog.Source != "embedded" {
			t.Errorf("Catalog.Source = %s, want embedded", cfg.Catalog.Source)
		}
		if cfg.Nutrition.Engine != "local" {
			t.Errorf("Nutrition.Engine = %s, want local", cfg.Nutrition.Engine)
		}
		if cfg.Nutrition.Timeout != 10*time.Second {
			t.Errorf("Nutrition.Timeout = %v, want 10s", cfg.Nutrition.Timeout)
		}
		if cfg.AI.Enabled || !cfg.AI.Fallback {
			t.Errorf("AI = %+v, want disabled with fallback", cfg.AI)
		}
		if cfg.AI.Model != "gemini-2.0-flash" {
			t.Errorf("AI.Model = %s, want gemini-2.0-flash", cfg.AI.Model)
		}
		if cfg.Storage.Type != "memory" {
			t.Errorf("Storage.Type = %s, want memory", cfg.Storage.Type)
		}
		if cfg.Cache.TTL != time.Hour {
			t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
		}
		if cfg.Search.MinScore != 40 || !cfg.Search.EnableFuzzy {
			t.Errorf("Search = %+v, want min score 40 with fuzzy on", cfg.Search)
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
			t.Errorf("Log = %+v, want info/text", cfg.Log)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		isolate(t)
		t.Setenv("SNACKSMITH_SERVER_PORT", "9090")
		t.Setenv("SNACKSMITH_SERVER_ENVIRONMENT", "production")
		t.Setenv("SNACKSMITH_NUTRITION_ENGINE", "remote")
		t.Setenv("SNACKSMITH_NUTRITION_BASE_URL", "http://engine:8000")
		t.Setenv("SNACKSMITH_NUTRITION_SERVING_SIZE_G", "40")
		t.Setenv("SNACKSMITH_AI_ENABLED", "true")
		t.Setenv("SNACKSMITH_AI_API_KEY", "secret")
		t.Setenv("SNACKSMITH_STORAGE_TYPE", "sqlite")
		t.Setenv("SNACKSMITH_STORAGE_SQLITE_PATH", "/tmp/snacks.db")
		t.Setenv("SNACKSMITH_CACHE_TTL", "24h")
		t.Setenv("SNACKSMITH_RATELIMIT_PER_IP", "200")
		t.Setenv("SNACKSMITH_LOG_FORMAT", "json")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if cfg.Nutrition.Engine != "remote" || cfg.Nutrition.BaseURL != "http://engine:8000" {
			t.Errorf("Nutrition = %+v, want remote engine", cfg.Nutrition)
		}
		if cfg.Nutrition.ServingSizeG != 40 {
			t.Errorf("Nutrition.ServingSizeG = %g, want 40", cfg.Nutrition.ServingSizeG)
		}
		if !cfg.AI.Enabled || cfg.AI.APIKey != "secret" {
			t.Errorf("AI = %+v, want enabled with key", cfg.AI)
		}
		if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLitePath != "/tmp/snacks.db" {
			t.Errorf("Storage = %+v, want sqlite", cfg.Storage)
		}
		if cfg.Cache.TTL != 24*time.Hour {
			t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
		if cfg.Log.Format != "json" {
			t.Errorf("Log.Format = %s, want json", cfg.Log.Format)
		}
	})

	t.Run("reads config.yaml", func(t *testing.T) {
		isolate(t)
		yaml := "server:\n  port: \"7070\"\ncatalog:\n  source: remote\n  url: http://catalog/ingredients\n"
		if err := os.WriteFile("config.yaml", []byte(yaml), 0o644); err != nil {
			t.Fatalf("write config.yaml: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Server.Port != "7070" {
			t.Errorf("Server.Port = %s, want 7070", cfg.Server.Port)
		}
		if cfg.Catalog.Source != "remote" || cfg.Catalog.URL != "http://catalog/ingredients" {
			t.Errorf("Catalog = %+v, want remote", cfg.Catalog)
		}
	})

	t.Run("fails validation when AI key is missing", func(t *testing.T) {
		isolate(t)
		t.Setenv("SNACKSMITH_AI_ENABLED", "true")

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for missing AI key")
		}
		want := "invalid configuration: AI API key is required when AI is enabled (set SNACKSMITH_AI_API_KEY)"
		if err.Error() != want {
			t.Errorf("Load() error = %v, want %q", err, want)
		}
	})

	t.Run("fails validation for invalid storage type", func(t *testing.T) {
		isolate(t)
		t.Setenv("SNACKSMITH_STORAGE_TYPE", "postgres")

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for invalid storage type")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		t.Chdir(t.TempDir())

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables and skips comments", func(t *testing.T) {
		t.Chdir(t.TempDir())
		envContent := `
# Comment line
TEST_VAR_1=value1
   # indented comment

TEST_VAR_2=value2
# TEST_COMMENTED=should_not_load
`
		if err := os.WriteFile(".env", []byte(envContent), 0o644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		for _, name := range []string{"TEST_VAR_1", "TEST_VAR_2", "TEST_COMMENTED"} {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if got := os.Getenv("TEST_VAR_1"); got != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", got)
		}
		if got := os.Getenv("TEST_VAR_2"); got != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", got)
		}
		if got := os.Getenv("TEST_COMMENTED"); got != "" {
			t.Errorf("TEST_COMMENTED = %s, should not be loaded from comment", got)
		}
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("TEST_OVERRIDE", "existing-value")

		if err := os.WriteFile(".env", []byte("TEST_OVERRIDE=new-value"), 0o644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}
		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if got := os.Getenv("TEST_OVERRIDE"); got != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", got)
		}
	})
}

func validConfig() *Config {
	return &Config{
		Catalog:   CatalogConfig{Source: "embedded"},
		Nutrition: NutritionConfig{Engine: "local"},
		Storage:   StorageConfig{Type: "memory"},
		Cache:     CacheConfig{Type: "memory"},
		Log:       LogConfig{Level: "info", Format: "text"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"remote catalog without url", func(c *Config) { c.Catalog.Source = "remote" }, true},
		{"remote catalog with url", func(c *Config) { c.Catalog.Source = "remote"; c.Catalog.URL = "http://x" }, false},
		{"unknown catalog source", func(c *Config) { c.Catalog.Source = "ftp" }, true},
		{"remote engine without url", func(c *Config) { c.Nutrition.Engine = "remote" }, true},
		{"remote engine with url", func(c *Config) { c.Nutrition.Engine = "remote"; c.Nutrition.BaseURL = "http://x" }, false},
		{"unknown engine", func(c *Config) { c.Nutrition.Engine = "quantum" }, true},
		{"negative serving size", func(c *Config) { c.Nutrition.ServingSizeG = -1 }, true},
		{"NaN serving size", func(c *Config) { c.Nutrition.ServingSizeG = math.NaN() }, true},
		{"infinite serving size", func(c *Config) { c.Nutrition.ServingSizeG = math.Inf(1) }, true},
		{"ai enabled without key", func(c *Config) { c.AI.Enabled = true }, true},
		{"ai enabled with key", func(c *Config) { c.AI.Enabled = true; c.AI.APIKey = "k" }, false},
		{"sqlite without path", func(c *Config) { c.Storage.Type = "sqlite" }, true},
		{"sqlite with path", func(c *Config) { c.Storage.Type = "sqlite"; c.Storage.SQLitePath = "x.db" }, false},
		{"redis cache", func(c *Config) { c.Cache.Type = "redis" }, true},
		{"negative per-ip limit", func(c *Config) { c.RateLimit.PerIP = -1 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewTestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "key=value") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestNewLogger(t *testing.T) {
	if !NewLogger("debug", "json").Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug level should be enabled")
	}
	if NewLogger("nonsense", "text").Enabled(context.Background(), slog.LevelDebug) {
		t.Error("unknown level should fall back to info")
	}
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "info", "json").Info("hello", "n", 1)
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"msg":"hello"`) {
		t.Errorf("expected a JSON record, got %s", buf.String())
	}

	buf.Reset()
	newLogger(&buf, "warn", "text").Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("info record written at warn level: %s", buf.String())
	}

	if NewStdioLogger("error", "json").Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be disabled at error level")
	}
}
