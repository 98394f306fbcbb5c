package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":8080")
	t.Setenv("GRID_DEFAULT_PAGE_SIZE", "25")
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("LOG_DEV", "true")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Expected addr :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Grid.DefaultPageSize != 25 {
		t.Errorf("Expected page size 25, got %d", cfg.Grid.DefaultPageSize)
	}
	if cfg.Store.Driver != DriverPostgres {
		t.Errorf("Expected driver postgres, got %q", cfg.Store.Driver)
	}
	if cfg.Store.Postgres.Port != 6543 {
		t.Errorf("Expected port 6543, got %d", cfg.Store.Postgres.Port)
	}
	if cfg.Breaker.StoreTimeout != 750*time.Millisecond {
		t.Errorf("Expected store timeout 750ms, got %v", cfg.Breaker.StoreTimeout)
	}
	if cfg.Log.Format != "console" || cfg.Log.Level != "warn" {
		t.Errorf("Expected console/warn logging, got %s/%s", cfg.Log.Format, cfg.Log.Level)
	}
}

func TestFromEnv_ParseErrors(t *testing.T) {
	t.Setenv("GRID_DEFAULT_PAGE_SIZE", "ten")
	t.Setenv("STORE_TIMEOUT", "soon")

	_, err := FromEnv()
	if err == nil {
		t.Fatal("Expected parse errors")
	}
	for _, key := range []string{"GRID_DEFAULT_PAGE_SIZE", "STORE_TIMEOUT"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("Expected error to mention %s, got %v", key, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero page size", func(c *Config) { c.Grid.DefaultPageSize = 0 }},
		{"negative max", func(c *Config) { c.Grid.MaxPageSize = -1 }},
		{"default above max", func(c *Config) { c.Grid.MaxPageSize = 5 }},
		{"relative base url", func(c *Config) { c.Grid.APIBaseURL = "/api" }},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"redis without addr", func(c *Config) { c.Store.Driver = DriverRedis; c.Store.Redis.Addr = "" }},
		{"postgres without db", func(c *Config) { c.Store.Driver = DriverPostgres; c.Store.Postgres.Database = "" }},
		{"no breaker failures", func(c *Config) { c.Breaker.ConsecutiveFailures = 0 }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}

	t.Run("max disabled", func(t *testing.T) {
		cfg := Default()
		cfg.Grid.MaxPageSize = 0
		if err := cfg.Validate(); err != nil {
			t.Errorf("Expected MaxPageSize 0 to be valid, got %v", err)
		}
	})
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "STORE_DRIVER=redis\nREDIS_ADDR=cache:6379\nSEED_COUNT=7\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	// godotenv sets process env; register cleanup through t.Setenv first.
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("SEED_COUNT", "")
	os.Unsetenv("STORE_DRIVER")
	os.Unsetenv("REDIS_ADDR")
	os.Unsetenv("SEED_COUNT")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != DriverRedis || cfg.Store.Redis.Addr != "cache:6379" || cfg.SeedCount != 7 {
		t.Errorf("Unexpected config: driver=%s addr=%s seed=%d", cfg.Store.Driver, cfg.Store.Redis.Addr, cfg.SeedCount)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("Expected error for an explicit missing file")
	}
}
