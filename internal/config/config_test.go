package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
	if cfg.Database.Path == "" {
		t.Error("Expected a default database path")
	}
	if filepath.Base(cfg.Database.Path) != "midnightmedia.db" {
		t.Errorf("Expected database file midnightmedia.db, got %s", cfg.Database.Path)
	}
	if cfg.Player.PollIntervalMs != 100 {
		t.Errorf("Expected 100ms poll interval, got %d", cfg.Player.PollIntervalMs)
	}
	if cfg.Media.CacheTTLSeconds != 30 {
		t.Errorf("Expected 30s cache TTL, got %d", cfg.Media.CacheTTLSeconds)
	}
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected config")
	}

	if _, err := os.Stat(configPath); err != nil {
		t.Errorf("Expected default config file to be written: %v", err)
	}

	// Loading again reads the file just written
	again, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Second LoadConfig failed: %v", err)
	}
	if again.Media.LibraryPath != cfg.Media.LibraryPath {
		t.Errorf("Round-trip changed library path: %q vs %q", again.Media.LibraryPath, cfg.Media.LibraryPath)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyDatabasePath", func(c *Config) { c.Database.Path = "" }},
		{"EmptyLibraryPath", func(c *Config) { c.Media.LibraryPath = "" }},
		{"NoFormats", func(c *Config) { c.Media.SupportedFormats = nil }},
		{"BadPollInterval", func(c *Config) { c.Player.PollIntervalMs = 0 }},
		{"BadCacheTTL", func(c *Config) { c.Media.CacheTTLSeconds = 0 }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestIsFormatSupported(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsFormatSupported(".mp3") {
		t.Error("Expected .mp3 to be supported")
	}
	if cfg.IsFormatSupported(".mkv") {
		t.Error("Expected .mkv to be unsupported")
	}
}
