package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want INFO", cfg.LogLevel)
	}
	if cfg.CatalogBackend != "file" {
		t.Errorf("CatalogBackend = %q, want file", cfg.CatalogBackend)
	}
	if cfg.SnapMapTimeout != 10*time.Second {
		t.Errorf("SnapMapTimeout = %v, want 10s", cfg.SnapMapTimeout)
	}
	if cfg.MaxRounds != 10 || cfg.MaxClues != 15 {
		t.Errorf("limits = %d/%d, want 10/15", cfg.MaxRounds, cfg.MaxClues)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("MAX_ATTEMPTS", "7")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("CATALOG_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want DEBUG", cfg.LogLevel)
	}
	if cfg.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d, want 7", cfg.MaxAttempts)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestLoadRejectsBadBackend(t *testing.T) {
	t.Setenv("CATALOG_BACKEND", "s3")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	t.Setenv("CATALOG_BACKEND", "redis")
	t.Setenv("REDIS_URL", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for redis backend without REDIS_URL")
	}
}

func TestGameTimeout(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want time.Duration
	}{
		{"derived", Config{MaxAttempts: 10, SnapMapTimeout: 10 * time.Second}, 130 * time.Second},
		{"no attempts", Config{SnapMapTimeout: 5 * time.Second}, 35 * time.Second},
		{"override", Config{MaxAttempts: 10, SnapMapTimeout: 10 * time.Second, GenerationTimeout: time.Minute}, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GameTimeout(); got != tt.want {
				t.Errorf("GameTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}
