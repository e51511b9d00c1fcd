// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validSecret = "test-secret-0123456789abcdef0123456789abcdef"

// TestLoad_Defaults loads defaults plus the one required env var.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PLATEWIRE_SECURITY_JWT_SECRET", validSecret)
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8090 {
		t.Errorf("port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Sync.MaxBatchSize != 100 {
		t.Errorf("max batch size = %d, want 100", cfg.Sync.MaxBatchSize)
	}
	if cfg.Sync.DedupTTL != 168*time.Hour {
		t.Errorf("dedup TTL = %s, want 168h", cfg.Sync.DedupTTL)
	}
	if cfg.Realtime.SendBufferSize != 256 {
		t.Errorf("send buffer = %d, want 256", cfg.Realtime.SendBufferSize)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

// TestLoad_EnvOverridesDefaults applies PLATEWIRE_-prefixed variables over
// built-in defaults.
func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("PLATEWIRE_SECURITY_JWT_SECRET", validSecret)
	t.Setenv("PLATEWIRE_SERVER_PORT", "9000")
	t.Setenv("PLATEWIRE_SYNC_MAX_BATCH_SIZE", "25")
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Sync.MaxBatchSize != 25 {
		t.Errorf("max batch size = %d, want 25", cfg.Sync.MaxBatchSize)
	}
}

// TestLoad_ConfigFile layers a YAML file over defaults, with env still on
// top.
func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  port: 9100\nsync:\n  max_batch_size: 40\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("PLATEWIRE_SECURITY_JWT_SECRET", validSecret)
	t.Setenv("PLATEWIRE_SYNC_MAX_BATCH_SIZE", "60")
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("port = %d, want 9100 from file", cfg.Server.Port)
	}
	if cfg.Sync.MaxBatchSize != 60 {
		t.Errorf("max batch size = %d, want 60 from env over file", cfg.Sync.MaxBatchSize)
	}
}

// TestLoad_RequiresSecret rejects a configuration without a JWT secret.
func TestLoad_RequiresSecret(t *testing.T) {
	t.Setenv("PLATEWIRE_SECURITY_JWT_SECRET", "")
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without JWT secret")
	}
}

// TestEnvTransform maps variable names to koanf paths: first token is the
// section, the rest stays snake_case.
func TestEnvTransform(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"PLATEWIRE_SERVER_PORT", "server.port"},
		{"PLATEWIRE_SECURITY_JWT_SECRET", "security.jwt_secret"},
		{"PLATEWIRE_SYNC_MAX_BATCH_SIZE", "sync.max_batch_size"},
		{"PLATEWIRE_REALTIME_PONG_WAIT", "realtime.pong_wait"},
		{"PLATEWIRE_LOGGING_LEVEL", "logging.level"},
		{"PLATEWIRE_SYNC_RETRY_INTERVAL", "sync.retry_interval"},
		{"PLATEWIRE_DATABASE_MAX_MEMORY", "database.max_memory"},
		{"PLATEWIRE_SECURITY_CORS_ORIGINS", "security.cors_origins"},
	}
	for _, tc := range cases {
		if got := envTransformFunc(tc.in); got != tc.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// TestValidate_Rejections covers the per-section validation rules.
func TestValidate_Rejections(t *testing.T) {
	base := func() *Config {
		cfg := defaultConfig()
		cfg.Security.JWTSecret = validSecret
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }},
		{"unknown environment", func(c *Config) { c.Server.Environment = "qa" }},
		{"empty secret", func(c *Config) { c.Security.JWTSecret = "" }},
		{"short secret in production", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.JWTSecret = "short"
		}},
		{"zero batch size", func(c *Config) { c.Sync.MaxBatchSize = 0 }},
		{"negative retry attempts", func(c *Config) { c.Sync.RetryMaxAttempts = -1 }},
		{"zero dedup TTL", func(c *Config) { c.Sync.DedupTTL = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "pretty" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}

	if err := base().Validate(); err != nil {
		t.Errorf("Validate rejected valid config: %v", err)
	}
}
