// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

// Package config loads and validates Platewire configuration.
//
// Configuration is layered with clear precedence: environment variables
// override the optional YAML config file, which overrides built-in defaults.
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Platewire server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Sync     SyncConfig     `koanf:"sync"`
	Realtime RealtimeConfig `koanf:"realtime"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // "development", "staging", "production"
}

// DatabaseConfig holds DuckDB settings for the durable store.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = use runtime.NumCPU()
}

// SecurityConfig holds connection-handshake verification and HTTP protection
// settings. Token issuance lives in the external identity service; this
// process only verifies.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// SyncConfig holds batch-processing, dedup, and retry-sweep settings.
type SyncConfig struct {
	// MaxBatchSize caps the number of intents accepted per processBatch call.
	MaxBatchSize int `koanf:"max_batch_size"`

	// DedupPath is the BadgerDB directory for the client-ID dedup index.
	// Empty string selects an in-memory index (tests, ephemeral deploys).
	DedupPath string `koanf:"dedup_path"`

	// DedupTTL is how long an applied client ID is remembered.
	DedupTTL time.Duration `koanf:"dedup_ttl"`

	// RetryInterval is how often the sweep re-applies unprocessed
	// operation-log entries. Zero disables the sweep.
	RetryInterval time.Duration `koanf:"retry_interval"`

	// RetryMaxAttempts bounds how many times one failed intent is retried.
	RetryMaxAttempts int `koanf:"retry_max_attempts"`

	// RetryRatePerSecond paces store access from the sweep.
	RetryRatePerSecond float64 `koanf:"retry_rate_per_second"`
}

// RealtimeConfig holds WebSocket hub settings.
type RealtimeConfig struct {
	// SendBufferSize is the per-connection outbound queue length. A
	// connection whose queue is full has events dropped, never blocks
	// delivery to other connections.
	SendBufferSize int `koanf:"send_buffer_size"`

	// WriteWait bounds a single transport write.
	WriteWait time.Duration `koanf:"write_wait"`

	// PongWait is the read deadline between pongs.
	PongWait time.Duration `koanf:"pong_wait"`

	// MaxMessageSize caps inbound client messages in bytes.
	MaxMessageSize int64 `koanf:"max_message_size"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("server.environment must be development, staging, or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required but was empty")
	}
	if len(c.Security.JWTSecret) < 32 && c.Server.Environment == "production" {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production, got %d", len(c.Security.JWTSecret))
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.MaxBatchSize < 1 {
		return fmt.Errorf("sync.max_batch_size must be positive, got %d", c.Sync.MaxBatchSize)
	}
	if c.Sync.RetryMaxAttempts < 0 {
		return fmt.Errorf("sync.retry_max_attempts must be non-negative, got %d", c.Sync.RetryMaxAttempts)
	}
	if c.Sync.DedupTTL <= 0 {
		return fmt.Errorf("sync.dedup_ttl must be positive, got %s", c.Sync.DedupTTL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
