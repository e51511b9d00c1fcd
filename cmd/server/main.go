// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

// Package main is the entry point for the Platewire server.
//
// Platewire is the sync backbone for a multi-tenant restaurant platform:
// point-of-sale terminals, kitchen displays, and waiter handhelds work
// offline and reconcile through it. The server ingests batched mutation
// intents with idempotent replay, serves a watermark-based change feed for
// reconnecting clients, and fans out entity changes over room-scoped
// WebSocket broadcasts.
//
// Startup order:
//
//  1. Configuration (koanf: env over YAML over defaults)
//  2. Logging (zerolog)
//  3. DuckDB store and operation log
//  4. BadgerDB dedup index
//  5. WebSocket hub and event router
//  6. Batch coordinator and change feed
//  7. Supervisor tree: retry sweep, hub, HTTP server
//
// Shutdown on SIGINT/SIGTERM is graceful: the HTTP listener drains, the hub
// closes every client with a close frame, and the sweep finishes its pass.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/platewire/platewire/internal/api"
	"github.com/platewire/platewire/internal/audit"
	"github.com/platewire/platewire/internal/auth"
	"github.com/platewire/platewire/internal/config"
	"github.com/platewire/platewire/internal/logging"
	"github.com/platewire/platewire/internal/store"
	"github.com/platewire/platewire/internal/supervisor"
	"github.com/platewire/platewire/internal/sync"
	"github.com/platewire/platewire/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Int("port", cfg.Server.Port).
		Msg("Starting Platewire")

	db, err := store.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	auditLog, err := audit.NewDuckDBLog(context.Background(), db.Conn())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize operation log")
	}

	deduper, err := sync.NewDeduper(cfg.Sync.DedupPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open dedup index")
	}
	defer func() {
		if err := deduper.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing dedup index")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to configure token verification")
	}

	hub := websocket.NewHub()
	router := websocket.NewRouter(hub, db)

	coordinator := sync.NewCoordinator(db, auditLog, deduper, cfg.Sync.DedupTTL,
		sync.WithNotifier(router),
		sync.WithMaxBatchSize(cfg.Sync.MaxBatchSize),
	)
	feed := sync.NewFeed(db)

	handler := api.NewHandler(coordinator, feed, hub, jwtManager, cfg, db)
	server := api.NewServer(handler)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if cfg.Sync.RetryInterval > 0 {
		sweeper := sync.NewSweeper(db, auditLog, sync.SweeperConfig{
			Interval:      cfg.Sync.RetryInterval,
			MaxAttempts:   cfg.Sync.RetryMaxAttempts,
			RatePerSecond: cfg.Sync.RetryRatePerSecond,
		}, router)
		tree.AddDataService(sweeper)
	} else {
		logging.Info().Msg("Retry sweep disabled (sync.retry_interval is zero)")
	}
	tree.AddRealtimeService(hub)
	tree.AddAPIService(server)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Supervisor tree exited")
		os.Exit(1)
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop before timeout")
		}
	}

	logging.Info().Msg("Platewire stopped")
}
