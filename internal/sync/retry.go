// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/platewire/platewire/internal/audit"
	"github.com/platewire/platewire/internal/logging"
	"github.com/platewire/platewire/internal/models"
	"github.com/platewire/platewire/internal/store"
)

// SweeperConfig controls the background retry sweep.
type SweeperConfig struct {
	// Interval between sweeps.
	Interval time.Duration

	// MaxAttempts is the retry bound: entries at or above it are left
	// alone and need operator attention.
	MaxAttempts int

	// RatePerSecond paces replays so a sweep over a deep backlog cannot
	// starve interactive batch traffic.
	RatePerSecond float64

	// BatchLimit caps entries fetched per tenant per sweep.
	BatchLimit int
}

// DefaultSweeperConfig returns the production defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:      time.Minute,
		MaxAttempts:   5,
		RatePerSecond: 20,
		BatchLimit:    200,
	}
}

// Sweeper replays unprocessed operation-log entries in the background.
// It implements suture.Service and runs under the supervision tree. Store
// access is wrapped in a circuit breaker so a struggling database pauses
// the sweep instead of hammering it.
type Sweeper struct {
	log      audit.Log
	handlers map[models.EntityType]Handler
	notifier Notifier
	config   SweeperConfig
	breaker  *gobreaker.CircuitBreaker[string]
	limiter  *rate.Limiter

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a retry sweeper over the operation log and store. A
// nil notifier disables fan-out for replayed intents.
func NewSweeper(st store.Store, log audit.Log, cfg SweeperConfig, notifier Notifier) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 20
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 200
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "retry-sweep",
		Timeout: 2 * cfg.Interval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only infrastructure errors say anything about store health. A
		// missing entity or bad payload fails the same way every replay;
		// counting those would let a run of poison entries open the
		// breaker and starve healthy entries behind them.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Retry sweep circuit breaker state change")
		},
	})

	return &Sweeper{
		log:      log,
		handlers: newHandlerRegistry(st),
		notifier: notifier,
		config:   cfg,
		breaker:  breaker,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
	}
}

// Serve implements suture.Service. It sweeps once at startup, then on every
// interval tick until the context is cancelled.
func (s *Sweeper) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	logging.Info().
		Dur("interval", s.config.Interval).
		Int("max_attempts", s.config.MaxAttempts).
		Msg("Starting retry sweeper")

	s.Sweep(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Retry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over every tenant with unprocessed entries. Exported
// so operator tooling can trigger an immediate sweep.
func (s *Sweeper) Sweep(ctx context.Context) {
	tenants, err := s.log.UnprocessedTenants(ctx, s.config.MaxAttempts)
	if err != nil {
		RetrySweepsTotal.WithLabelValues("failure").Inc()
		logging.Error().Err(err).Msg("Retry sweep failed to list tenants")
		return
	}

	replayed := 0
	for _, tenantID := range tenants {
		select {
		case <-ctx.Done():
			return
		default:
		}
		replayed += s.sweepTenant(ctx, tenantID)
	}

	RetrySweepsTotal.WithLabelValues("success").Inc()
	if replayed > 0 {
		logging.Info().Int("replayed", replayed).Msg("Retry sweep completed")
	}
}

func (s *Sweeper) sweepTenant(ctx context.Context, tenantID string) int {
	entries, err := s.log.Unprocessed(ctx, tenantID, s.config.MaxAttempts, s.config.BatchLimit)
	if err != nil {
		logging.Error().Err(err).
			Str("tenant_id", tenantID).
			Msg("Retry sweep failed to read unprocessed entries")
		return 0
	}

	replayed := 0
	for i := range entries {
		if err := s.limiter.Wait(ctx); err != nil {
			return replayed
		}
		if s.replay(ctx, &entries[i]) {
			replayed++
		}
	}
	return replayed
}

// replay re-applies one logged intent through its entity handler. Success
// marks the entry processed; failure bumps its retry count. Validation
// failures replay the same way every time, so they count against the retry
// bound and eventually drop out of the sweep.
func (s *Sweeper) replay(ctx context.Context, entry *models.OperationLogEntry) bool {
	handler, ok := s.handlers[entry.EntityType]
	if !ok {
		s.markFailed(ctx, entry, validationf("unknown entity type %q", entry.EntityType))
		return false
	}

	entityID, err := s.breaker.Execute(func() (string, error) {
		return handler.Apply(ctx, entry.TenantID, entry.Kind, entry.Payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// Breaker rejection is not an attempt against the entry.
			RetriedIntentsTotal.WithLabelValues("rejected").Inc()
			return false
		}
		s.markFailed(ctx, entry, err)
		return false
	}

	if err := s.log.MarkProcessed(ctx, entry.ID, entityID); err != nil {
		logging.Error().Err(err).
			Str("entry_id", entry.ID).
			Msg("Failed to mark replayed entry processed")
		return false
	}

	RetriedIntentsTotal.WithLabelValues("processed").Inc()
	logging.Info().
		Str("tenant_id", entry.TenantID).
		Str("client_id", entry.ClientID).
		Str("entity_id", entityID).
		Int("retry_count", entry.RetryCount+1).
		Msg("Replayed unprocessed intent")

	if s.notifier != nil {
		s.notifier.NotifyMutation(entry.TenantID, entry.EntityType, entry.Kind, entityID)
	}
	return true
}

func (s *Sweeper) markFailed(ctx context.Context, entry *models.OperationLogEntry, cause error) {
	RetriedIntentsTotal.WithLabelValues("failed").Inc()
	if err := s.log.IncrementRetry(ctx, entry.ID, cause.Error()); err != nil {
		logging.Error().Err(err).
			Str("entry_id", entry.ID).
			Msg("Failed to increment retry count")
	}
}
