// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

// Package sync implements the offline synchronization engine: batch
// mutation-intent ingestion with client-ID idempotency, the durable
// operation log, the watermark-based change feed, and the background retry
// sweep over unprocessed log entries.
package sync

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/platewire/platewire/internal/audit"
	"github.com/platewire/platewire/internal/logging"
	"github.com/platewire/platewire/internal/models"
	"github.com/platewire/platewire/internal/store"
)

// Notifier receives entity notifications after an intent has been applied
// and logged. The realtime layer implements it; a nil notifier disables
// fan-out, which the retry sweep and tests rely on.
type Notifier interface {
	NotifyMutation(tenantID string, entityType models.EntityType, kind models.MutationKind, entityID string)
}

// Coordinator processes mutation-intent batches. Each intent is settled
// independently: deduplicated, applied through its entity handler, and
// recorded in the operation log. One bad intent never aborts the batch.
type Coordinator struct {
	store    store.Store
	log      audit.Log
	deduper  Deduper
	notifier Notifier
	handlers map[models.EntityType]Handler
	dedupTTL time.Duration
	maxBatch int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithNotifier attaches the realtime fan-out hook.
func WithNotifier(n Notifier) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithMaxBatchSize caps the number of intents accepted per batch.
func WithMaxBatchSize(n int) Option {
	return func(c *Coordinator) { c.maxBatch = n }
}

// NewCoordinator creates a batch coordinator over the given store, operation
// log and dedup index.
func NewCoordinator(st store.Store, log audit.Log, deduper Deduper, dedupTTL time.Duration, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    st,
		log:      log,
		deduper:  deduper,
		handlers: newHandlerRegistry(st),
		dedupTTL: dedupTTL,
		maxBatch: 100,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ProcessBatch applies a batch of mutation intents for one tenant. Every
// intent ends up in exactly one of the result's Processed or Failed slices,
// so len(Processed)+len(Failed) always equals len(intents). The returned
// ServerTimestamp is taken before any write and serves as the client's next
// change-feed watermark.
func (c *Coordinator) ProcessBatch(ctx context.Context, tenantID string, intents []models.MutationIntent) (*models.BatchResult, error) {
	if tenantID == "" {
		return nil, validationf("tenant ID is required")
	}
	if len(intents) > c.maxBatch {
		return nil, validationf("batch size %d exceeds maximum %d", len(intents), c.maxBatch)
	}

	BatchesTotal.Inc()

	result := &models.BatchResult{
		Processed:       make([]models.ProcessedIntent, 0, len(intents)),
		Failed:          make([]models.FailedIntent, 0),
		ServerTimestamp: time.Now().UTC(),
	}

	for i := range intents {
		c.processOne(ctx, tenantID, &intents[i], result)
	}

	logger := logging.Ctx(ctx)
	logger.Info().
		Str("tenant_id", tenantID).
		Int("submitted", len(intents)).
		Int("processed", len(result.Processed)).
		Int("failed", len(result.Failed)).
		Msg("Processed sync batch")

	return result, nil
}

// processOne settles a single intent into the result, never returning an
// error: apply failures become Failed entries plus an unprocessed
// operation-log record for the retry sweep.
func (c *Coordinator) processOne(ctx context.Context, tenantID string, intent *models.MutationIntent, result *models.BatchResult) {
	now := time.Now().UTC()

	if err := c.validateIntent(intent); err != nil {
		c.recordFailure(ctx, tenantID, intent, now, err)
		result.Failed = append(result.Failed, models.FailedIntent{
			ClientID:   intent.ClientID,
			EntityType: intent.EntityType,
			Kind:       intent.Kind,
			Error:      err.Error(),
		})
		IntentsTotal.WithLabelValues("failed").Inc()
		return
	}

	// Idempotency gate: a replayed client ID echoes the stored outcome
	// without touching the store or the log again.
	existing, err := c.deduper.Lookup(ctx, tenantID, intent.ClientID)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("client_id", intent.ClientID).
			Msg("Dedup lookup failed, applying without idempotency guarantee")
	}
	if existing != nil {
		DedupReplaysTotal.Inc()
		result.Processed = append(result.Processed, models.ProcessedIntent{
			ClientID:        intent.ClientID,
			EntityType:      existing.EntityType,
			EntityID:        existing.EntityID,
			Kind:            existing.Kind,
			ServerTimestamp: existing.ServerTimestamp,
		})
		IntentsTotal.WithLabelValues("deduplicated").Inc()
		return
	}

	entityID, applyErr := c.handlers[intent.EntityType].Apply(ctx, tenantID, intent.Kind, intent.Payload)
	if applyErr != nil {
		c.recordFailure(ctx, tenantID, intent, now, applyErr)
		result.Failed = append(result.Failed, models.FailedIntent{
			ClientID:   intent.ClientID,
			EntityType: intent.EntityType,
			Kind:       intent.Kind,
			Error:      applyErr.Error(),
		})
		IntentsTotal.WithLabelValues("failed").Inc()
		return
	}

	c.recordSuccess(ctx, tenantID, intent, now, entityID)
	c.rememberOutcome(ctx, tenantID, intent, now, entityID)

	result.Processed = append(result.Processed, models.ProcessedIntent{
		ClientID:        intent.ClientID,
		EntityType:      intent.EntityType,
		EntityID:        entityID,
		Kind:            intent.Kind,
		ServerTimestamp: now,
	})
	IntentsTotal.WithLabelValues("processed").Inc()

	if c.notifier != nil {
		c.notifier.NotifyMutation(tenantID, intent.EntityType, intent.Kind, entityID)
	}
}

func (c *Coordinator) validateIntent(intent *models.MutationIntent) error {
	if intent.ClientID == "" {
		return validationf("client_id is required")
	}
	if !intent.EntityType.Valid() {
		return validationf("unknown entity type %q", intent.EntityType)
	}
	if !intent.Kind.Valid() {
		return validationf("unknown kind %q", intent.Kind)
	}
	if len(intent.Payload) == 0 {
		return validationf("payload is required")
	}
	return nil
}

// rememberOutcome stores the dedup record with the entity ID the apply
// produced, so a later replay of the same client ID echoes it. Only
// successful applies are remembered; failures stay replayable.
func (c *Coordinator) rememberOutcome(ctx context.Context, tenantID string, intent *models.MutationIntent, now time.Time, entityID string) {
	err := c.deduper.Store(ctx, tenantID, intent.ClientID, &DedupRecord{
		EntityType:      intent.EntityType,
		EntityID:        entityID,
		Kind:            intent.Kind,
		ServerTimestamp: now,
	}, c.dedupTTL)
	if err != nil {
		logger := logging.Ctx(ctx)
		logger.Warn().Err(err).
			Str("client_id", intent.ClientID).
			Msg("Failed to record dedup outcome")
	}
}

func (c *Coordinator) recordSuccess(ctx context.Context, tenantID string, intent *models.MutationIntent, now time.Time, entityID string) {
	entry := c.newLogEntry(tenantID, intent, now)
	entry.EntityID = &entityID
	entry.Processed = true
	if err := c.log.Append(ctx, entry); err != nil {
		logger := logging.Ctx(ctx)
		logger.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("client_id", intent.ClientID).
			Msg("Failed to append operation log entry")
	}
}

func (c *Coordinator) recordFailure(ctx context.Context, tenantID string, intent *models.MutationIntent, now time.Time, cause error) {
	entry := c.newLogEntry(tenantID, intent, now)
	entry.Processed = false
	msg := cause.Error()
	entry.ErrorMessage = &msg
	if err := c.log.Append(ctx, entry); err != nil {
		logger := logging.Ctx(ctx)
		logger.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("client_id", intent.ClientID).
			Msg("Failed to append operation log entry")
	}
}

func (c *Coordinator) newLogEntry(tenantID string, intent *models.MutationIntent, now time.Time) *models.OperationLogEntry {
	return &models.OperationLogEntry{
		ID:              uuid.New().String(),
		TenantID:        tenantID,
		ClientID:        intent.ClientID,
		EntityType:      intent.EntityType,
		Kind:            intent.Kind,
		Payload:         append(json.RawMessage(nil), intent.Payload...),
		ClientTimestamp: intent.ClientTimestamp,
		ServerTimestamp: now,
	}
}
