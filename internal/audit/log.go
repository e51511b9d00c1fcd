// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

// Package audit provides the append-only operation log. Every mutation
// intent the sync coordinator touches gets a durable record here, success or
// failure, so failed intents can be replayed from the unprocessed set and
// every attempt is accounted for.
package audit

import (
	"context"

	"github.com/platewire/platewire/internal/models"
)

// Log records intent attempts and serves them back to the retry sweep.
type Log interface {
	// Append persists one operation-log entry. If the entry ID is empty, the
	// implementation assigns one.
	Append(ctx context.Context, entry *models.OperationLogEntry) error

	// Unprocessed returns the tenant's unprocessed entries whose retry count
	// is below maxRetries, oldest first, at most limit entries.
	Unprocessed(ctx context.Context, tenantID string, maxRetries, limit int) ([]models.OperationLogEntry, error)

	// UnprocessedTenants returns the distinct tenant IDs that currently have
	// unprocessed entries below maxRetries. The retry sweep iterates these.
	UnprocessedTenants(ctx context.Context, maxRetries int) ([]string, error)

	// MarkProcessed flips an entry to processed and records the entity ID
	// the successful replay produced.
	MarkProcessed(ctx context.Context, id, entityID string) error

	// IncrementRetry bumps an entry's retry count and stores the latest
	// error message after a failed replay.
	IncrementRetry(ctx context.Context, id, errorMessage string) error
}
