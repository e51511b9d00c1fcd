// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/platewire/platewire/internal/models"
)

// DuckDBLog implements Log on the shared DuckDB connection. Entries are
// append-only; the only in-place updates are the processed flag and the
// retry counter.
type DuckDBLog struct {
	db *sql.DB
}

// NewDuckDBLog creates a DuckDB-backed operation log and ensures its table
// exists.
func NewDuckDBLog(ctx context.Context, db *sql.DB) (*DuckDBLog, error) {
	l := &DuckDBLog{db: db}
	if err := l.createTable(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *DuckDBLog) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS operation_log (
			id TEXT PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			client_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			entity_id TEXT,
			kind TEXT NOT NULL,
			payload JSON,
			client_timestamp TIMESTAMP,
			server_timestamp TIMESTAMP NOT NULL,
			processed BOOLEAN NOT NULL,
			error_message TEXT,
			retry_count INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_oplog_tenant_unprocessed
			ON operation_log(tenant_id, processed, retry_count);
		CREATE INDEX IF NOT EXISTS idx_oplog_server_timestamp
			ON operation_log(server_timestamp);
	`
	if _, err := l.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create operation_log table: %w", err)
	}
	return nil
}

// Append persists one operation-log entry.
func (l *DuckDBLog) Append(ctx context.Context, entry *models.OperationLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO operation_log (
			id, tenant_id, client_id, entity_type, entity_id, kind, payload,
			client_timestamp, server_timestamp, processed, error_message, retry_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TenantID, entry.ClientID, string(entry.EntityType), entry.EntityID,
		string(entry.Kind), string(entry.Payload), entry.ClientTimestamp, entry.ServerTimestamp,
		entry.Processed, entry.ErrorMessage, entry.RetryCount)
	if err != nil {
		return fmt.Errorf("failed to append operation log entry: %w", err)
	}
	return nil
}

// Unprocessed returns the tenant's unprocessed entries below the retry
// bound, oldest first.
func (l *DuckDBLog) Unprocessed(ctx context.Context, tenantID string, maxRetries, limit int) ([]models.OperationLogEntry, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, tenant_id, client_id, entity_type, entity_id, kind, payload,
		       client_timestamp, server_timestamp, processed, error_message, retry_count
		FROM operation_log
		WHERE tenant_id = ? AND processed = FALSE AND retry_count < ?
		ORDER BY server_timestamp
		LIMIT ?`,
		tenantID, maxRetries, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed entries: %w", err)
	}
	defer rows.Close()

	var entries []models.OperationLogEntry
	for rows.Next() {
		var e models.OperationLogEntry
		var entityType, kind string
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ClientID, &entityType, &e.EntityID, &kind,
			&payload, &e.ClientTimestamp, &e.ServerTimestamp, &e.Processed,
			&e.ErrorMessage, &e.RetryCount); err != nil {
			return nil, fmt.Errorf("failed to scan operation log entry: %w", err)
		}
		e.EntityType = models.EntityType(entityType)
		e.Kind = models.MutationKind(kind)
		if payload.Valid {
			e.Payload = []byte(payload.String)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operation log entries: %w", err)
	}
	return entries, nil
}

// UnprocessedTenants returns tenants with replayable entries.
func (l *DuckDBLog) UnprocessedTenants(ctx context.Context, maxRetries int) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT DISTINCT tenant_id FROM operation_log
		WHERE processed = FALSE AND retry_count < ?`,
		maxRetries)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed tenants: %w", err)
	}
	defer rows.Close()

	var tenants []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan tenant id: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenants: %w", err)
	}
	return tenants, nil
}

// MarkProcessed flips an entry to processed.
func (l *DuckDBLog) MarkProcessed(ctx context.Context, id, entityID string) error {
	_, err := l.db.ExecContext(ctx,
		"UPDATE operation_log SET processed = TRUE, entity_id = ?, error_message = NULL WHERE id = ?",
		entityID, id)
	if err != nil {
		return fmt.Errorf("failed to mark entry %s processed: %w", id, err)
	}
	return nil
}

// IncrementRetry bumps retry count and records the latest failure.
func (l *DuckDBLog) IncrementRetry(ctx context.Context, id, errorMessage string) error {
	_, err := l.db.ExecContext(ctx,
		"UPDATE operation_log SET retry_count = retry_count + 1, error_message = ? WHERE id = ?",
		errorMessage, id)
	if err != nil {
		return fmt.Errorf("failed to increment retry for entry %s: %w", id, err)
	}
	return nil
}
