// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/platewire/platewire/internal/models"
)

const tableColumns = `id, tenant_id, number, seats, status, created_at, updated_at`

// GetTable returns the dining table by tenant and id, or ErrNotFound.
func (db *DB) GetTable(ctx context.Context, tenantID, id string) (*models.DiningTable, error) {
	row := db.conn.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM tables WHERE tenant_id = ? AND id = ?", tableColumns),
		tenantID, id)
	table, err := scanTable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table %s: %w", id, err)
	}
	return table, nil
}

// InsertTable inserts a new dining table. Table provisioning belongs to the
// external CRUD layer; this method exists for seeding and tests.
func (db *DB) InsertTable(ctx context.Context, table *models.DiningTable) error {
	_, err := db.conn.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO tables (%s) VALUES (?, ?, ?, ?, ?, ?, ?)", tableColumns),
		table.ID, table.TenantID, table.Number, table.Seats, table.Status,
		table.CreatedAt, table.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert table: %w", err)
	}
	return nil
}

// UpdateTable applies the non-nil patch fields to the table identified by
// tenant+id and returns the number of rows affected (0 means not found).
func (db *DB) UpdateTable(ctx context.Context, tenantID, id string, patch TablePatch) (int64, error) {
	if patch.IsZero() {
		return 0, nil
	}

	b := &updateBuilder{}
	if patch.Status != nil {
		b.set("status", *patch.Status)
	}

	query, args := b.query("tables", tenantID, id, time.Now().UTC())
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update table %s: %w", id, err)
	}
	return res.RowsAffected()
}

// TablesUpdatedSince returns the tenant's tables modified strictly after the
// watermark, oldest first.
func (db *DB) TablesUpdatedSince(ctx context.Context, tenantID string, watermark time.Time) ([]models.DiningTable, error) {
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM tables WHERE tenant_id = ? AND updated_at > ? ORDER BY updated_at", tableColumns),
		tenantID, watermark)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []models.DiningTable
	for rows.Next() {
		table, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, *table)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

func scanTable(row rowScanner) (*models.DiningTable, error) {
	var t models.DiningTable
	err := row.Scan(&t.ID, &t.TenantID, &t.Number, &t.Seats, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
