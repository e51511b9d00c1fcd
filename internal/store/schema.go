// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package store

import (
	"context"
	"fmt"
)

// schemaStatements creates the four tracked collections. The operation log
// table is owned by the audit package and created through it.
//
// updated_at drives the change feed; every write path must touch it.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		table_id TEXT,
		order_number TEXT NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		total_amount DOUBLE NOT NULL DEFAULT 0,
		tax_rate DOUBLE NOT NULL DEFAULT 0,
		payment_method TEXT,
		paid_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_tenant_updated ON orders(tenant_id, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_tenant_created ON orders(tenant_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		order_id TEXT NOT NULL,
		menu_item_id TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		unit_price DOUBLE NOT NULL,
		total_price DOUBLE NOT NULL,
		status TEXT NOT NULL,
		notes TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_tenant_updated ON order_items(tenant_id, updated_at)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,

	`CREATE TABLE IF NOT EXISTS tables (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		number INTEGER NOT NULL,
		seats INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tables_tenant_updated ON tables(tenant_id, updated_at)`,

	`CREATE TABLE IF NOT EXISTS menu_items (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		category_id TEXT,
		name TEXT NOT NULL,
		description TEXT,
		price DOUBLE NOT NULL,
		available BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_menu_items_tenant_updated ON menu_items(tenant_id, updated_at)`,
}

// initSchema creates all tables and indexes if they do not exist.
func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
