// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/platewire/platewire/internal/models"
)

const menuItemColumns = `id, tenant_id, category_id, name, description, price,
	available, created_at, updated_at`

// InsertMenuItem inserts a menu item. Menu editing belongs to the external
// CRUD layer; this method exists for seeding and tests.
func (db *DB) InsertMenuItem(ctx context.Context, item *models.MenuItem) error {
	_, err := db.conn.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO menu_items (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", menuItemColumns),
		item.ID, item.TenantID, item.CategoryID, item.Name, item.Description, item.Price,
		item.Available, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert menu item: %w", err)
	}
	return nil
}

// MenuItemsUpdatedSince returns the tenant's menu items modified strictly
// after the watermark, oldest first.
func (db *DB) MenuItemsUpdatedSince(ctx context.Context, tenantID string, watermark time.Time) ([]models.MenuItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM menu_items WHERE tenant_id = ? AND updated_at > ? ORDER BY updated_at", menuItemColumns),
		tenantID, watermark)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var it models.MenuItem
		if err := rows.Scan(&it.ID, &it.TenantID, &it.CategoryID, &it.Name, &it.Description,
			&it.Price, &it.Available, &it.CreatedAt, &it.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating menu items: %w", err)
	}
	return items, nil
}
