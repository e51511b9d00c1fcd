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

const orderItemColumns = `id, tenant_id, order_id, menu_item_id, name, quantity,
	unit_price, total_price, status, notes, created_at, updated_at`

// GetOrderItem returns the order line by tenant and id, or ErrNotFound.
func (db *DB) GetOrderItem(ctx context.Context, tenantID, id string) (*models.OrderItem, error) {
	row := db.conn.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM order_items WHERE tenant_id = ? AND id = ?", orderItemColumns),
		tenantID, id)
	item, err := scanOrderItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order item %s: %w", id, err)
	}
	return item, nil
}

// InsertOrderItem inserts a new order line.
func (db *DB) InsertOrderItem(ctx context.Context, item *models.OrderItem) error {
	_, err := db.conn.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO order_items (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", orderItemColumns),
		item.ID, item.TenantID, item.OrderID, item.MenuItemID, item.Name, item.Quantity,
		item.UnitPrice, item.TotalPrice, item.Status, item.Notes, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order item: %w", err)
	}
	return nil
}

// UpdateOrderItem applies the non-nil patch fields to the line identified by
// tenant+id and returns the number of rows affected (0 means not found).
func (db *DB) UpdateOrderItem(ctx context.Context, tenantID, id string, patch OrderItemPatch) (int64, error) {
	if patch.IsZero() {
		return 0, nil
	}

	b := &updateBuilder{}
	if patch.Quantity != nil {
		b.set("quantity", *patch.Quantity)
	}
	if patch.Status != nil {
		b.set("status", *patch.Status)
	}
	if patch.Notes != nil {
		b.set("notes", *patch.Notes)
	}
	if patch.TotalPrice != nil {
		b.set("total_price", *patch.TotalPrice)
	}

	query, args := b.query("order_items", tenantID, id, time.Now().UTC())
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update order item %s: %w", id, err)
	}
	return res.RowsAffected()
}

// OrderItemsUpdatedSince returns the tenant's order lines modified strictly
// after the watermark, oldest first.
func (db *DB) OrderItemsUpdatedSince(ctx context.Context, tenantID string, watermark time.Time) ([]models.OrderItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM order_items WHERE tenant_id = ? AND updated_at > ? ORDER BY updated_at", orderItemColumns),
		tenantID, watermark)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func scanOrderItem(row rowScanner) (*models.OrderItem, error) {
	var it models.OrderItem
	err := row.Scan(&it.ID, &it.TenantID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity,
		&it.UnitPrice, &it.TotalPrice, &it.Status, &it.Notes, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &it, nil
}
