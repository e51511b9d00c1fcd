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

const orderColumns = `id, tenant_id, table_id, order_number, status, notes,
	total_amount, tax_rate, payment_method, paid_at, created_at, updated_at`

// GetOrder returns the order by tenant and id, or ErrNotFound.
func (db *DB) GetOrder(ctx context.Context, tenantID, id string) (*models.Order, error) {
	row := db.conn.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM orders WHERE tenant_id = ? AND id = ?", orderColumns),
		tenantID, id)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id, err)
	}
	return order, nil
}

// InsertOrder inserts a new order.
func (db *DB) InsertOrder(ctx context.Context, order *models.Order) error {
	_, err := db.conn.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO orders (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", orderColumns),
		order.ID, order.TenantID, order.TableID, order.OrderNumber, order.Status, order.Notes,
		order.TotalAmount, order.TaxRate, order.PaymentMethod, order.PaidAt,
		order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

// UpdateOrder applies the non-nil patch fields to the order identified by
// tenant+id and returns the number of rows affected (0 means not found).
func (db *DB) UpdateOrder(ctx context.Context, tenantID, id string, patch OrderPatch) (int64, error) {
	if patch.IsZero() {
		return 0, nil
	}

	b := &updateBuilder{}
	if patch.Status != nil {
		b.set("status", *patch.Status)
	}
	if patch.Notes != nil {
		b.set("notes", *patch.Notes)
	}
	if patch.TotalAmount != nil {
		b.set("total_amount", *patch.TotalAmount)
	}
	if patch.TaxRate != nil {
		b.set("tax_rate", *patch.TaxRate)
	}
	if patch.PaymentMethod != nil {
		b.set("payment_method", *patch.PaymentMethod)
	}
	if patch.PaidAt != nil {
		b.set("paid_at", *patch.PaidAt)
	}

	query, args := b.query("orders", tenantID, id, time.Now().UTC())
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update order %s: %w", id, err)
	}
	return res.RowsAffected()
}

// CountOrdersSince counts the tenant's orders created at or after the given
// instant. The sync engine uses this with the start of the local day to
// compute daily order numbers.
func (db *DB) CountOrdersSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE tenant_id = ? AND created_at >= ?",
		tenantID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

// OrdersUpdatedSince returns the tenant's orders modified strictly after the
// watermark, oldest first.
func (db *DB) OrdersUpdatedSince(ctx context.Context, tenantID string, watermark time.Time) ([]models.Order, error) {
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM orders WHERE tenant_id = ? AND updated_at > ? ORDER BY updated_at", orderColumns),
		tenantID, watermark)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(&o.ID, &o.TenantID, &o.TableID, &o.OrderNumber, &o.Status, &o.Notes,
		&o.TotalAmount, &o.TaxRate, &o.PaymentMethod, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
