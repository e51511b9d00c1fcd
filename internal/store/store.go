// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

// Package store is the durable-store adapter: transactional, tenant-scoped
// read/write access to the four tracked collections (orders, order items,
// tables, menu items).
//
// Every method takes the tenant ID explicitly and scopes the underlying
// query by it; cross-tenant access yields ErrNotFound, never another
// tenant's record. Updates are conditional writes keyed on tenant+id and
// report rows affected, which is the only concurrency control this layer
// offers: concurrent writers to the same entity converge to last-write-wins.
//
// Two implementations exist: DB on DuckDB for production and MemoryStore
// for tests and ephemeral deployments.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/platewire/platewire/internal/models"
)

// Sentinel errors returned by Store implementations.
var (
	// ErrNotFound indicates the entity does not exist within the tenant.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict indicates an insert collided with an existing primary key.
	ErrConflict = errors.New("entity already exists")
)

// OrderPatch lists the mutable fields of an order. Nil fields are left
// untouched. Fields outside this struct cannot be changed through sync,
// which is what keeps unknown-field injection out of the store.
type OrderPatch struct {
	Status        *string
	Notes         *string
	TotalAmount   *float64
	TaxRate       *float64
	PaymentMethod *string
	PaidAt        *time.Time
}

// IsZero reports whether the patch changes nothing.
func (p OrderPatch) IsZero() bool {
	return p.Status == nil && p.Notes == nil && p.TotalAmount == nil &&
		p.TaxRate == nil && p.PaymentMethod == nil && p.PaidAt == nil
}

// OrderItemPatch lists the mutable fields of an order line.
type OrderItemPatch struct {
	Quantity   *int
	Status     *string
	Notes      *string
	TotalPrice *float64
}

// IsZero reports whether the patch changes nothing.
func (p OrderItemPatch) IsZero() bool {
	return p.Quantity == nil && p.Status == nil && p.Notes == nil && p.TotalPrice == nil
}

// TablePatch lists the mutable fields of a dining table.
type TablePatch struct {
	Status *string
}

// IsZero reports whether the patch changes nothing.
func (p TablePatch) IsZero() bool {
	return p.Status == nil
}

// Store is the outbound interface to durable per-tenant entity storage.
// The sync engine and change feed depend on this interface only; the HTTP
// layer and business logic never reach the database directly.
type Store interface {
	// Orders
	GetOrder(ctx context.Context, tenantID, id string) (*models.Order, error)
	InsertOrder(ctx context.Context, order *models.Order) error
	UpdateOrder(ctx context.Context, tenantID, id string, patch OrderPatch) (int64, error)
	CountOrdersSince(ctx context.Context, tenantID string, since time.Time) (int, error)
	OrdersUpdatedSince(ctx context.Context, tenantID string, watermark time.Time) ([]models.Order, error)

	// Order items
	GetOrderItem(ctx context.Context, tenantID, id string) (*models.OrderItem, error)
	InsertOrderItem(ctx context.Context, item *models.OrderItem) error
	UpdateOrderItem(ctx context.Context, tenantID, id string, patch OrderItemPatch) (int64, error)
	OrderItemsUpdatedSince(ctx context.Context, tenantID string, watermark time.Time) ([]models.OrderItem, error)

	// Tables
	GetTable(ctx context.Context, tenantID, id string) (*models.DiningTable, error)
	InsertTable(ctx context.Context, table *models.DiningTable) error
	UpdateTable(ctx context.Context, tenantID, id string, patch TablePatch) (int64, error)
	TablesUpdatedSince(ctx context.Context, tenantID string, watermark time.Time) ([]models.DiningTable, error)

	// Menu items (read side only: menu editing happens in the external CRUD
	// layer, the sync core just feeds deltas to reconnecting clients)
	MenuItemsUpdatedSince(ctx context.Context, tenantID string, watermark time.Time) ([]models.MenuItem, error)
}
