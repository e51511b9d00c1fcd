// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/platewire/platewire/internal/logging"
	"github.com/platewire/platewire/internal/models"
	"github.com/platewire/platewire/internal/store"
)

// Feed serves watermark-based change pulls. A client sends the server
// timestamp from its last pull (or batch result) and receives every record
// updated strictly after it, per collection.
type Feed struct {
	store store.Store
}

// NewFeed creates a change feed over the store.
func NewFeed(st store.Store) *Feed {
	return &Feed{store: st}
}

// ChangesSince returns all records of the tenant updated after the
// watermark. The returned ServerTimestamp is captured before the first read,
// so a write landing mid-pull is re-delivered on the next pull rather than
// lost. Collections are read independently, not as one snapshot.
func (f *Feed) ChangesSince(ctx context.Context, tenantID string, since time.Time) (*models.ChangeSet, error) {
	if tenantID == "" {
		return nil, validationf("tenant ID is required")
	}

	set := &models.ChangeSet{ServerTimestamp: time.Now().UTC()}

	var err error
	if set.Orders, err = f.store.OrdersUpdatedSince(ctx, tenantID, since); err != nil {
		return nil, fmt.Errorf("read order changes: %w", err)
	}
	if set.OrderItems, err = f.store.OrderItemsUpdatedSince(ctx, tenantID, since); err != nil {
		return nil, fmt.Errorf("read order item changes: %w", err)
	}
	if set.Tables, err = f.store.TablesUpdatedSince(ctx, tenantID, since); err != nil {
		return nil, fmt.Errorf("read table changes: %w", err)
	}
	if set.MenuItems, err = f.store.MenuItemsUpdatedSince(ctx, tenantID, since); err != nil {
		return nil, fmt.Errorf("read menu changes: %w", err)
	}

	logger := logging.Ctx(ctx)
	logger.Debug().
		Str("tenant_id", tenantID).
		Time("since", since).
		Int("changes", set.Total()).
		Msg("Served change feed pull")

	return set, nil
}
