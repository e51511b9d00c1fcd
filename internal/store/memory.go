// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/platewire/platewire/internal/models"
)

// MemoryStore implements Store using in-memory maps. Suitable for tests and
// development. Data is lost on restart.
type MemoryStore struct {
	mu        sync.RWMutex
	orders    map[string]models.Order
	items     map[string]models.OrderItem
	tables    map[string]models.DiningTable
	menuItems map[string]models.MenuItem
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:    make(map[string]models.Order),
		items:     make(map[string]models.OrderItem),
		tables:    make(map[string]models.DiningTable),
		menuItems: make(map[string]models.MenuItem),
	}
}

// GetOrder returns the order by tenant and id, or ErrNotFound.
func (s *MemoryStore) GetOrder(_ context.Context, tenantID, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return &o, nil
}

// InsertOrder inserts a new order.
func (s *MemoryStore) InsertOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orders[order.ID]; exists {
		return ErrConflict
	}
	s.orders[order.ID] = *order
	return nil
}

// UpdateOrder applies the non-nil patch fields keyed on tenant+id.
func (s *MemoryStore) UpdateOrder(_ context.Context, tenantID, id string, patch OrderPatch) (int64, error) {
	if patch.IsZero() {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.TenantID != tenantID {
		return 0, nil
	}
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.Notes != nil {
		o.Notes = patch.Notes
	}
	if patch.TotalAmount != nil {
		o.TotalAmount = *patch.TotalAmount
	}
	if patch.TaxRate != nil {
		o.TaxRate = *patch.TaxRate
	}
	if patch.PaymentMethod != nil {
		o.PaymentMethod = patch.PaymentMethod
	}
	if patch.PaidAt != nil {
		o.PaidAt = patch.PaidAt
	}
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	return 1, nil
}

// CountOrdersSince counts the tenant's orders created at or after since.
func (s *MemoryStore) CountOrdersSince(_ context.Context, tenantID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, o := range s.orders {
		if o.TenantID == tenantID && !o.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// OrdersUpdatedSince returns orders modified strictly after the watermark.
func (s *MemoryStore) OrdersUpdatedSince(_ context.Context, tenantID string, watermark time.Time) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.TenantID == tenantID && o.UpdatedAt.After(watermark) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// GetOrderItem returns the order line by tenant and id, or ErrNotFound.
func (s *MemoryStore) GetOrderItem(_ context.Context, tenantID, id string) (*models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok || it.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return &it, nil
}

// InsertOrderItem inserts a new order line.
func (s *MemoryStore) InsertOrderItem(_ context.Context, item *models.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[item.ID]; exists {
		return ErrConflict
	}
	s.items[item.ID] = *item
	return nil
}

// UpdateOrderItem applies the non-nil patch fields keyed on tenant+id.
func (s *MemoryStore) UpdateOrderItem(_ context.Context, tenantID, id string, patch OrderItemPatch) (int64, error) {
	if patch.IsZero() {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok || it.TenantID != tenantID {
		return 0, nil
	}
	if patch.Quantity != nil {
		it.Quantity = *patch.Quantity
	}
	if patch.Status != nil {
		it.Status = *patch.Status
	}
	if patch.Notes != nil {
		it.Notes = patch.Notes
	}
	if patch.TotalPrice != nil {
		it.TotalPrice = *patch.TotalPrice
	}
	it.UpdatedAt = time.Now().UTC()
	s.items[id] = it
	return 1, nil
}

// OrderItemsUpdatedSince returns lines modified strictly after the watermark.
func (s *MemoryStore) OrderItemsUpdatedSince(_ context.Context, tenantID string, watermark time.Time) ([]models.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.OrderItem
	for _, it := range s.items {
		if it.TenantID == tenantID && it.UpdatedAt.After(watermark) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// GetTable returns the dining table by tenant and id, or ErrNotFound.
func (s *MemoryStore) GetTable(_ context.Context, tenantID, id string) (*models.DiningTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok || t.TenantID != tenantID {
		return nil, ErrNotFound
	}
	return &t, nil
}

// InsertTable inserts a dining table.
func (s *MemoryStore) InsertTable(_ context.Context, table *models.DiningTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[table.ID]; exists {
		return ErrConflict
	}
	s.tables[table.ID] = *table
	return nil
}

// UpdateTable applies the non-nil patch fields keyed on tenant+id.
func (s *MemoryStore) UpdateTable(_ context.Context, tenantID, id string, patch TablePatch) (int64, error) {
	if patch.IsZero() {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	if !ok || t.TenantID != tenantID {
		return 0, nil
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	t.UpdatedAt = time.Now().UTC()
	s.tables[id] = t
	return 1, nil
}

// TablesUpdatedSince returns tables modified strictly after the watermark.
func (s *MemoryStore) TablesUpdatedSince(_ context.Context, tenantID string, watermark time.Time) ([]models.DiningTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.DiningTable
	for _, t := range s.tables {
		if t.TenantID == tenantID && t.UpdatedAt.After(watermark) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}

// InsertMenuItem inserts a menu item.
func (s *MemoryStore) InsertMenuItem(_ context.Context, item *models.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.menuItems[item.ID]; exists {
		return ErrConflict
	}
	s.menuItems[item.ID] = *item
	return nil
}

// MenuItemsUpdatedSince returns menu items modified strictly after the watermark.
func (s *MemoryStore) MenuItemsUpdatedSince(_ context.Context, tenantID string, watermark time.Time) ([]models.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.MenuItem
	for _, it := range s.menuItems {
		if it.TenantID == tenantID && it.UpdatedAt.After(watermark) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	return out, nil
}
