// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

// Package models defines data structures used throughout the Platewire
// application: business entities, mutation intents, batch results, change
// feeds, and the realtime wire envelope.
package models

import (
	"time"
)

// Order status values. Cancelled is the terminal state used for soft deletes;
// an order never leaves it.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

// Order item status values. Ready triggers the dedicated order:ready
// notification to the servers room.
const (
	ItemStatusPending   = "pending"
	ItemStatusPreparing = "preparing"
	ItemStatusReady     = "ready"
	ItemStatusServed    = "served"
	ItemStatusCancelled = "cancelled"
)

// Table status values.
const (
	TableStatusAvailable = "available"
	TableStatusOccupied  = "occupied"
	TableStatusReserved  = "reserved"
	TableStatusCleaning  = "cleaning"
)

// DefaultTaxRate is applied to orders created without an explicit tax rate.
const DefaultTaxRate = 0.19

// Order represents a guest order within one tenant.
//
// OrderNumber is a human-readable daily sequence formatted YYYYMMDD-NNNN,
// computed from the same-tenant same-day order count at creation time.
// Monetary amounts are kept to two decimal places.
type Order struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	TableID       *string    `json:"table_id,omitempty"`
	OrderNumber   string     `json:"order_number"`
	Status        string     `json:"status"`
	Notes         *string    `json:"notes,omitempty"`
	TotalAmount   float64    `json:"total_amount"`
	TaxRate       float64    `json:"tax_rate"`
	PaymentMethod *string    `json:"payment_method,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OrderItem represents one line of an order.
//
// TotalPrice is always Quantity times UnitPrice, recomputed whenever the
// quantity changes so the two never drift.
type OrderItem struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	OrderID    string    `json:"order_id"`
	MenuItemID string    `json:"menu_item_id"`
	Name       string    `json:"name"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
	Status     string    `json:"status"`
	Notes      *string   `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DiningTable represents a physical table in a tenant's restaurant.
// Guests bind unauthenticated ordering sessions to a table via QR code;
// in this core the binding surfaces as the tenant:{t}:table:{id} room.
type DiningTable struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Number    int       `json:"number"`
	Seats     int       `json:"seats"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MenuItem represents a sellable item on a tenant's menu.
type MenuItem struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	CategoryID  *string   `json:"category_id,omitempty"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
