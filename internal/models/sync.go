// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package models

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// EntityType identifies which business entity a mutation intent targets.
// Apply handlers are registered per entity type; dispatch over this tag is
// exhaustive so an unknown type is rejected before any store access.
type EntityType string

const (
	EntityOrder       EntityType = "order"
	EntityOrderItem   EntityType = "order_item"
	EntityTableStatus EntityType = "table_status"
)

// Valid reports whether the entity type is one of the known tags.
func (t EntityType) Valid() bool {
	switch t {
	case EntityOrder, EntityOrderItem, EntityTableStatus:
		return true
	}
	return false
}

// MutationKind identifies the operation carried by an intent.
type MutationKind string

const (
	KindCreate MutationKind = "create"
	KindUpdate MutationKind = "update"
	KindDelete MutationKind = "delete"
)

// Valid reports whether the kind is one of the known operations.
func (k MutationKind) Valid() bool {
	switch k {
	case KindCreate, KindUpdate, KindDelete:
		return true
	}
	return false
}

// MutationIntent is one client-originated create/update/delete request
// against a single entity. ClientID is a client-generated idempotency token,
// unique per client, used to make retried submissions no-ops.
type MutationIntent struct {
	ClientID        string          `json:"client_id" validate:"required,max=128"`
	EntityType      EntityType      `json:"entity_type" validate:"required"`
	Kind            MutationKind    `json:"kind" validate:"required"`
	Payload         json.RawMessage `json:"payload" validate:"required"`
	ClientTimestamp time.Time       `json:"client_timestamp"`
}

// String returns a compact description for logs.
func (m MutationIntent) String() string {
	return fmt.Sprintf("%s %s (client_id=%s)", m.Kind, m.EntityType, m.ClientID)
}

// ProcessedIntent records one successfully applied intent within a batch.
type ProcessedIntent struct {
	ClientID        string       `json:"client_id"`
	EntityType      EntityType   `json:"entity_type"`
	EntityID        string       `json:"entity_id"`
	Kind            MutationKind `json:"kind"`
	ServerTimestamp time.Time    `json:"server_timestamp"`
}

// FailedIntent records one intent whose apply failed. The batch continues
// past it; the failure is surfaced here and in the operation log only.
type FailedIntent struct {
	ClientID   string       `json:"client_id"`
	EntityType EntityType   `json:"entity_type"`
	Kind       MutationKind `json:"kind"`
	Error      string       `json:"error"`
}

// BatchResult aggregates the outcome of one processBatch call.
// Invariant: len(Processed) + len(Failed) equals the submitted batch size.
type BatchResult struct {
	Processed       []ProcessedIntent `json:"processed"`
	Failed          []FailedIntent    `json:"failed"`
	ServerTimestamp time.Time         `json:"server_timestamp"`
}

// OperationLogEntry is the durable audit record written once per intent
// attempt, success or failure. Unprocessed entries below the retry bound are
// picked up by the retry sweep.
type OperationLogEntry struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenant_id"`
	ClientID        string          `json:"client_id"`
	EntityType      EntityType      `json:"entity_type"`
	EntityID        *string         `json:"entity_id,omitempty"`
	Kind            MutationKind    `json:"kind"`
	Payload         json.RawMessage `json:"payload"`
	ClientTimestamp time.Time       `json:"client_timestamp"`
	ServerTimestamp time.Time       `json:"server_timestamp"`
	Processed       bool            `json:"processed"`
	ErrorMessage    *string         `json:"error_message,omitempty"`
	RetryCount      int             `json:"retry_count"`
}

// ChangeSet is the per-collection delta returned by the change feed.
// Each collection is read independently; the response is not a single
// consistent snapshot across collections (a write landing between two
// per-collection reads may appear in one collection but not another).
// ServerTimestamp is the watermark for the next pull.
type ChangeSet struct {
	Orders          []Order       `json:"orders"`
	OrderItems      []OrderItem   `json:"order_items"`
	Tables          []DiningTable `json:"tables"`
	MenuItems       []MenuItem    `json:"menu_items"`
	ServerTimestamp time.Time     `json:"server_timestamp"`
}

// Total returns the number of changed records across all collections.
func (c *ChangeSet) Total() int {
	return len(c.Orders) + len(c.OrderItems) + len(c.Tables) + len(c.MenuItems)
}
