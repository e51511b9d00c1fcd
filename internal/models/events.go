// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package models

import (
	"time"

	"github.com/goccy/go-json"
)

// Realtime event names delivered over the WebSocket transport. The names are
// part of the wire contract with terminal and kitchen-display clients and
// must not change without coordinating a client release.
const (
	EventOrderNew           = "order:new"
	EventOrderConfirmed     = "order:confirmed"
	EventOrderStatusUpdated = "order:status:updated"
	EventOrderReady         = "order:ready"
	EventTableStatusUpdated = "table:status:updated"
	EventMenuItemUpdated    = "menu:item:updated"
	EventWaiterCalled       = "waiter:called"
	EventNotification       = "notification"
)

// Client-initiated message types.
const (
	ClientMsgJoinTable       = "join:table"
	ClientMsgLeaveTable      = "leave:table"
	ClientMsgOrderItemStatus = "order:item:status"
	ClientMsgCallWaiter      = "call:waiter"
)

// Envelope is the wire format for every event delivered to a connection.
type Envelope struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope marshals payload and stamps the envelope with the current time.
// Marshal failures are returned rather than panicking so a bad payload from
// one publisher cannot take down the router.
func NewEnvelope(event string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Event:     event,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ClientMessage is a message received from a connected client.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TableRef identifies a table in join/leave messages.
type TableRef struct {
	TableID string `json:"table_id"`
}

// OrderItemStatusChange is the payload of an order:item:status client message,
// sent by kitchen displays when a line item advances.
type OrderItemStatusChange struct {
	OrderID string  `json:"order_id"`
	ItemID  string  `json:"item_id"`
	Status  string  `json:"status"`
	TableID *string `json:"table_id,omitempty"`
}

// WaiterCall is the payload of a call:waiter client message.
type WaiterCall struct {
	TableID     string `json:"table_id"`
	TableNumber int    `json:"table_number"`
	Reason      string `json:"reason,omitempty"`
}
