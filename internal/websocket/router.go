// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package websocket

import (
	"context"
	"time"

	"github.com/platewire/platewire/internal/logging"
	"github.com/platewire/platewire/internal/models"
	"github.com/platewire/platewire/internal/store"
)

// Router maps committed mutations onto room emissions:
//
//	new order            order:new -> kitchen, servers; order:confirmed -> its table room
//	order/item change    order:status:updated -> tenant-wide; item turning ready adds order:ready -> servers
//	table change         table:status:updated -> tenant-wide
//	menu change          menu:item:updated -> tenant-wide
//	waiter call          waiter:called -> servers
//
// Direct-to-user notifications go out only when the user has a live
// connection; there is no offline backlog.
type Router struct {
	hub   *Hub
	store store.Store
}

// NewRouter creates a broadcast router over the hub.
func NewRouter(hub *Hub, st store.Store) *Router {
	return &Router{hub: hub, store: st}
}

// loadTimeout bounds the entity reload a notification triggers.
const loadTimeout = 5 * time.Second

// NotifyMutation implements the sync coordinator's fan-out hook. It reloads
// the committed entity and emits per the event policy. Reload failures are
// logged and swallowed: fan-out is best-effort, the change still reaches
// clients through the change feed.
func (r *Router) NotifyMutation(tenantID string, entityType models.EntityType, kind models.MutationKind, entityID string) {
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	switch entityType {
	case models.EntityOrder:
		order, err := r.store.GetOrder(ctx, tenantID, entityID)
		if err != nil {
			r.logLoadFailure(tenantID, entityType, entityID, err)
			return
		}
		if kind == models.KindCreate {
			r.EmitNewOrder(tenantID, order)
		} else {
			r.EmitOrderStatusUpdate(tenantID, order)
		}

	case models.EntityOrderItem:
		item, err := r.store.GetOrderItem(ctx, tenantID, entityID)
		if err != nil {
			r.logLoadFailure(tenantID, entityType, entityID, err)
			return
		}
		r.EmitOrderItemUpdate(tenantID, item)

	case models.EntityTableStatus:
		table, err := r.store.GetTable(ctx, tenantID, entityID)
		if err != nil {
			r.logLoadFailure(tenantID, entityType, entityID, err)
			return
		}
		r.EmitTableStatusUpdate(tenantID, table)
	}
}

func (r *Router) logLoadFailure(tenantID string, entityType models.EntityType, entityID string, err error) {
	logging.Warn().Err(err).
		Str("tenant_id", tenantID).
		Str("entity_type", string(entityType)).
		Str("entity_id", entityID).
		Msg("Skipping fan-out, failed to load committed entity")
}

// EmitNewOrder announces a created order to the kitchen and servers rooms,
// and confirms it to the table room when the order is table-bound.
func (r *Router) EmitNewOrder(tenantID string, order *models.Order) {
	env, err := models.NewEnvelope(models.EventOrderNew, order)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build order:new envelope")
		return
	}
	r.hub.Broadcast(RoomKitchen(tenantID), env)
	r.hub.Broadcast(RoomServers(tenantID), env)

	if order.TableID != nil {
		confirmed, err := models.NewEnvelope(models.EventOrderConfirmed, order)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to build order:confirmed envelope")
			return
		}
		r.hub.Broadcast(RoomTable(tenantID, *order.TableID), confirmed)
	}
}

// EmitOrderStatusUpdate announces an order change tenant-wide.
func (r *Router) EmitOrderStatusUpdate(tenantID string, order *models.Order) {
	env, err := models.NewEnvelope(models.EventOrderStatusUpdated, order)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build order:status:updated envelope")
		return
	}
	r.hub.Broadcast(RoomTenant(tenantID), env)
}

// EmitOrderItemUpdate announces a line-item change tenant-wide; an item
// entering the ready state additionally alerts the servers room.
func (r *Router) EmitOrderItemUpdate(tenantID string, item *models.OrderItem) {
	env, err := models.NewEnvelope(models.EventOrderStatusUpdated, item)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build order:status:updated envelope")
		return
	}
	r.hub.Broadcast(RoomTenant(tenantID), env)

	if item.Status == models.ItemStatusReady {
		ready, err := models.NewEnvelope(models.EventOrderReady, item)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to build order:ready envelope")
			return
		}
		r.hub.Broadcast(RoomServers(tenantID), ready)
	}
}

// EmitTableStatusUpdate announces a table change tenant-wide.
func (r *Router) EmitTableStatusUpdate(tenantID string, table *models.DiningTable) {
	env, err := models.NewEnvelope(models.EventTableStatusUpdated, table)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build table:status:updated envelope")
		return
	}
	r.hub.Broadcast(RoomTenant(tenantID), env)
}

// EmitMenuItemUpdate announces a menu availability or price change
// tenant-wide.
func (r *Router) EmitMenuItemUpdate(tenantID string, item *models.MenuItem) {
	env, err := models.NewEnvelope(models.EventMenuItemUpdated, item)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build menu:item:updated envelope")
		return
	}
	r.hub.Broadcast(RoomTenant(tenantID), env)
}

// EmitToUser sends a notification to one user's live connection. Reports
// whether the user was connected; otherwise the notification is dropped.
func (r *Router) EmitToUser(tenantID, userID string, payload any) bool {
	env, err := models.NewEnvelope(models.EventNotification, payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build notification envelope")
		return false
	}
	return r.hub.EmitToUser(tenantID, userID, env)
}

// rebroadcastItemStatus handles an order:item:status client message from a
// kitchen display: tenant-wide status update, plus order:ready to servers
// when the item just became ready.
func (h *Hub) rebroadcastItemStatus(tenantID string, change models.OrderItemStatusChange) {
	env, err := models.NewEnvelope(models.EventOrderStatusUpdated, change)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build order:status:updated envelope")
		return
	}
	h.Broadcast(RoomTenant(tenantID), env)

	if change.Status == models.ItemStatusReady {
		ready, err := models.NewEnvelope(models.EventOrderReady, change)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to build order:ready envelope")
			return
		}
		h.Broadcast(RoomServers(tenantID), ready)
	}
}

// broadcastWaiterCall handles a call:waiter client message.
func (h *Hub) broadcastWaiterCall(tenantID string, call models.WaiterCall) {
	env, err := models.NewEnvelope(models.EventWaiterCalled, call)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to build waiter:called envelope")
		return
	}
	h.Broadcast(RoomServers(tenantID), env)
}
