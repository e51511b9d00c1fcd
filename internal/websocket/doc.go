// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

// Package websocket implements the realtime fan-out layer: the connection
// registry, room topology, and broadcast router over gorilla/websocket.
//
// # Registry
//
// The Hub owns a tenant-sharded registry keyed (tenant, user) with at most
// one live connection per pair; a reconnect supersedes the previous
// connection. Every connection runs one read and one write goroutine, and
// registry removal is deferred on read-pump exit so every disconnect path
// cleans up.
//
// # Rooms
//
// tenant:{t}              every connection of the tenant
// tenant:{t}:kitchen      kitchen displays (roles kitchen, manager, admin)
// tenant:{t}:servers      waitstaff (roles server, cashier, manager, admin)
// tenant:{t}:admin        management (roles manager, admin)
// tenant:{t}:table:{id}   explicit join:table membership
//
// Role rooms are joined at registration; table rooms via join:table and
// leave:table client messages.
//
// # Delivery
//
// Delivery is best-effort to live connections only. A full per-connection
// send buffer drops the envelope for that connection and counts it; slow
// consumers never block a room. Disconnected clients catch up through the
// change feed, not through a message backlog.
package websocket
