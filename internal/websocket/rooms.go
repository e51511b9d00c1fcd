// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package websocket

import "fmt"

// Staff roles carried in the JWT. Unknown roles get the tenant-wide room
// only.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleKitchen = "kitchen"
	RoleServer  = "server"
	RoleCashier = "cashier"
)

// RoomTenant is the tenant-wide room every connection joins.
func RoomTenant(tenantID string) string {
	return "tenant:" + tenantID
}

// RoomKitchen is the kitchen-display room.
func RoomKitchen(tenantID string) string {
	return "tenant:" + tenantID + ":kitchen"
}

// RoomServers is the waitstaff room.
func RoomServers(tenantID string) string {
	return "tenant:" + tenantID + ":servers"
}

// RoomAdmin is the management room.
func RoomAdmin(tenantID string) string {
	return "tenant:" + tenantID + ":admin"
}

// RoomTable is the per-table room guests and staff join explicitly via
// join:table.
func RoomTable(tenantID, tableID string) string {
	return fmt.Sprintf("tenant:%s:table:%s", tenantID, tableID)
}

// roleRooms returns the rooms a role is auto-joined to at registration,
// beyond the tenant-wide room.
func roleRooms(tenantID, role string) []string {
	switch role {
	case RoleAdmin, RoleManager:
		return []string{RoomAdmin(tenantID), RoomKitchen(tenantID), RoomServers(tenantID)}
	case RoleKitchen:
		return []string{RoomKitchen(tenantID)}
	case RoleServer, RoleCashier:
		return []string{RoomServers(tenantID)}
	default:
		return nil
	}
}
