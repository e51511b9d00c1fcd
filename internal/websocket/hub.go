// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/platewire/platewire/internal/logging"
	"github.com/platewire/platewire/internal/models"
)

// Hub owns the connection registry and the room index. The registry is
// tenant-sharded: one live connection per (tenant, user) pair, a reconnect
// supersedes the previous connection. All state lives inside the Hub and is
// torn down when Serve returns; there is no package-level registry.
type Hub struct {
	mu sync.RWMutex

	// tenants maps tenant ID -> user ID -> live connection.
	tenants map[string]map[string]*Client

	// rooms maps room key -> member set.
	rooms map[string]map[*Client]struct{}

	closed bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		tenants: make(map[string]map[string]*Client),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Serve implements suture.Service. The hub itself is passive (all work
// happens on caller goroutines and per-connection pumps), so Serve blocks
// until shutdown and then closes every live connection.
func (h *Hub) Serve(ctx context.Context) error {
	logging.Info().Msg("WebSocket hub started")
	<-ctx.Done()

	closed := h.closeAll()
	logging.Info().
		Int("clients_closed", closed).
		Msg("WebSocket hub stopped")
	return ctx.Err()
}

// Register adds a connection to the registry, joins its tenant-wide and
// role rooms, and supersedes any previous connection of the same user.
// The superseded connection's send channel is closed, which terminates its
// write pump; its read pump then unregisters it, which is a no-op because
// the registry slot already points at the new connection.
func (h *Hub) Register(c *Client) {
	var superseded *Client

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		c.closeSend()
		return
	}

	users, ok := h.tenants[c.tenantID]
	if !ok {
		users = make(map[string]*Client)
		h.tenants[c.tenantID] = users
	}
	if prev, ok := users[c.userID]; ok && prev != c {
		superseded = prev
		h.removeFromRoomsLocked(prev)
	}
	users[c.userID] = c

	h.joinLocked(c, RoomTenant(c.tenantID))
	for _, room := range roleRooms(c.tenantID, c.role) {
		h.joinLocked(c, room)
	}
	h.mu.Unlock()

	if superseded != nil {
		superseded.closeSend()
		SupersededTotal.Inc()
	}

	ConnectionsGauge.Inc()
	logging.Info().
		Str("tenant_id", c.tenantID).
		Str("user_id", c.userID).
		Str("role", c.role).
		Bool("superseded", superseded != nil).
		Msg("WebSocket client connected")
}

// Unregister removes a connection from the registry and every room it
// joined. It is idempotent and safe to call from a deferred pump cleanup
// even after the connection was superseded.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	users, ok := h.tenants[c.tenantID]
	if !ok || users[c.userID] != c {
		// Already superseded or never registered.
		h.mu.Unlock()
		return
	}
	delete(users, c.userID)
	if len(users) == 0 {
		delete(h.tenants, c.tenantID)
	}
	h.removeFromRoomsLocked(c)
	h.mu.Unlock()

	c.closeSend()
	ConnectionsGauge.Dec()
	logging.Info().
		Str("tenant_id", c.tenantID).
		Str("user_id", c.userID).
		Msg("WebSocket client disconnected")
}

// Join adds a connection to a room. Used for explicit join:table requests;
// tenant and role rooms are joined at registration.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.joinLocked(c, room)
}

// Leave removes a connection from a room.
func (h *Hub) Leave(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	c.forgetRoom(room)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) joinLocked(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rememberRoom(room)
}

// removeFromRoomsLocked drops the connection from every room it joined.
func (h *Hub) removeFromRoomsLocked(c *Client) {
	for _, room := range c.joinedRooms() {
		if members, ok := h.rooms[room]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
		c.forgetRoom(room)
	}
}

// Broadcast delivers an envelope to every member of a room. Members are
// walked in connection-ID order so delivery order is stable. A member whose
// send buffer is full has the envelope dropped; slow consumers never block
// the caller.
func (h *Hub) Broadcast(room string, env models.Envelope) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })

	for _, c := range members {
		c.trySend(env)
	}
}

// EmitToUser delivers an envelope to one user's live connection. Reports
// whether a live connection existed; without one the envelope is dropped,
// there is no offline backlog.
func (h *Hub) EmitToUser(tenantID, userID string, env models.Envelope) bool {
	h.mu.RLock()
	c := h.tenants[tenantID][userID]
	h.mu.RUnlock()

	if c == nil {
		return false
	}
	c.trySend(env)
	return true
}

// ClientCount returns the number of live connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, users := range h.tenants {
		n += len(users)
	}
	return n
}

// RoomCount returns the number of members in a room.
func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// closeAll tears the registry down, closing every connection's send channel
// in ID order.
func (h *Hub) closeAll() int {
	h.mu.Lock()
	h.closed = true

	clients := make([]*Client, 0)
	for _, users := range h.tenants {
		for _, c := range users {
			clients = append(clients, c)
		}
	}
	h.tenants = make(map[string]map[string]*Client)
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	sort.Slice(clients, func(i, j int) bool { return clients[i].id < clients[j].id })
	for _, c := range clients {
		c.closeSend()
	}
	ConnectionsGauge.Sub(float64(len(clients)))
	return len(clients)
}
