// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/platewire/platewire/internal/config"
	"github.com/platewire/platewire/internal/logging"
	"github.com/platewire/platewire/internal/models"
)

const (
	defaultWriteWait      = 10 * time.Second
	defaultPongWait       = 60 * time.Second
	defaultMaxMessageSize = 64 * 1024
	defaultSendBuffer     = 256
)

// clientIDCounter assigns monotonically increasing connection IDs so
// broadcast iteration order is stable.
var clientIDCounter atomic.Uint64

// Conn is the subset of *gorilla/websocket.Conn the client uses. Tests
// substitute an in-memory implementation.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is one authenticated WebSocket connection: a read pump handling
// client messages and a write pump draining the send queue. Registry removal
// is deferred on read-pump exit, so every disconnect path unregisters.
type Client struct {
	id       uint64
	hub      *Hub
	conn     Conn
	send     chan models.Envelope
	tenantID string
	userID   string
	role     string

	writeWait      time.Duration
	pongWait       time.Duration
	maxMessageSize int64

	roomsMu sync.Mutex
	rooms   map[string]struct{}

	sendOnce sync.Once
}

// NewClient creates a connection for an authenticated identity. The caller
// registers it with the hub and calls Start.
func NewClient(hub *Hub, conn Conn, tenantID, userID, role string, cfg config.RealtimeConfig) *Client {
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBuffer
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaultWriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	return &Client{
		id:             clientIDCounter.Add(1),
		hub:            hub,
		conn:           conn,
		send:           make(chan models.Envelope, cfg.SendBufferSize),
		tenantID:       tenantID,
		userID:         userID,
		role:           role,
		writeWait:      cfg.WriteWait,
		pongWait:       cfg.PongWait,
		maxMessageSize: cfg.MaxMessageSize,
		rooms:          make(map[string]struct{}),
	}
}

// Start launches the read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// trySend queues an envelope without blocking. Full buffer means the
// envelope is dropped and counted; one slow consumer never stalls a room.
func (c *Client) trySend(env models.Envelope) {
	defer func() {
		// The send channel may close concurrently with a broadcast when a
		// connection is superseded; a dropped envelope to a dying
		// connection is equivalent to a full buffer.
		if recover() != nil {
			DroppedTotal.Inc()
		}
	}()

	select {
	case c.send <- env:
		BroadcastsTotal.WithLabelValues(env.Event).Inc()
	default:
		DroppedTotal.Inc()
	}
}

// closeSend closes the send channel exactly once, terminating the write
// pump with a close frame.
func (c *Client) closeSend() {
	c.sendOnce.Do(func() { close(c.send) })
}

func (c *Client) rememberRoom(room string) {
	c.roomsMu.Lock()
	c.rooms[room] = struct{}{}
	c.roomsMu.Unlock()
}

func (c *Client) forgetRoom(room string) {
	c.roomsMu.Lock()
	delete(c.rooms, room)
	c.roomsMu.Unlock()
}

func (c *Client) joinedRooms() []string {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()

	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// readPump reads client messages until the connection drops, then
// unregisters. The deferred cleanup covers every exit path: remote close,
// read error, oversized message, supersede.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		logging.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Warn().Err(err).
					Str("tenant_id", c.tenantID).
					Str("user_id", c.userID).
					Msg("Unexpected WebSocket close")
			}
			return
		}

		var msg models.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Debug().Err(err).
				Str("user_id", c.userID).
				Msg("Ignoring malformed client message")
			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage dispatches one client message. Malformed payloads are
// ignored; a client can never crash the pump.
func (c *Client) handleMessage(msg models.ClientMessage) {
	switch msg.Type {
	case models.ClientMsgJoinTable:
		var ref models.TableRef
		if err := json.Unmarshal(msg.Payload, &ref); err != nil || ref.TableID == "" {
			return
		}
		c.hub.Join(c, RoomTable(c.tenantID, ref.TableID))

	case models.ClientMsgLeaveTable:
		var ref models.TableRef
		if err := json.Unmarshal(msg.Payload, &ref); err != nil || ref.TableID == "" {
			return
		}
		c.hub.Leave(c, RoomTable(c.tenantID, ref.TableID))

	case models.ClientMsgOrderItemStatus:
		var change models.OrderItemStatusChange
		if err := json.Unmarshal(msg.Payload, &change); err != nil || change.OrderID == "" {
			return
		}
		c.hub.rebroadcastItemStatus(c.tenantID, change)

	case models.ClientMsgCallWaiter:
		var call models.WaiterCall
		if err := json.Unmarshal(msg.Payload, &call); err != nil || call.TableID == "" {
			return
		}
		c.hub.broadcastWaiterCall(c.tenantID, call)

	default:
		logging.Debug().
			Str("type", msg.Type).
			Str("user_id", c.userID).
			Msg("Ignoring unknown client message type")
	}
}

// writePump drains the send queue onto the wire and keeps the connection
// alive with pings.
func (c *Client) writePump() {
	pingPeriod := (c.pongWait * 9) / 10
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				return
			}
			if !ok {
				// Hub closed the queue.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(env); err != nil {
				logging.Debug().Err(err).
					Str("user_id", c.userID).
					Msg("WebSocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
