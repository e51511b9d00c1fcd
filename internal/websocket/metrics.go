// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Realtime fan-out metrics.
var (
	// ConnectionsGauge tracks live WebSocket connections.
	ConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "platewire_ws_connections",
			Help: "Current number of live WebSocket connections",
		},
	)

	// BroadcastsTotal counts delivered envelopes by event name.
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewire_ws_broadcasts_total",
			Help: "Total number of envelopes delivered to connections",
		},
		[]string{"event"},
	)

	// DroppedTotal counts envelopes dropped because a connection's send
	// buffer was full.
	DroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "platewire_ws_dropped_total",
			Help: "Total number of envelopes dropped on full send buffers",
		},
	)

	// SupersededTotal counts connections closed because the same user
	// reconnected.
	SupersededTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "platewire_ws_superseded_total",
			Help: "Total number of connections superseded by a reconnect",
		},
	)
)
