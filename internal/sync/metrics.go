// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync engine metrics.
var (
	// BatchesTotal counts processed batches.
	BatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "platewire_sync_batches_total",
			Help: "Total number of sync batches processed",
		},
	)

	// IntentsTotal counts intents by outcome.
	IntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewire_sync_intents_total",
			Help: "Total number of mutation intents by outcome",
		},
		[]string{"outcome"}, // processed, failed, deduplicated
	)

	// DedupReplaysTotal counts client-ID replays short-circuited by the
	// dedup index.
	DedupReplaysTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "platewire_sync_dedup_replays_total",
			Help: "Total number of replayed client IDs answered from the dedup index",
		},
	)

	// RetrySweepsTotal counts retry sweep runs by outcome.
	RetrySweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewire_sync_retry_sweeps_total",
			Help: "Total number of retry sweep runs",
		},
		[]string{"outcome"}, // success, failure
	)

	// RetriedIntentsTotal counts replayed operation-log entries by outcome.
	RetriedIntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "platewire_sync_retried_intents_total",
			Help: "Total number of operation-log entries replayed by the sweep",
		},
		[]string{"outcome"}, // processed, failed, rejected
	)
)
