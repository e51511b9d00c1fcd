// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package audit

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/platewire/platewire/internal/models"
)

// MemoryLog implements Log in memory. Suitable for tests; entries are lost
// on restart, which forfeits replay of failed intents.
type MemoryLog struct {
	mu      sync.RWMutex
	entries map[string]models.OperationLogEntry
}

// NewMemoryLog creates an empty in-memory operation log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{entries: make(map[string]models.OperationLogEntry)}
}

// Append persists one entry.
func (l *MemoryLog) Append(_ context.Context, entry *models.OperationLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	l.entries[entry.ID] = *entry
	return nil
}

// Unprocessed returns the tenant's unprocessed entries below the retry
// bound, oldest first.
func (l *MemoryLog) Unprocessed(_ context.Context, tenantID string, maxRetries, limit int) ([]models.OperationLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []models.OperationLogEntry
	for _, e := range l.entries {
		if e.TenantID == tenantID && !e.Processed && e.RetryCount < maxRetries {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServerTimestamp.Before(out[j].ServerTimestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UnprocessedTenants returns tenants with replayable entries.
func (l *MemoryLog) UnprocessedTenants(_ context.Context, maxRetries int) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	seen := make(map[string]bool)
	var tenants []string
	for _, e := range l.entries {
		if !e.Processed && e.RetryCount < maxRetries && !seen[e.TenantID] {
			seen[e.TenantID] = true
			tenants = append(tenants, e.TenantID)
		}
	}
	sort.Strings(tenants)
	return tenants, nil
}

// MarkProcessed flips an entry to processed.
func (l *MemoryLog) MarkProcessed(_ context.Context, id, entityID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		return fmt.Errorf("operation log entry not found: %s", id)
	}
	e.Processed = true
	e.EntityID = &entityID
	e.ErrorMessage = nil
	l.entries[id] = e
	return nil
}

// IncrementRetry bumps retry count and records the latest failure.
func (l *MemoryLog) IncrementRetry(_ context.Context, id, errorMessage string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[id]
	if !ok {
		return fmt.Errorf("operation log entry not found: %s", id)
	}
	e.RetryCount++
	e.ErrorMessage = &errorMessage
	l.entries[id] = e
	return nil
}

// All returns a copy of every entry, for test assertions.
func (l *MemoryLog) All() []models.OperationLogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.OperationLogEntry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServerTimestamp.Before(out[j].ServerTimestamp) })
	return out
}
