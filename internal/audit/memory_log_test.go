// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package audit

import (
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/platewire/platewire/internal/models"
)

func appendEntry(t *testing.T, l *MemoryLog, tenantID string, processed bool, retries int, ts time.Time) *models.OperationLogEntry {
	t.Helper()
	entry := &models.OperationLogEntry{
		TenantID:        tenantID,
		ClientID:        "client-" + ts.Format("150405.000000000"),
		EntityType:      models.EntityOrder,
		Kind:            models.KindCreate,
		Payload:         json.RawMessage(`{"total_amount": 10}`),
		Processed:       processed,
		RetryCount:      retries,
		ServerTimestamp: ts,
	}
	if err := l.Append(t.Context(), entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	return entry
}

// TestMemoryLog_AppendAssignsID fills a missing entry ID on append.
func TestMemoryLog_AppendAssignsID(t *testing.T) {
	l := NewMemoryLog()
	entry := appendEntry(t, l, "tenant-a", true, 0, time.Now().UTC())

	if entry.ID == "" {
		t.Error("entry ID not assigned")
	}
	if len(l.All()) != 1 {
		t.Errorf("entries = %d, want 1", len(l.All()))
	}
}

// TestMemoryLog_UnprocessedFilters returns only unprocessed entries of the
// tenant below the retry bound, oldest first.
func TestMemoryLog_UnprocessedFilters(t *testing.T) {
	l := NewMemoryLog()
	base := time.Now().UTC()
	newer := appendEntry(t, l, "tenant-a", false, 0, base.Add(time.Second))
	older := appendEntry(t, l, "tenant-a", false, 1, base)
	appendEntry(t, l, "tenant-a", true, 0, base)
	appendEntry(t, l, "tenant-a", false, 5, base)
	appendEntry(t, l, "tenant-b", false, 0, base)

	got, err := l.Unprocessed(t.Context(), "tenant-a", 5, 100)
	if err != nil {
		t.Fatalf("Unprocessed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("unprocessed = %d entries, want 2", len(got))
	}
	if got[0].ID != older.ID || got[1].ID != newer.ID {
		t.Errorf("order = [%s %s], want oldest first [%s %s]", got[0].ID, got[1].ID, older.ID, newer.ID)
	}
}

// TestMemoryLog_UnprocessedLimit honors the batch limit.
func TestMemoryLog_UnprocessedLimit(t *testing.T) {
	l := NewMemoryLog()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		appendEntry(t, l, "tenant-a", false, 0, base.Add(time.Duration(i)*time.Millisecond))
	}

	got, err := l.Unprocessed(t.Context(), "tenant-a", 5, 3)
	if err != nil {
		t.Fatalf("Unprocessed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("unprocessed = %d entries, want 3", len(got))
	}
}

// TestMemoryLog_UnprocessedTenants lists tenants with replayable work,
// sorted for deterministic sweep order.
func TestMemoryLog_UnprocessedTenants(t *testing.T) {
	l := NewMemoryLog()
	now := time.Now().UTC()
	appendEntry(t, l, "tenant-b", false, 0, now)
	appendEntry(t, l, "tenant-a", false, 0, now)
	appendEntry(t, l, "tenant-c", true, 0, now)
	appendEntry(t, l, "tenant-d", false, 9, now)

	tenants, err := l.UnprocessedTenants(t.Context(), 5)
	if err != nil {
		t.Fatalf("UnprocessedTenants: %v", err)
	}
	if len(tenants) != 2 || tenants[0] != "tenant-a" || tenants[1] != "tenant-b" {
		t.Errorf("tenants = %v, want [tenant-a tenant-b]", tenants)
	}
}

// TestMemoryLog_MarkProcessed flips the entry and clears the stored error.
func TestMemoryLog_MarkProcessed(t *testing.T) {
	l := NewMemoryLog()
	entry := appendEntry(t, l, "tenant-a", false, 0, time.Now().UTC())
	if err := l.IncrementRetry(t.Context(), entry.ID, "store offline"); err != nil {
		t.Fatalf("IncrementRetry: %v", err)
	}

	if err := l.MarkProcessed(t.Context(), entry.ID, "order-1"); err != nil {
		t.Fatalf("MarkProcessed: %v", err)
	}

	got := l.All()[0]
	if !got.Processed {
		t.Error("entry still unprocessed")
	}
	if got.EntityID == nil || *got.EntityID != "order-1" {
		t.Errorf("entity ID = %v, want order-1", got.EntityID)
	}
	if got.ErrorMessage != nil {
		t.Errorf("error message = %q, want cleared", *got.ErrorMessage)
	}

	if remaining, _ := l.Unprocessed(t.Context(), "tenant-a", 5, 100); len(remaining) != 0 {
		t.Errorf("unprocessed after mark = %d, want 0", len(remaining))
	}
}

// TestMemoryLog_IncrementRetry bumps the count and keeps the latest cause.
func TestMemoryLog_IncrementRetry(t *testing.T) {
	l := NewMemoryLog()
	entry := appendEntry(t, l, "tenant-a", false, 0, time.Now().UTC())

	for _, cause := range []string{"first failure", "second failure"} {
		if err := l.IncrementRetry(t.Context(), entry.ID, cause); err != nil {
			t.Fatalf("IncrementRetry: %v", err)
		}
	}

	got := l.All()[0]
	if got.RetryCount != 2 {
		t.Errorf("retry count = %d, want 2", got.RetryCount)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "second failure" {
		t.Errorf("error message = %v, want latest cause", got.ErrorMessage)
	}
}

// TestMemoryLog_UnknownEntry errors on marks against a missing ID.
func TestMemoryLog_UnknownEntry(t *testing.T) {
	l := NewMemoryLog()

	if err := l.MarkProcessed(t.Context(), "missing", "order-1"); err == nil {
		t.Error("MarkProcessed on missing entry returned nil")
	}
	if err := l.IncrementRetry(t.Context(), "missing", "cause"); err == nil {
		t.Error("IncrementRetry on missing entry returned nil")
	}
}
