// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/platewire/platewire/internal/logging"
	"github.com/platewire/platewire/internal/models"
)

// ErrDeduperClosed indicates the dedup store has been closed.
var ErrDeduperClosed = errors.New("dedup store is closed")

// DedupRecord is what the dedup index remembers about an applied intent.
// On a replayed client ID the coordinator echoes this record instead of
// re-running the handler, so retried batches converge on the first outcome.
type DedupRecord struct {
	EntityType      models.EntityType   `json:"entity_type"`
	EntityID        string              `json:"entity_id"`
	Kind            models.MutationKind `json:"kind"`
	ServerTimestamp time.Time           `json:"server_timestamp"`
	ExpiresAt       time.Time           `json:"expires_at"`
}

// Deduper is the client-ID idempotency index. Only successfully applied
// intents are stored, so a failed intent stays replayable: the coordinator
// calls Lookup before applying and Store after the apply succeeds.
type Deduper interface {
	// Lookup returns the stored record for a (tenant, client ID) pair, or
	// nil when the pair is unseen or its entry has expired.
	Lookup(ctx context.Context, tenantID, clientID string) (*DedupRecord, error)

	// Store records an applied intent's outcome with the given TTL,
	// overwriting any prior entry for the pair.
	Store(ctx context.Context, tenantID, clientID string, rec *DedupRecord, ttl time.Duration) error

	// Close closes the index and releases resources.
	Close() error
}

func dedupKey(tenantID, clientID string) string {
	return fmt.Sprintf("dedup:%s:%s", tenantID, clientID)
}

// MemoryDeduper is an in-memory dedup index. Entries are lost on restart,
// which makes it suitable for tests and single-run tooling only.
type MemoryDeduper struct {
	mu      sync.RWMutex
	entries map[string]*DedupRecord
	closed  bool
}

// NewMemoryDeduper creates a new in-memory dedup index.
func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{
		entries: make(map[string]*DedupRecord),
	}
}

// Lookup returns the stored record for the pair, if any.
func (d *MemoryDeduper) Lookup(_ context.Context, tenantID, clientID string) (*DedupRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrDeduperClosed
	}

	rec, ok := d.entries[dedupKey(tenantID, clientID)]
	if !ok || time.Now().After(rec.ExpiresAt) {
		return nil, nil
	}
	return rec, nil
}

// Store records an applied intent's outcome.
func (d *MemoryDeduper) Store(_ context.Context, tenantID, clientID string, rec *DedupRecord, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDeduperClosed
	}

	rec.ExpiresAt = time.Now().Add(ttl)
	d.entries[dedupKey(tenantID, clientID)] = rec
	return nil
}

// Close closes the index.
func (d *MemoryDeduper) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.entries = nil
	return nil
}

// BadgerDeduper is a BadgerDB-backed dedup index for production use. Entries
// carry a native TTL so expired client IDs age out without a sweep.
type BadgerDeduper struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// NewBadgerDeduper opens a BadgerDB dedup index at path.
func NewBadgerDeduper(path string) (*BadgerDeduper, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithCompactL0OnClose(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open dedup store: %w", err)
	}
	return &BadgerDeduper{db: db}, nil
}

// Lookup returns the stored record for the pair, if any.
func (d *BadgerDeduper) Lookup(_ context.Context, tenantID, clientID string) (*DedupRecord, error) {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return nil, ErrDeduperClosed
	}
	d.mu.RUnlock()

	key := []byte(dedupKey(tenantID, clientID))
	var rec *DedupRecord

	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var stored DedupRecord
			if err := json.Unmarshal(val, &stored); err != nil {
				// Undecodable entries are treated as unseen.
				logging.Warn().Err(err).
					Str("client_id", clientID).
					Msg("Dropping undecodable dedup record")
				return nil
			}
			if time.Now().Before(stored.ExpiresAt) {
				rec = &stored
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("dedup lookup: %w", err)
	}
	return rec, nil
}

// Store records an applied intent's outcome.
func (d *BadgerDeduper) Store(_ context.Context, tenantID, clientID string, rec *DedupRecord, ttl time.Duration) error {
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		return ErrDeduperClosed
	}
	d.mu.RUnlock()

	rec.ExpiresAt = time.Now().Add(ttl)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal dedup record: %w", err)
	}

	key := []byte(dedupKey(tenantID, clientID))
	err = d.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("dedup store: %w", err)
	}
	return nil
}

// Close closes the underlying BadgerDB.
func (d *BadgerDeduper) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// NewDeduper selects the dedup backend from configuration: a BadgerDB index
// at the configured path, or the in-memory index when no path is set.
func NewDeduper(path string) (Deduper, error) {
	if path == "" {
		return NewMemoryDeduper(), nil
	}
	return NewBadgerDeduper(path)
}
