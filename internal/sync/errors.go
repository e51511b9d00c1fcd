// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package sync

import (
	"errors"
	"fmt"

	"github.com/platewire/platewire/internal/store"
)

// Per-intent failure classes. Every class is recovered locally by the
// coordinator and surfaced only inside that intent's failed entry; none of
// them aborts a batch.
var (
	// ErrValidation indicates a malformed intent: unknown entity type,
	// unknown kind, or a payload missing required fields.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates the intent referenced an entity that does not
	// exist within the tenant.
	ErrNotFound = errors.New("not found")

	// ErrApply indicates the store rejected the write.
	ErrApply = errors.New("apply error")
)

// validationf wraps a formatted message in ErrValidation.
func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// classifyStoreErr maps store sentinel errors into the intent failure
// taxonomy so callers only ever see ErrValidation/ErrNotFound/ErrApply.
func classifyStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %s", ErrApply, err)
}
