// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/platewire/platewire/internal/logging"
)

// TestRequestID_GeneratesWhenAbsent verifies a fresh ID is minted and
// exposed in both header and context.
func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var ctxID, logID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
		logID = logging.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	headerID := rec.Header().Get("X-Request-ID")
	if headerID == "" {
		t.Fatal("Expected X-Request-ID header")
	}
	if ctxID != headerID {
		t.Errorf("Context ID %q != header ID %q", ctxID, headerID)
	}
	if logID != headerID {
		t.Errorf("Logging context ID %q != header ID %q", logID, headerID)
	}
}

// TestRequestID_HonorsUpstreamHeader verifies proxy-assigned IDs pass
// through unchanged.
func TestRequestID_HonorsUpstreamHeader(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := GetRequestID(r.Context()); got != "upstream-123" {
			t.Errorf("Context ID %q, want upstream-123", got)
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "upstream-123" {
		t.Errorf("Header ID %q, want upstream-123", got)
	}
}

// TestRequestID_CorrelationIDSeeded verifies each request gets a
// correlation ID for cross-component tracing.
func TestRequestID_CorrelationIDSeeded(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if logging.CorrelationIDFromContext(r.Context()) == "" {
			t.Error("Expected correlation ID in context")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
