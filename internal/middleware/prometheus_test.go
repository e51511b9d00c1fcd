// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestPrometheusMetrics_PreservesResponse verifies the wrapper passes
// status and body through unchanged.
func TestPrometheusMetrics_PreservesResponse(t *testing.T) {
	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/sync/changes", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("Status %d, want %d", rec.Code, http.StatusTeapot)
	}
	if rec.Body.String() != "short and stout" {
		t.Errorf("Body %q changed", rec.Body.String())
	}
}

// TestPrometheusMetrics_DefaultStatusOK verifies implicit 200s are recorded
// without an explicit WriteHeader call.
func TestPrometheusMetrics_DefaultStatusOK(t *testing.T) {
	handler := PrometheusMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Status %d, want 200", rec.Code)
	}
}
