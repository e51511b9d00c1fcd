// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// TestInit_WritesStructuredJSON emits one record through the global logger
// and checks the JSON shape.
func TestInit_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("tenant_id", "tenant-a").Msg("batch processed")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if record["tenant_id"] != "tenant-a" {
		t.Errorf("tenant_id = %v, want tenant-a", record["tenant_id"])
	}
	if record["message"] != "batch processed" {
		t.Errorf("message = %v, want batch processed", record["message"])
	}
	if record["level"] != "info" {
		t.Errorf("level = %v, want info", record["level"])
	}
}

// TestInit_LevelFilter drops records below the configured level.
func TestInit_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Debug().Msg("dropped")
	Info().Msg("dropped too")
	Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("below-level records emitted: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn record missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// TestCtx_CarriesIDs stamps correlation and request IDs from the context
// onto every record of the derived logger.
func TestCtx_CarriesIDs(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")

	logger := Ctx(ctx)
	logger.Info().Msg("scoped")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if record["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", record["request_id"])
	}
	if record["correlation_id"] != "corr-1" {
		t.Errorf("correlation_id = %v, want corr-1", record["correlation_id"])
	}
}

// TestSlogLogger_BridgesToZerolog routes slog records through the global
// zerolog logger with attributes preserved.
func TestSlogLogger_BridgesToZerolog(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	slogger := NewSlogLogger()
	slogger.Warn("service restarting", "service", "retry-sweep", "attempt", int64(2))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if record["level"] != "warn" {
		t.Errorf("level = %v, want warn", record["level"])
	}
	if record["service"] != "retry-sweep" {
		t.Errorf("service = %v, want retry-sweep", record["service"])
	}
	if record["message"] != "service restarting" {
		t.Errorf("message = %v, want service restarting", record["message"])
	}
}
