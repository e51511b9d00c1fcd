// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	gws "github.com/gorilla/websocket"

	"github.com/platewire/platewire/internal/audit"
	"github.com/platewire/platewire/internal/auth"
	"github.com/platewire/platewire/internal/config"
	"github.com/platewire/platewire/internal/models"
	"github.com/platewire/platewire/internal/store"
	syncpkg "github.com/platewire/platewire/internal/sync"
	"github.com/platewire/platewire/internal/websocket"
)

const testSecret = "test-secret-0123456789abcdef0123456789abcdef"

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			Port:        0,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: config.SecurityConfig{
			JWTSecret:         testSecret,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: true,
			CORSOrigins:       []string{"https://pos.example.com"},
		},
		Sync: config.SyncConfig{
			MaxBatchSize: 100,
			DedupTTL:     time.Hour,
		},
		Realtime: config.RealtimeConfig{
			SendBufferSize: 16,
			WriteWait:      time.Second,
			PongWait:       time.Second,
		},
	}
}

// newTestHandler wires a full handler over in-memory backends.
func newTestHandler(t *testing.T) (*Handler, store.Store) {
	t.Helper()

	cfg := testConfig()
	st := store.NewMemoryStore()
	coordinator := syncpkg.NewCoordinator(st, audit.NewMemoryLog(), syncpkg.NewMemoryDeduper(), cfg.Sync.DedupTTL)
	feed := syncpkg.NewFeed(st)
	hub := websocket.NewHub()

	jwt, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	return NewHandler(coordinator, feed, hub, jwt, cfg, nil), st
}

func bearerToken(t *testing.T, h *Handler, userID, tenantID, role string) string {
	t.Helper()
	token, err := h.jwt.GenerateToken(userID, tenantID, role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return token
}

func doJSON(t *testing.T, router http.Handler, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, target, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) *models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return &resp
}

func orderIntent(clientID string) models.MutationIntent {
	return models.MutationIntent{
		ClientID:        clientID,
		EntityType:      models.EntityOrder,
		Kind:            models.KindCreate,
		Payload:         json.RawMessage(`{"total_amount": 24.50}`),
		ClientTimestamp: time.Now().UTC(),
	}
}

// TestProcessBatch_Success submits a valid batch and checks the wrapped
// result reports every intent as processed.
func TestProcessBatch_Success(t *testing.T) {
	h, _ := newTestHandler(t)
	router := h.Routes()
	token := bearerToken(t, h, "user-1", "tenant-a", "server")

	req := BatchRequest{Intents: []models.MutationIntent{
		orderIntent("c-1"),
		orderIntent("c-2"),
	}}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", token, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	if resp.Status != "success" {
		t.Fatalf("status = %q, want success", resp.Status)
	}

	data, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var result models.BatchResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decode batch result: %v", err)
	}
	if len(result.Processed) != 2 || len(result.Failed) != 0 {
		t.Errorf("processed = %d, failed = %d, want 2/0", len(result.Processed), len(result.Failed))
	}
	if result.ServerTimestamp.IsZero() {
		t.Error("server timestamp is zero")
	}
}

// TestProcessBatch_RequiresAuth rejects unauthenticated and bad-token
// submissions with 401.
func TestProcessBatch_RequiresAuth(t *testing.T) {
	h, _ := newTestHandler(t)
	router := h.Routes()

	for name, token := range map[string]string{
		"no token":  "",
		"bad token": "not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", token,
				BatchRequest{Intents: []models.MutationIntent{orderIntent("c-1")}})
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			resp := decodeResponse(t, rec)
			if resp.Error == nil || resp.Error.Code != "AUTHENTICATION_ERROR" {
				t.Errorf("error = %+v, want AUTHENTICATION_ERROR", resp.Error)
			}
		})
	}
}

// TestProcessBatch_EmptyBody rejects empty and malformed bodies with a
// validation error.
func TestProcessBatch_EmptyBody(t *testing.T) {
	h, _ := newTestHandler(t)
	router := h.Routes()
	token := bearerToken(t, h, "user-1", "tenant-a", "server")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", token,
		BatchRequest{Intents: nil})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v, want VALIDATION_ERROR", resp.Error)
	}
}

// TestProcessBatch_OversizedBatch rejects a batch above the configured cap
// without applying any of it.
func TestProcessBatch_OversizedBatch(t *testing.T) {
	h, st := newTestHandler(t)
	router := h.Routes()
	token := bearerToken(t, h, "user-1", "tenant-a", "server")

	intents := make([]models.MutationIntent, 101)
	for i := range intents {
		intents[i] = orderIntent(fmt.Sprintf("c-%d", i))
	}
	rec := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", token,
		BatchRequest{Intents: intents})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}

	orders, err := st.OrdersUpdatedSince(t.Context(), "tenant-a", time.Time{})
	if err != nil {
		t.Fatalf("OrdersUpdatedSince: %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("orders written = %d, want 0", len(orders))
	}
}

// TestProcessBatch_TenantFromToken ignores any tenant a client might smuggle
// in and applies the batch under the token's tenant.
func TestProcessBatch_TenantFromToken(t *testing.T) {
	h, st := newTestHandler(t)
	router := h.Routes()
	token := bearerToken(t, h, "user-1", "tenant-a", "server")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", token,
		BatchRequest{Intents: []models.MutationIntent{orderIntent("c-1")}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	orders, err := st.OrdersUpdatedSince(t.Context(), "tenant-a", time.Time{})
	if err != nil {
		t.Fatalf("OrdersUpdatedSince: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders under tenant-a = %d, want 1", len(orders))
	}
	if other, _ := st.OrdersUpdatedSince(t.Context(), "tenant-b", time.Time{}); len(other) != 0 {
		t.Errorf("orders leaked to tenant-b: %d", len(other))
	}
}

// TestChanges_RoundTrip writes through the batch endpoint, then reads the
// change feed from a zero watermark and from the returned one.
func TestChanges_RoundTrip(t *testing.T) {
	h, _ := newTestHandler(t)
	router := h.Routes()
	token := bearerToken(t, h, "user-1", "tenant-a", "server")

	rec := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", token,
		BatchRequest{Intents: []models.MutationIntent{orderIntent("c-1")}})
	if rec.Code != http.StatusOK {
		t.Fatalf("batch status = %d, want 200", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sync/changes", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("changes status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	resp := decodeResponse(t, rec)
	data, _ := json.Marshal(resp.Data)
	var changes models.ChangeSet
	if err := json.Unmarshal(data, &changes); err != nil {
		t.Fatalf("decode change set: %v", err)
	}
	if len(changes.Orders) != 1 {
		t.Fatalf("orders in feed = %d, want 1", len(changes.Orders))
	}
	if changes.ServerTimestamp.IsZero() {
		t.Error("feed watermark is zero")
	}

	// Reading again from the new watermark returns nothing.
	since := changes.ServerTimestamp.Format(time.RFC3339Nano)
	rec = doJSON(t, router, http.MethodGet, "/api/v1/sync/changes?since="+since, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second changes status = %d, want 200", rec.Code)
	}
	resp = decodeResponse(t, rec)
	data, _ = json.Marshal(resp.Data)
	var empty models.ChangeSet
	if err := json.Unmarshal(data, &empty); err != nil {
		t.Fatalf("decode second change set: %v", err)
	}
	if empty.Total() != 0 {
		t.Errorf("changes after watermark = %d, want 0", empty.Total())
	}
}

// TestChanges_InvalidSince rejects a malformed watermark with 400.
func TestChanges_InvalidSince(t *testing.T) {
	h, _ := newTestHandler(t)
	router := h.Routes()
	token := bearerToken(t, h, "user-1", "tenant-a", "server")

	rec := doJSON(t, router, http.MethodGet, "/api/v1/sync/changes?since=yesterday", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("error = %+v, want VALIDATION_ERROR", resp.Error)
	}
}

// TestHealth_Probes checks liveness and readiness without a durable store.
func TestHealth_Probes(t *testing.T) {
	h, _ := newTestHandler(t)
	router := h.Routes()

	for _, path := range []string{"/api/v1/health/live", "/api/v1/health/ready"} {
		rec := doJSON(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

// TestHealthReady_StoreDown reports 503 when the store ping fails.
func TestHealthReady_StoreDown(t *testing.T) {
	h, _ := newTestHandler(t)
	h.pinger = failingPinger{}
	router := h.Routes()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/health/ready", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	resp := decodeResponse(t, rec)
	if resp.Error == nil || resp.Error.Code != "SERVICE_UNAVAILABLE" {
		t.Errorf("error = %+v, want SERVICE_UNAVAILABLE", resp.Error)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return fmt.Errorf("store offline") }

// TestCheckOrigin_Allowlist verifies the handshake origin policy: allowed
// origins and header-less native clients pass, everything else is refused.
func TestCheckOrigin_Allowlist(t *testing.T) {
	h, _ := newTestHandler(t)

	cases := []struct {
		name   string
		origin string
		want   bool
	}{
		{"allowed origin", "https://pos.example.com", true},
		{"no origin header", "", true},
		{"unknown origin", "https://evil.example.com", false},
		{"scheme mismatch", "http://pos.example.com", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tc.origin != "" {
				req.Header.Set("Origin", tc.origin)
			}
			if got := h.checkOrigin(req); got != tc.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tc.origin, got, tc.want)
			}
		})
	}
}

// TestWebSocket_TokenQueryParam accepts the handshake token via query
// parameter, since browser WebSocket clients cannot set headers.
func TestWebSocket_TokenQueryParam(t *testing.T) {
	h, _ := newTestHandler(t)
	router := h.Routes()
	token := bearerToken(t, h, "user-1", "tenant-a", "server")

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):] + "/ws?token=" + token
	conn, resp, err := gwsDial(wsURL)
	if err != nil {
		t.Fatalf("dial: %v (resp %+v)", err, resp)
	}
	defer conn.Close()

	waitForClients(t, h, 1)
}

// TestWebSocket_RejectsAnonymous refuses the handshake without a token
// before any upgrade happens.
func TestWebSocket_RejectsAnonymous(t *testing.T) {
	h, _ := newTestHandler(t)
	router := h.Routes()

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + srv.URL[len("http"):] + "/ws"
	_, resp, err := gwsDial(wsURL)
	if err == nil {
		t.Fatal("dial succeeded, want handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response = %+v, want 401", resp)
	}
	if h.hub.ClientCount() != 0 {
		t.Errorf("registered clients = %d, want 0", h.hub.ClientCount())
	}
}

func gwsDial(url string) (*gws.Conn, *http.Response, error) {
	dialer := gws.Dialer{HandshakeTimeout: 2 * time.Second}
	return dialer.Dial(url, nil)
}

func waitForClients(t *testing.T, h *Handler, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.hub.ClientCount(), want)
}
