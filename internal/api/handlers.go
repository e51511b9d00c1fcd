// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

// Package api exposes the HTTP surface of the sync engine: batch intent
// ingestion, the change feed, the WebSocket handshake, and health probes.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/goccy/go-json"

	"github.com/platewire/platewire/internal/auth"
	"github.com/platewire/platewire/internal/config"
	"github.com/platewire/platewire/internal/logging"
	"github.com/platewire/platewire/internal/models"
	"github.com/platewire/platewire/internal/sync"
	"github.com/platewire/platewire/internal/validation"
	"github.com/platewire/platewire/internal/websocket"
)

// Pinger reports whether the durable store is reachable. The readiness probe
// uses it; the in-memory store used in tests satisfies it trivially.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler bundles the API dependencies.
type Handler struct {
	coordinator *sync.Coordinator
	feed        *sync.Feed
	hub         *websocket.Hub
	jwt         *auth.JWTManager
	cfg         *config.Config
	pinger      Pinger
	upgrader    gws.Upgrader
}

// NewHandler creates the API handler. pinger may be nil when no durable
// store backs the deployment; readiness then reports live only.
func NewHandler(coordinator *sync.Coordinator, feed *sync.Feed, hub *websocket.Hub, jwt *auth.JWTManager, cfg *config.Config, pinger Pinger) *Handler {
	h := &Handler{
		coordinator: coordinator,
		feed:        feed,
		hub:         hub,
		jwt:         jwt,
		cfg:         cfg,
		pinger:      pinger,
	}
	h.upgrader = gws.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

// BatchRequest is the body of POST /api/v1/sync/batch. Tenant comes from the
// verified token, never from the body.
type BatchRequest struct {
	Intents []models.MutationIntent `json:"intents" validate:"required,min=1,dive"`
}

// ProcessBatch handles POST /api/v1/sync/batch.
func (h *Handler) ProcessBatch(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"Authentication required", nil)
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"Request body is not valid JSON", err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidationError(w, verr)
		return
	}

	result, err := h.coordinator.ProcessBatch(r.Context(), identity.TenantID, req.Intents)
	if err != nil {
		if errors.Is(err, sync.ErrValidation) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to process batch", err)
		return
	}

	respondSuccess(w, http.StatusOK, result)
}

// Changes handles GET /api/v1/sync/changes. The since parameter is an
// RFC 3339 watermark; omitting it returns the tenant's full current state.
func (h *Handler) Changes(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"Authentication required", nil)
		return
	}

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"since must be an RFC 3339 timestamp", nil)
			return
		}
		since = parsed
	}

	changes, err := h.feed.ChangesSince(r.Context(), identity.TenantID, since)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Failed to load changes", err)
		return
	}

	respondSuccess(w, http.StatusOK, changes)
}

// WebSocket handles GET /ws: it authenticates, upgrades the connection, and
// hands it to the hub. Registration joins the tenant room and the caller's
// role rooms before the pumps start, so no broadcast is missed.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
			"Authentication required", nil)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		logger := logging.Ctx(r.Context())
		logger.Warn().
			Str("remote_addr", r.RemoteAddr).
			Err(err).
			Msg("WebSocket upgrade failed")
		return
	}

	client := websocket.NewClient(h.hub, conn, identity.TenantID, identity.UserID, identity.Role, h.cfg.Realtime)
	h.hub.Register(client)
	client.Start()

	logging.Info().
		Str("tenant_id", identity.TenantID).
		Str("user_id", identity.UserID).
		Str("role", identity.Role).
		Msg("WebSocket client connected")
}

// checkOrigin validates the Origin header against the configured allowlist.
// Requests without an Origin header are accepted: native POS terminals and
// kitchen display clients are not browsers and send none.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	for _, allowed := range h.cfg.Security.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
		if au, err := url.Parse(allowed); err == nil &&
			strings.EqualFold(au.Host, parsed.Host) && au.Scheme == parsed.Scheme {
			return true
		}
	}
	return false
}

// HealthLive handles GET /api/v1/health/live. It answers as long as the
// process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]any{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Readiness requires the
// durable store to answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
				"Database is not reachable", err)
			return
		}
	}

	respondSuccess(w, http.StatusOK, map[string]any{
		"status":      "ready",
		"connections": h.hub.ClientCount(),
	})
}
