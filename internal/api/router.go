// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platewire/platewire/internal/middleware"
)

// Routes builds the HTTP routing tree.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to every route in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health probes get a permissive limit so orchestrator polling never
	// trips it.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(h.rateLimit(1000))
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	// Sync endpoints: authenticated, rate limited, measured.
	r.Route("/api/v1/sync", func(r chi.Router) {
		r.Use(h.rateLimit(h.cfg.Security.RateLimitReqs))
		r.Use(middleware.PrometheusMetrics)
		r.Use(h.Authenticate)

		r.Post("/batch", h.ProcessBatch)
		r.Get("/changes", h.Changes)
	})

	// WebSocket handshake. The rate limit guards reconnect storms from a
	// misbehaving client; established connections are not affected.
	r.Group(func(r chi.Router) {
		r.Use(h.rateLimit(h.cfg.Security.RateLimitReqs))
		r.Use(h.Authenticate)
		r.Get("/ws", h.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// rateLimit returns a per-IP limiter over the configured window, or a
// pass-through when rate limiting is disabled.
func (h *Handler) rateLimit(requests int) func(http.Handler) http.Handler {
	if h.cfg.Security.RateLimitDisabled || requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(requests, h.cfg.Security.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED",
				"Too many requests", nil)
		}),
	)
}
