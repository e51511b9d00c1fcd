// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/platewire/platewire/internal/logging"
)

// Server wraps the HTTP listener as a supervised service. Serve blocks
// until the context is canceled, then drains in-flight requests within the
// shutdown timeout.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
}

// NewServer builds the HTTP server around the handler's routing tree.
func NewServer(h *Handler) *Server {
	addr := fmt.Sprintf("%s:%d", h.cfg.Server.Host, h.cfg.Server.Port)
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       h.cfg.Server.Timeout,
			// WriteTimeout stays unset: it would sever long-lived
			// WebSocket connections served on the same listener.
			IdleTimeout: 60 * time.Second,
		},
		shutdownTimeout: 10 * time.Second,
	}
}

// Serve implements suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.srv.Addr).Msg("HTTP server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Server) String() string {
	return "http-server"
}
