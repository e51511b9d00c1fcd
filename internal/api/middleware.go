// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/platewire/platewire/internal/auth"
	"github.com/platewire/platewire/internal/logging"
)

type identityKeyType struct{}

var identityKey identityKeyType

// IdentityFromContext returns the authenticated caller, or nil when the
// request did not pass through Authenticate.
func IdentityFromContext(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

func contextWithIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// extractToken pulls the bearer token from the Authorization header, falling
// back to the token query parameter. The fallback exists for WebSocket
// handshakes: browser WebSocket clients cannot set request headers.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// Authenticate verifies the caller's JWT and stores the resulting identity
// in the request context. Requests without a valid token get 401.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
				"Authentication required", nil)
			return
		}

		identity, err := h.jwt.ValidateToken(token)
		if err != nil {
			logger := logging.Ctx(r.Context())
			logger.Warn().
				Str("remote_addr", r.RemoteAddr).
				Str("error", sanitizeLogValue(err.Error())).
				Msg("Token validation failed")
			respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR",
				"Invalid or expired token", nil)
			return
		}

		ctx := contextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
