// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

// Package auth verifies the JWTs that gate batch ingestion and the
// WebSocket handshake. Token issuance lives in the platform's identity
// service; this process only validates and extracts the identity triple.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/platewire/platewire/internal/config"
)

// Identity is the verified connection identity every request and WebSocket
// session carries.
type Identity struct {
	UserID   string
	TenantID string
	Role     string
}

// Claims is the JWT claim set issued by the identity service.
type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// ErrMissingClaims indicates a structurally valid token without the
// required identity claims.
var ErrMissingClaims = errors.New("token missing user_id or tenant_id claim")

// JWTManager validates bearer tokens with HMAC-SHA256. The signing
// algorithm is pinned to HMAC; a token declaring any other algorithm is
// rejected before signature verification.
type JWTManager struct {
	secret  []byte
	timeout time.Duration
}

// NewJWTManager creates a verifier from the security configuration. The
// secret must be at least 32 characters.
func NewJWTManager(cfg *config.SecurityConfig) (*JWTManager, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("jwt_secret must be at least 32 characters, got %d", len(cfg.JWTSecret))
	}
	return &JWTManager{
		secret:  []byte(cfg.JWTSecret),
		timeout: 24 * time.Hour,
	}, nil
}

// GenerateToken signs a token for an identity. Production tokens come from
// the identity service; this exists for operator tooling and tests.
func (m *JWTManager) GenerateToken(userID, tenantID, role string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature, algorithm, expiry and not-before, and
// returns the identity triple.
func (m *JWTManager) ValidateToken(tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == "" || claims.TenantID == "" {
		return nil, ErrMissingClaims
	}

	return &Identity{
		UserID:   claims.UserID,
		TenantID: claims.TenantID,
		Role:     claims.Role,
	}, nil
}
