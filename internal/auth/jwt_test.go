// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/platewire/platewire/internal/config"
)

const testSecret = "test-secret-that-is-long-enough-0123456789"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&config.SecurityConfig{JWTSecret: testSecret})
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}
	return m
}

// TestJWT_RoundTrip verifies a generated token validates back to the same
// identity.
func TestJWT_RoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.GenerateToken("u1", "tenant-a", "kitchen")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	ident, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if ident.UserID != "u1" || ident.TenantID != "tenant-a" || ident.Role != "kitchen" {
		t.Errorf("Got identity %+v, want u1/tenant-a/kitchen", ident)
	}
}

// TestJWT_RejectsShortSecret verifies the secret length requirement.
func TestJWT_RejectsShortSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{JWTSecret: "short"}); err == nil {
		t.Fatal("Expected error for short secret, got nil")
	}
}

// TestJWT_RejectsTamperedToken verifies signature enforcement.
func TestJWT_RejectsTamperedToken(t *testing.T) {
	m := newTestManager(t)
	token, err := m.GenerateToken("u1", "tenant-a", "server")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	tampered := token[:len(token)-4] + "AAAA"
	if _, err := m.ValidateToken(tampered); err == nil {
		t.Fatal("Expected error for tampered token, got nil")
	}
}

// TestJWT_RejectsWrongSecret verifies tokens signed with another secret
// fail.
func TestJWT_RejectsWrongSecret(t *testing.T) {
	m := newTestManager(t)
	other, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret: "another-secret-that-is-also-long-enough!",
	})
	if err != nil {
		t.Fatalf("NewJWTManager failed: %v", err)
	}

	token, err := other.GenerateToken("u1", "tenant-a", "server")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Fatal("Expected error for wrong secret, got nil")
	}
}

// TestJWT_RejectsExpiredToken verifies expiry enforcement.
func TestJWT_RejectsExpiredToken(t *testing.T) {
	m := newTestManager(t)

	claims := &Claims{
		UserID: "u1", TenantID: "tenant-a", Role: "server",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	if _, err := m.ValidateToken(token); err == nil {
		t.Fatal("Expected error for expired token, got nil")
	}
}

// TestJWT_RejectsNoneAlgorithm verifies algorithm pinning against
// alg-confusion tokens.
func TestJWT_RejectsNoneAlgorithm(t *testing.T) {
	m := newTestManager(t)

	claims := &Claims{UserID: "u1", TenantID: "tenant-a"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	_, err = m.ValidateToken(token)
	if err == nil {
		t.Fatal("Expected error for alg=none token, got nil")
	}
	if !strings.Contains(err.Error(), "signing method") && !strings.Contains(err.Error(), "parse") {
		t.Errorf("Unexpected error text: %v", err)
	}
}

// TestJWT_RejectsMissingIdentityClaims verifies structurally valid tokens
// without the identity triple are refused.
func TestJWT_RejectsMissingIdentityClaims(t *testing.T) {
	m := newTestManager(t)

	claims := &Claims{
		Role: "server",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}

	_, err = m.ValidateToken(token)
	if !errors.Is(err, ErrMissingClaims) {
		t.Errorf("Got %v, want ErrMissingClaims", err)
	}
}
