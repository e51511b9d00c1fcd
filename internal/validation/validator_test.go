// Platewire - Restaurant Operations Sync and Realtime Fan-out
// Copyright 2026 The Platewire Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/platewire/platewire

package validation

import (
	"strings"
	"testing"
)

type batchRequest struct {
	TenantID string   `validate:"required"`
	ClientID string   `validate:"required,max=128"`
	Statuses []string `validate:"dive,oneof=pending confirmed"`
	Count    int      `validate:"min=1,max=100"`
}

// TestValidateStruct_Passes verifies a well-formed request validates clean.
func TestValidateStruct_Passes(t *testing.T) {
	req := batchRequest{
		TenantID: "t1", ClientID: "c1",
		Statuses: []string{"pending"}, Count: 5,
	}
	if err := ValidateStruct(&req); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
}

// TestValidateStruct_CollectsAllFields verifies every failed field is
// reported, not just the first.
func TestValidateStruct_CollectsAllFields(t *testing.T) {
	req := batchRequest{Count: 0}

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}
	if got := len(err.Fields()); got != 3 {
		t.Fatalf("Expected 3 field errors, got %d: %v", got, err)
	}
	if !strings.Contains(err.Error(), "TenantID is required") {
		t.Errorf("Missing TenantID message in %q", err.Error())
	}
	if !strings.Contains(err.Error(), "Count must be at least 1") {
		t.Errorf("Missing Count message in %q", err.Error())
	}
}

// TestValidateStruct_MaxLength verifies string max translation.
func TestValidateStruct_MaxLength(t *testing.T) {
	req := batchRequest{
		TenantID: "t1", ClientID: strings.Repeat("x", 200), Count: 1,
	}

	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "ClientID must be at most 128 characters") {
		t.Errorf("Unexpected message: %q", err.Error())
	}
}

// TestValidateStruct_Details verifies the structured payload shape.
func TestValidateStruct_Details(t *testing.T) {
	err := ValidateStruct(&batchRequest{TenantID: "t1", ClientID: "c1"})
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}

	details := err.Details()
	fields, ok := details["fields"].([]map[string]any)
	if !ok || len(fields) == 0 {
		t.Fatalf("Expected fields detail, got %v", details)
	}
	if fields[0]["field"] != "Count" {
		t.Errorf("Expected Count field error, got %v", fields[0])
	}
}
