// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package validation

import (
	"strings"
	"testing"
)

type preferenceRequest struct {
	UserID   string `validate:"required,uuid4"`
	ItemType string `validate:"required,item_type"`
	Action   string `validate:"required,pref_action"`
}

type redeemRequest struct {
	CustomerID    string `validate:"required,uuid4"`
	SourceService string `validate:"required,service_domain"`
	TargetService string `validate:"required,service_domain"`
	Points        int    `validate:"min=1"`
}

func TestValidateStructPasses(t *testing.T) {
	req := preferenceRequest{
		UserID:   "a1b2c3d4-e5f6-4a5b-8c9d-0e1f2a3b4c5d",
		ItemType: "menu_item",
		Action:   "like",
	}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
}

func TestItemTypeValidator(t *testing.T) {
	for _, valid := range []string{"room", "tour", "service", "menu_item"} {
		req := preferenceRequest{
			UserID:   "a1b2c3d4-e5f6-4a5b-8c9d-0e1f2a3b4c5d",
			ItemType: valid,
			Action:   "view",
		}
		if err := ValidateStruct(&req); err != nil {
			t.Errorf("item type %q should pass: %v", valid, err)
		}
	}

	req := preferenceRequest{
		UserID:   "a1b2c3d4-e5f6-4a5b-8c9d-0e1f2a3b4c5d",
		ItemType: "villa",
		Action:   "view",
	}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected error for invalid item type")
	}
	if !strings.Contains(err.Error(), "room, tour, service, menu_item") {
		t.Errorf("error should list valid item types, got %q", err.Error())
	}
}

func TestServiceDomainValidator(t *testing.T) {
	req := redeemRequest{
		CustomerID:    "a1b2c3d4-e5f6-4a5b-8c9d-0e1f2a3b4c5d",
		SourceService: "restaurant",
		TargetService: "spa",
		Points:        100,
	}
	if err := ValidateStruct(&req); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}

	req.TargetService = "casino"
	if err := ValidateStruct(&req); err == nil {
		t.Error("expected error for invalid service domain")
	}
}

func TestToAPIErrorSingleField(t *testing.T) {
	req := redeemRequest{
		CustomerID:    "a1b2c3d4-e5f6-4a5b-8c9d-0e1f2a3b4c5d",
		SourceService: "restaurant",
		TargetService: "spa",
		Points:        0,
	}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q, want VALIDATION_ERROR", apiErr.Code)
	}
	if apiErr.Details["field"] != "Points" {
		t.Errorf("Details[field] = %v, want Points", apiErr.Details["field"])
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	req := redeemRequest{}
	err := ValidateStruct(&req)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) < 3 {
		t.Fatalf("expected at least 3 field errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Error("multi-field error should carry fields detail")
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator should return the same instance")
	}
}
