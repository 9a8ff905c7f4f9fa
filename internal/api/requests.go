// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package api

import (
	"errors"
	"io"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/buffrhost/buffrhost/internal/models"
	"github.com/buffrhost/buffrhost/internal/validation"
)

// maxBodyBytes bounds request bodies. Payloads here are small JSON
// documents; anything near this limit is abuse.
const maxBodyBytes = 1 << 20

// PreferenceRequest records a user interaction with an item.
type PreferenceRequest struct {
	UserID   string            `json:"user_id" validate:"required,max=128"`
	ItemID   string            `json:"item_id" validate:"required,max=128"`
	ItemType string            `json:"item_type" validate:"required,item_type"`
	Action   string            `json:"action" validate:"required,pref_action"`
	Score    *float64          `json:"score,omitempty" validate:"omitempty,min=-1,max=1"`
	Context  map[string]string `json:"context,omitempty"`
}

// FavoriteToggleRequest flips an item's favorite state for a user.
type FavoriteToggleRequest struct {
	UserID     string `json:"user_id" validate:"required,max=128"`
	PropertyID string `json:"property_id" validate:"required,max=128"`
	ItemID     string `json:"item_id" validate:"required,max=128"`
	ItemType   string `json:"item_type" validate:"required,item_type"`
}

// BehaviorRequest appends one event to the behavior log.
type BehaviorRequest struct {
	UserID     string            `json:"user_id" validate:"required,max=128"`
	SessionID  string            `json:"session_id" validate:"omitempty,max=128"`
	PagePath   string            `json:"page_path" validate:"required,max=512"`
	ActionType string            `json:"action_type" validate:"required,max=64"`
	ActionData map[string]string `json:"action_data,omitempty"`
	Referrer   string            `json:"referrer,omitempty" validate:"omitempty,max=512"`
}

// RedeemRequest commits a cross-business point redemption.
type RedeemRequest struct {
	CustomerID    string `json:"customer_id" validate:"required,max=128"`
	PropertyID    string `json:"property_id" validate:"required,max=128"`
	SourceService string `json:"source_service" validate:"required,service_domain"`
	TargetService string `json:"target_service" validate:"required,service_domain"`
	Points        int    `json:"points" validate:"required,gt=0"`
}

// EarnRequest credits points for spend at a property.
type EarnRequest struct {
	BasePoints int     `json:"base_points" validate:"required,gt=0"`
	Spent      float64 `json:"spent" validate:"min=0"`
}

// EnrollmentQRRequest asks for a loyalty enrollment code.
type EnrollmentQRRequest struct {
	CustomerID string `json:"customer_id" validate:"required,max=128"`
	PropertyID string `json:"property_id" validate:"required,max=128"`
}

// RedemptionQRRequest asks for a cross-business redemption code.
type RedemptionQRRequest struct {
	CustomerID    string `json:"customer_id" validate:"required,max=128"`
	PropertyID    string `json:"property_id" validate:"required,max=128"`
	SourceService string `json:"source_service" validate:"required,service_domain"`
	TargetService string `json:"target_service" validate:"required,service_domain"`
	Points        int    `json:"points" validate:"required,gt=0"`
}

// MenuQRRequest asks for a menu code, optionally bound to a customer.
type MenuQRRequest struct {
	PropertyID string `json:"property_id" validate:"required,max=128"`
	CustomerID string `json:"customer_id,omitempty" validate:"omitempty,max=128"`
}

// ScanRequest submits a scanned QR payload. PropertyID identifies where
// the scan happened and is optional for readers that do not know it.
type ScanRequest struct {
	Payload    string `json:"payload" validate:"required"`
	PropertyID string `json:"property_id,omitempty"`
}

// RankedMenuRequest filters a property menu through content scoring.
type RankedMenuRequest struct {
	DietaryPreferences   []string `json:"dietary_preferences,omitempty"`
	Allergies            []string `json:"allergies,omitempty"`
	AverageSpending      float64  `json:"average_spending,omitempty" validate:"min=0"`
	SeasonalMultiplier   float64  `json:"seasonal_multiplier,omitempty" validate:"min=0,max=10"`
	MealWindowMultiplier float64  `json:"meal_window_multiplier,omitempty" validate:"min=0,max=10"`
}

// decodeAndValidate reads the body into dst and runs struct validation.
// A non-nil return has already been written to the client.
func decodeAndValidate(rw *ResponseWriter, r *http.Request, dst interface{}) bool {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			rw.Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "Request body too large")
			return false
		}
		rw.BadRequest("Invalid JSON body")
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		apiErr := verr.ToAPIError()
		rw.ValidationError(apiErr.Message, apiErr.Details)
		return false
	}
	return true
}

// itemRef assembles a validated ItemRef from request fields.
func itemRef(itemID, itemType string) models.ItemRef {
	return models.ItemRef{ID: itemID, Type: models.ItemType(itemType)}
}
