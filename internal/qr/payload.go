// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

// Package qr generates and verifies the signed QR payloads that carry
// loyalty enrollment, cross-business redemption, and menu links.
//
// A payload is a JSON envelope {type, data, issued_at, expires_at, nonce,
// sig}. The signature is HMAC-SHA256 over the canonical envelope with an
// HKDF-derived key, so leaking one purpose's key never exposes another's.
// Verification fails closed: expired, tampered, or replayed payloads are
// all rejected before any state changes.
package qr

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/buffrhost/buffrhost/internal/models"
)

// PayloadType discriminates what a scanned QR code authorizes.
type PayloadType string

const (
	// TypeLoyaltyEnrollment enrolls a guest into a property's program.
	TypeLoyaltyEnrollment PayloadType = "loyalty_enrollment"
	// TypeCrossBusinessRedemption authorizes one cross-service redemption.
	TypeCrossBusinessRedemption PayloadType = "cross_business_redemption"
	// TypeMenuWithLoyalty links a menu view carrying loyalty context.
	TypeMenuWithLoyalty PayloadType = "menu_with_loyalty"
)

// Valid reports whether t is a known payload type.
func (t PayloadType) Valid() bool {
	switch t {
	case TypeLoyaltyEnrollment, TypeCrossBusinessRedemption, TypeMenuWithLoyalty:
		return true
	default:
		return false
	}
}

// Envelope is the signed wire format embedded in a QR code.
type Envelope struct {
	Type      PayloadType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	IssuedAt  time.Time       `json:"issued_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	Nonce     string          `json:"nonce"`
	Sig       string          `json:"sig,omitempty"`
}

// EnrollmentData is the payload body for loyalty enrollment codes.
type EnrollmentData struct {
	CustomerID string `json:"customer_id"`
	PropertyID string `json:"property_id"`
	// EnrollURL is a signed link the scanning device can open directly.
	EnrollURL string `json:"enroll_url"`
}

// RedemptionData is the payload body for cross-business redemption codes.
// Tier and points are embedded at generation time so the redeeming party
// can display the expected benefit before the scan mutates the ledger.
type RedemptionData struct {
	RedemptionID  string               `json:"redemption_id"`
	CustomerID    string               `json:"customer_id"`
	PropertyID    string               `json:"property_id"`
	SourceService models.ServiceDomain `json:"source_service"`
	TargetService models.ServiceDomain `json:"target_service"`
	Points        int                  `json:"points"`
	CustomerTier  models.Tier          `json:"customer_tier"`
}

// MenuData is the payload body for loyalty-aware menu codes.
type MenuData struct {
	PropertyID string `json:"property_id"`
	MenuURL    string `json:"menu_url"`
	CustomerID string `json:"customer_id,omitempty"`
}

// decodeData unmarshals the envelope body into the type-specific struct.
func decodeData[T any](e *Envelope) (*T, error) {
	var out T
	if err := json.Unmarshal(e.Data, &out); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return &out, nil
}
