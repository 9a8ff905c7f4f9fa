// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package models

import (
	"fmt"
	"time"
)

// ServiceDomain is the closed set of service areas points can move between
// in a cross-business redemption.
type ServiceDomain string

const (
	// DomainRestaurant is food and beverage.
	DomainRestaurant ServiceDomain = "restaurant"
	// DomainHotel is rooms and accommodation.
	DomainHotel ServiceDomain = "hotel"
	// DomainSpa is spa and wellness.
	DomainSpa ServiceDomain = "spa"
	// DomainConference is meeting and event space.
	DomainConference ServiceDomain = "conference"
	// DomainRecreation is tours and activities.
	DomainRecreation ServiceDomain = "recreation"
	// DomainShuttle is transport services.
	DomainShuttle ServiceDomain = "shuttle"
)

// Valid reports whether d is one of the known service domains.
func (d ServiceDomain) Valid() bool {
	switch d {
	case DomainRestaurant, DomainHotel, DomainSpa, DomainConference, DomainRecreation, DomainShuttle:
		return true
	default:
		return false
	}
}

// ParseServiceDomain converts a string into a ServiceDomain.
func ParseServiceDomain(s string) (ServiceDomain, error) {
	d := ServiceDomain(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown service domain %q", s)
	}
	return d, nil
}

// Tier is a loyalty status level. Ordering is bronze < silver < gold <
// platinum; comparisons use the Rank method, not string order.
type Tier string

const (
	// TierBronze is the entry tier.
	TierBronze Tier = "bronze"
	// TierSilver is the second tier.
	TierSilver Tier = "silver"
	// TierGold is the third tier.
	TierGold Tier = "gold"
	// TierPlatinum is the highest tier.
	TierPlatinum Tier = "platinum"
)

// Rank returns the ordinal position of the tier (bronze=0 .. platinum=3).
func (t Tier) Rank() int {
	switch t {
	case TierSilver:
		return 1
	case TierGold:
		return 2
	case TierPlatinum:
		return 3
	default:
		return 0
	}
}

// Customer is the loyalty view of a customer record. Points are mutated only
// through credit and debit operations that are atomic with their ledger rows.
type Customer struct {
	ID            string    `json:"customer_id"`
	PropertyID    string    `json:"property_id"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	LoyaltyPoints int       `json:"loyalty_points"`
	TotalSpent    float64   `json:"total_spent"`
	CreatedAt     time.Time `json:"created_at"`
}

// TierBenefits is the benefit set a tier grants. Benefits are computed fresh
// from the current tier on every request; a redemption stores its own
// snapshot so historical records stay auditable if the table changes.
type TierBenefits struct {
	Tier               Tier     `json:"tier"`
	PointsMultiplier   float64  `json:"points_multiplier"`
	DiscountPercentage float64  `json:"discount_percentage"`
	FreeAmenities      []string `json:"free_amenities"`
	PriorityBooking    bool     `json:"priority_booking"`
	ConciergeService   bool     `json:"concierge_service"`
}

// CrossBusinessRedemption records one completed point transfer between two
// service domains. Immutable once created; a reversal is a new record.
type CrossBusinessRedemption struct {
	ID               string        `json:"redemption_id"`
	CustomerID       string        `json:"customer_id"`
	PropertyID       string        `json:"property_id"`
	SourceService    ServiceDomain `json:"source_service"`
	TargetService    ServiceDomain `json:"target_service"`
	PointsRedeemed   int           `json:"points_redeemed"`
	TierAtRedemption Tier          `json:"tier_at_redemption"`
	// BenefitsApplied is the tier benefit snapshot taken at redemption time.
	BenefitsApplied TierBenefits `json:"benefits_applied"`
	CreatedAt       time.Time    `json:"created_at"`
	ExpiresAt       time.Time    `json:"expires_at"`
}

// CrossBusinessOffer is a redeemable offer surfaced to a customer, carrying
// a LOYALTY_CROSS_-prefixed code marker for the scanning side.
type CrossBusinessOffer struct {
	Code           string        `json:"code"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	SourceService  ServiceDomain `json:"source_service"`
	TargetService  ServiceDomain `json:"target_service"`
	PointsRequired int           `json:"points_required"`
}
