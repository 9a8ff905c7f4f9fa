// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

// Package loyalty implements the point ledger, tier engine, and
// cross-business redemption flow.
package loyalty

import "github.com/buffrhost/buffrhost/internal/models"

// Tier thresholds. A customer qualifies for a tier by points OR by
// lifetime spend, whichever puts them higher.
const (
	silverPoints   = 250
	goldPoints     = 1000
	platinumPoints = 5000

	silverSpend   = 500.0
	goldSpend     = 2000.0
	platinumSpend = 10000.0
)

// CalculateTier derives the customer's current tier from their point
// balance and lifetime spend. Tier is never stored; it is recomputed on
// every request because points accrue between redemptions.
func CalculateTier(c *models.Customer) models.Tier {
	byPoints := tierForPoints(c.LoyaltyPoints)
	bySpend := tierForSpend(c.TotalSpent)
	if bySpend.Rank() > byPoints.Rank() {
		return bySpend
	}
	return byPoints
}

func tierForPoints(points int) models.Tier {
	switch {
	case points >= platinumPoints:
		return models.TierPlatinum
	case points >= goldPoints:
		return models.TierGold
	case points >= silverPoints:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

func tierForSpend(spent float64) models.Tier {
	switch {
	case spent >= platinumSpend:
		return models.TierPlatinum
	case spent >= goldSpend:
		return models.TierGold
	case spent >= silverSpend:
		return models.TierSilver
	default:
		return models.TierBronze
	}
}

// TierBenefitsFor returns the benefit set a tier grants. This is a
// static lookup; redemptions store their own snapshot of the result so
// later table changes cannot rewrite history.
func TierBenefitsFor(tier models.Tier) models.TierBenefits {
	switch tier {
	case models.TierPlatinum:
		return models.TierBenefits{
			Tier:               models.TierPlatinum,
			PointsMultiplier:   2.0,
			DiscountPercentage: 15,
			FreeAmenities:      []string{"airport_shuttle", "spa_access", "late_checkout", "welcome_drink"},
			PriorityBooking:    true,
			ConciergeService:   true,
		}
	case models.TierGold:
		return models.TierBenefits{
			Tier:               models.TierGold,
			PointsMultiplier:   1.5,
			DiscountPercentage: 10,
			FreeAmenities:      []string{"late_checkout", "welcome_drink"},
			PriorityBooking:    true,
			ConciergeService:   false,
		}
	case models.TierSilver:
		return models.TierBenefits{
			Tier:               models.TierSilver,
			PointsMultiplier:   1.25,
			DiscountPercentage: 5,
			FreeAmenities:      []string{"welcome_drink"},
			PriorityBooking:    false,
			ConciergeService:   false,
		}
	default:
		return models.TierBenefits{
			Tier:               models.TierBronze,
			PointsMultiplier:   1.0,
			DiscountPercentage: 0,
			FreeAmenities:      []string{},
			PriorityBooking:    false,
			ConciergeService:   false,
		}
	}
}
