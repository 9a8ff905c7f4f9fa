// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package loyalty

import (
	"testing"

	"github.com/buffrhost/buffrhost/internal/models"
)

func TestCalculateTierByPoints(t *testing.T) {
	tests := []struct {
		points int
		want   models.Tier
	}{
		{0, models.TierBronze},
		{249, models.TierBronze},
		{250, models.TierSilver},
		{999, models.TierSilver},
		{1000, models.TierGold},
		{4999, models.TierGold},
		{5000, models.TierPlatinum},
		{50000, models.TierPlatinum},
	}
	for _, tt := range tests {
		c := &models.Customer{LoyaltyPoints: tt.points}
		if got := CalculateTier(c); got != tt.want {
			t.Errorf("CalculateTier(points=%d) = %q, want %q", tt.points, got, tt.want)
		}
	}
}

func TestCalculateTierSpendCanOutrank(t *testing.T) {
	// Few points, heavy spender: spend threshold wins.
	c := &models.Customer{LoyaltyPoints: 10, TotalSpent: 12000}
	if got := CalculateTier(c); got != models.TierPlatinum {
		t.Errorf("heavy spender tier = %q, want platinum", got)
	}

	// Points outrank a modest spend.
	c = &models.Customer{LoyaltyPoints: 6000, TotalSpent: 100}
	if got := CalculateTier(c); got != models.TierPlatinum {
		t.Errorf("high points tier = %q, want platinum", got)
	}
}

func TestTierBenefitsTable(t *testing.T) {
	tests := []struct {
		tier       models.Tier
		multiplier float64
		discount   float64
		concierge  bool
	}{
		{models.TierPlatinum, 2.0, 15, true},
		{models.TierGold, 1.5, 10, false},
		{models.TierSilver, 1.25, 5, false},
		{models.TierBronze, 1.0, 0, false},
	}
	for _, tt := range tests {
		b := TierBenefitsFor(tt.tier)
		if b.Tier != tt.tier {
			t.Errorf("TierBenefitsFor(%q).Tier = %q", tt.tier, b.Tier)
		}
		if b.PointsMultiplier != tt.multiplier {
			t.Errorf("%q multiplier = %v, want %v", tt.tier, b.PointsMultiplier, tt.multiplier)
		}
		if b.DiscountPercentage != tt.discount {
			t.Errorf("%q discount = %v, want %v", tt.tier, b.DiscountPercentage, tt.discount)
		}
		if b.ConciergeService != tt.concierge {
			t.Errorf("%q concierge = %v, want %v", tt.tier, b.ConciergeService, tt.concierge)
		}
	}
}

func TestBenefitsEscalateWithTier(t *testing.T) {
	tiers := []models.Tier{models.TierBronze, models.TierSilver, models.TierGold, models.TierPlatinum}
	for i := 1; i < len(tiers); i++ {
		lower := TierBenefitsFor(tiers[i-1])
		higher := TierBenefitsFor(tiers[i])
		if higher.PointsMultiplier <= lower.PointsMultiplier {
			t.Errorf("%q multiplier should exceed %q", tiers[i], tiers[i-1])
		}
		if higher.DiscountPercentage <= lower.DiscountPercentage {
			t.Errorf("%q discount should exceed %q", tiers[i], tiers[i-1])
		}
	}
}
