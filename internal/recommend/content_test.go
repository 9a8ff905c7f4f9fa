// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package recommend

import (
	"testing"

	"github.com/buffrhost/buffrhost/internal/models"
)

func menuItem(name string, price float64, tags, allergens []string, popularity float64) models.MenuItem {
	return models.MenuItem{
		ID:          name,
		PropertyID:  "p1",
		Name:        name,
		Price:       price,
		DietaryTags: tags,
		Allergens:   allergens,
		Popularity:  popularity,
		Available:   true,
	}
}

func TestAllergenOverlapZeroesScore(t *testing.T) {
	scorer := NewContentScorer(testConfig())
	profile := GuestProfile{
		DietaryPreferences: []string{"vegetarian"},
		Allergies:          []string{"Peanuts"},
		AverageSpending:    100,
	}

	// Perfect item except for the allergen; case differs on purpose.
	it := menuItem("satay", 100, []string{"vegetarian"}, []string{"peanuts"}, 1.0)
	score := scorer.Score(it, profile, ScoreContext{SeasonalMultiplier: 2, MealWindowMultiplier: 2})
	if score != 0 {
		t.Errorf("allergen-conflicting item scored %v, want 0", score)
	}
}

func TestDietaryMatchRaisesScore(t *testing.T) {
	scorer := NewContentScorer(testConfig())
	profile := GuestProfile{
		DietaryPreferences: []string{"vegan", "gluten-free"},
		AverageSpending:    100,
	}

	full := scorer.Score(menuItem("a", 100, []string{"vegan", "gluten-free"}, nil, 0.5), profile, ScoreContext{})
	half := scorer.Score(menuItem("b", 100, []string{"vegan"}, nil, 0.5), profile, ScoreContext{})
	none := scorer.Score(menuItem("c", 100, nil, nil, 0.5), profile, ScoreContext{})

	if !(full > half && half > none) {
		t.Errorf("dietary match ordering wrong: full=%v half=%v none=%v", full, half, none)
	}
}

func TestDietaryMatchCompatibleCategory(t *testing.T) {
	scorer := NewContentScorer(testConfig())
	profile := GuestProfile{
		DietaryPreferences: []string{"vegan"},
		AverageSpending:    100,
	}

	exact := scorer.Score(menuItem("tofu bowl", 100, []string{"vegan"}, nil, 0.5), profile, ScoreContext{})
	compatible := scorer.Score(menuItem("paneer curry", 100, []string{"vegetarian"}, nil, 0.5), profile, ScoreContext{})
	unrelated := scorer.Score(menuItem("lamb chops", 100, nil, nil, 0.5), profile, ScoreContext{})

	// A vegetarian dish is closer to a vegan diet than an untagged one.
	if !(exact > compatible && compatible > unrelated) {
		t.Errorf("compatibility ordering wrong: exact=%v compatible=%v unrelated=%v", exact, compatible, unrelated)
	}
}

func TestDietaryMatchCompatibleCreditIsHalf(t *testing.T) {
	if got := dietaryMatch([]string{"vegetarian"}, []string{"vegan"}); got != compatibleDietCredit {
		t.Errorf("compatible tag credit = %v, want %v", got, compatibleDietCredit)
	}
	if got := dietaryMatch([]string{"vegan"}, []string{"vegan"}); got != 1.0 {
		t.Errorf("exact tag credit = %v, want 1.0", got)
	}
	// An exact match must not double-count its compatible category.
	if got := dietaryMatch([]string{"vegan", "vegetarian"}, []string{"vegan"}); got != 1.0 {
		t.Errorf("exact plus compatible = %v, want 1.0", got)
	}
}

func TestAllergyTokenInDietaryTagsZeroesScore(t *testing.T) {
	scorer := NewContentScorer(testConfig())
	profile := GuestProfile{
		Allergies:       []string{"nuts"},
		AverageSpending: 100,
	}

	// The kitchen recorded the allergen as a dietary tag, not in the
	// allergen list. The guest is still protected.
	it := menuItem("pesto pasta", 100, []string{"vegetarian", "Nuts"}, nil, 1.0)
	if score := scorer.Score(it, profile, ScoreContext{}); score != 0 {
		t.Errorf("item tagged with the allergy scored %v, want 0", score)
	}

	ranked := scorer.RankMenu([]models.MenuItem{it}, profile, ScoreContext{})
	if len(ranked) != 0 {
		t.Errorf("item tagged with the allergy must not be ranked, got %v", ranked)
	}
}

func TestPriceFit(t *testing.T) {
	if got := priceFit(100, 100); got != 1.0 {
		t.Errorf("priceFit(100, 100) = %v, want 1.0", got)
	}
	if got := priceFit(50, 100); got != 0.5 {
		t.Errorf("priceFit(50, 100) = %v, want 0.5", got)
	}
	if got := priceFit(200, 100); got != 0.5 {
		t.Errorf("priceFit(200, 100) = %v, want symmetric 0.5", got)
	}
	if got := priceFit(100, 0); got != 0.5 {
		t.Errorf("priceFit with no history = %v, want neutral 0.5", got)
	}
}

func TestMultipliersScaleButClamp(t *testing.T) {
	scorer := NewContentScorer(testConfig())
	profile := GuestProfile{AverageSpending: 100}
	it := menuItem("a", 100, nil, nil, 0.6)

	base := scorer.Score(it, profile, ScoreContext{})
	boosted := scorer.Score(it, profile, ScoreContext{SeasonalMultiplier: 1.5})
	if boosted <= base {
		t.Errorf("seasonal boost should raise score: base=%v boosted=%v", base, boosted)
	}

	huge := scorer.Score(it, profile, ScoreContext{SeasonalMultiplier: 100, MealWindowMultiplier: 100})
	if huge > 1.0 {
		t.Errorf("score must clamp to 1.0, got %v", huge)
	}

	// Zero multipliers mean "not supplied" and default to 1.
	unset := scorer.Score(it, profile, ScoreContext{SeasonalMultiplier: 0, MealWindowMultiplier: 0})
	if unset != base {
		t.Errorf("unset multipliers should be neutral: base=%v unset=%v", base, unset)
	}
}

func TestRankMenuDropsAllergenConflicts(t *testing.T) {
	scorer := NewContentScorer(testConfig())
	profile := GuestProfile{
		DietaryPreferences: []string{"vegetarian"},
		Allergies:          []string{"shellfish"},
		AverageSpending:    100,
	}

	items := []models.MenuItem{
		menuItem("prawn curry", 100, []string{"vegetarian"}, []string{"shellfish"}, 1.0),
		menuItem("veg stew", 95, []string{"vegetarian"}, nil, 0.8),
		menuItem("steak", 140, nil, nil, 0.9),
	}

	ranked := scorer.RankMenu(items, profile, ScoreContext{})
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked items, got %d", len(ranked))
	}
	for _, r := range ranked {
		if r.Item.Name == "prawn curry" {
			t.Error("allergen-conflicting item must not be ranked")
		}
	}
	if ranked[0].Item.Name != "veg stew" {
		t.Errorf("top item = %q, want veg stew", ranked[0].Item.Name)
	}
}
