// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package recommend

import (
	"math"
	"sort"
	"strings"

	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/models"
)

// GuestProfile is what the content scorer knows about a guest.
type GuestProfile struct {
	DietaryPreferences []string `json:"dietary_preferences"`
	Allergies          []string `json:"allergies"`
	AverageSpending    float64  `json:"average_spending"`
}

// ScoreContext carries externally supplied multipliers. The caller decides
// what season or meal window applies; the scorer only multiplies.
type ScoreContext struct {
	SeasonalMultiplier   float64 `json:"seasonal_multiplier"`
	MealWindowMultiplier float64 `json:"meal_window_multiplier"`
}

// ScoredMenuItem pairs a catalog entry with its content score.
type ScoredMenuItem struct {
	Item  models.MenuItem `json:"item"`
	Score float64         `json:"score"`
}

// ContentScorer ranks menu items against a guest profile.
type ContentScorer struct {
	cfg config.RecommendConfig
}

// NewContentScorer creates a scorer with the configured component weights.
func NewContentScorer(cfg config.RecommendConfig) *ContentScorer {
	return &ContentScorer{cfg: cfg}
}

// Score computes a content score in [0, 1] for one item.
//
// An allergen overlap zeroes the score unconditionally; no multiplier or
// weight can resurrect an item the guest is allergic to. Allergy tokens
// are matched against the allergen list and the dietary tags, since
// kitchens record them in either.
func (s *ContentScorer) Score(item models.MenuItem, profile GuestProfile, sctx ScoreContext) float64 {
	if hasAllergenOverlap(item.Allergens, profile.Allergies) ||
		hasAllergenOverlap(item.DietaryTags, profile.Allergies) {
		return 0
	}

	base := s.cfg.DietaryMatchWeight*dietaryMatch(item.DietaryTags, profile.DietaryPreferences) +
		s.cfg.PriceFitWeight*priceFit(item.Price, profile.AverageSpending) +
		s.cfg.PopularityWeight*clamp01(item.Popularity)

	base *= defaultMultiplier(sctx.SeasonalMultiplier)
	base *= defaultMultiplier(sctx.MealWindowMultiplier)

	return clamp01(base)
}

// RankMenu scores and sorts a menu for a guest, dropping zero-scored
// (allergen-conflicting) items.
func (s *ContentScorer) RankMenu(items []models.MenuItem, profile GuestProfile, sctx ScoreContext) []ScoredMenuItem {
	scored := make([]ScoredMenuItem, 0, len(items))
	for _, item := range items {
		score := s.Score(item, profile, sctx)
		if score == 0 {
			continue
		}
		scored = append(scored, ScoredMenuItem{Item: item, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Item.Name < scored[j].Item.Name
	})
	return scored
}

// hasAllergenOverlap is case-insensitive. Allergy data is entered by
// humans on both sides.
func hasAllergenOverlap(itemAllergens, guestAllergies []string) bool {
	if len(itemAllergens) == 0 || len(guestAllergies) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(guestAllergies))
	for _, a := range guestAllergies {
		set[strings.ToLower(strings.TrimSpace(a))] = struct{}{}
	}
	for _, a := range itemAllergens {
		if _, ok := set[strings.ToLower(strings.TrimSpace(a))]; ok {
			return true
		}
	}
	return false
}

// dietCompatibility maps a dietary preference to item tags that satisfy
// it partially: a vegetarian dish is closer to a vegan guest's diet than
// an untagged one, so it earns compatibleDietCredit instead of zero.
var dietCompatibility = map[string][]string{
	"vegan":       {"vegetarian", "plant-based"},
	"vegetarian":  {"vegan", "plant-based"},
	"pescatarian": {"vegetarian", "vegan"},
	"halal":       {"vegetarian", "vegan"},
	"kosher":      {"vegetarian", "vegan"},
}

const compatibleDietCredit = 0.5

// dietaryMatch returns how well the item's tags satisfy the guest's
// dietary preferences: full credit for an exact tag, partial credit for
// a compatible category, none otherwise. A guest with no preferences
// gets a neutral 0.5.
func dietaryMatch(itemTags, preferences []string) float64 {
	if len(preferences) == 0 {
		return 0.5
	}
	tags := make(map[string]struct{}, len(itemTags))
	for _, t := range itemTags {
		tags[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	var total float64
	for _, p := range preferences {
		p = strings.ToLower(strings.TrimSpace(p))
		if _, ok := tags[p]; ok {
			total++
			continue
		}
		for _, alt := range dietCompatibility[p] {
			if _, ok := tags[alt]; ok {
				total += compatibleDietCredit
				break
			}
		}
	}
	return total / float64(len(preferences))
}

// priceFit scores how close the item price sits to the guest's average
// spending. Equal prices score 1.0, and the score decays with the ratio
// between them. An unknown spending history is neutral.
func priceFit(price, averageSpending float64) float64 {
	if averageSpending <= 0 || price <= 0 {
		return 0.5
	}
	return math.Min(price, averageSpending) / math.Max(price, averageSpending)
}

func defaultMultiplier(m float64) float64 {
	if m <= 0 {
		return 1
	}
	return m
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
