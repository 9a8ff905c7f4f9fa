// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package models

import "time"

// RecommendationType classifies how a single recommendation was derived.
type RecommendationType string

const (
	// RecommendationPersonalized comes from collaborative filtering over
	// the user's own neighbourhood.
	RecommendationPersonalized RecommendationType = "personalized"
	// RecommendationTrending is driven by recent interaction velocity.
	RecommendationTrending RecommendationType = "trending"
	// RecommendationSimilar is item-to-item similarity.
	RecommendationSimilar RecommendationType = "similar"
	// RecommendationPopular is the global cold-start fallback.
	RecommendationPopular RecommendationType = "popular"
)

// Recommendation is a single scored item for a user, either freshly
// computed or read back from the recommendation cache.
type Recommendation struct {
	UserID     string             `json:"user_id"`
	Item       ItemRef            `json:"item"`
	Type       RecommendationType `json:"recommendation_type"`
	Score      float64            `json:"score"`
	Confidence float64            `json:"confidence"`
	Reason     string             `json:"reason"`
	CreatedAt  time.Time          `json:"created_at"`
	ExpiresAt  time.Time          `json:"expires_at"`
}

// SimilarUser is a neighbour found by preference co-occurrence.
type SimilarUser struct {
	UserID      string `json:"user_id"`
	SharedItems int    `json:"shared_items"`
}

// CandidateItem aggregates how a group of similar users scored one item.
type CandidateItem struct {
	Item      ItemRef `json:"item"`
	UserCount int     `json:"user_count"`
	AvgScore  float64 `json:"avg_score"`
}

// PopularItem is an item ranked by likes and bookings across all users.
type PopularItem struct {
	Item         ItemRef `json:"item"`
	Interactions int     `json:"interactions"`
	AvgScore     float64 `json:"avg_score"`
}
