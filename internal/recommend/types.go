// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

// Package recommend implements the personalized recommendation engine.
//
// Recommendations come from three paths, tried in order:
//
//  1. Cache: a previously computed list stored with a TTL. Preference
//     writes invalidate it through the event bus.
//  2. Collaborative filtering: users with overlapping positive signals
//     (likes and bookings) vote on items the target user has not seen.
//  3. Popularity fallback: top items across all users, so a brand-new
//     user still gets a non-empty list.
//
// Scores are normalized to [0, 1] and carry a human-readable reason.
package recommend

import (
	"context"

	"github.com/buffrhost/buffrhost/internal/models"
)

// Store is the persistence surface the engine needs. *database.DB
// satisfies it; tests substitute a fake.
type Store interface {
	GetCachedRecommendations(ctx context.Context, userID string, itemType models.ItemType) ([]models.Recommendation, error)
	ReplaceCachedRecommendations(ctx context.Context, userID string, recs []models.Recommendation) error
	InvalidateCachedRecommendations(ctx context.Context, userID string) error
	CleanupExpiredRecommendations(ctx context.Context) (int64, error)

	FindSimilarUsers(ctx context.Context, userID string, minShared, limit int) ([]models.SimilarUser, error)
	CollaborativeCandidates(ctx context.Context, userID string, similarUserIDs []string) ([]models.CandidateItem, error)
	PopularItems(ctx context.Context, limit int) ([]models.PopularItem, error)
}

// Sources describe how a recommendation list was produced.
const (
	SourceCache         = "cache"
	SourceCollaborative = "collaborative"
	SourcePopularity    = "popularity"
)

// Reason strings surfaced with each recommendation.
const (
	ReasonHighlyRecommended = "Highly recommended for you"
	ReasonSimilarUsers      = "Guests like you enjoyed this"
	ReasonMightLike         = "You might like this"
	ReasonPopularChoice     = "Popular choice"
)

// ReasonForScore maps a normalized score onto its explanation bucket.
func ReasonForScore(score float64) string {
	switch {
	case score >= 0.8:
		return ReasonHighlyRecommended
	case score >= 0.6:
		return ReasonSimilarUsers
	case score >= 0.4:
		return ReasonMightLike
	default:
		return ReasonPopularChoice
	}
}

// normalizeScores rescales scores to [0, 1] with min-max normalization.
// A uniform score set collapses to 0.5 for every item.
func normalizeScores(scores map[models.ItemRef]float64) map[models.ItemRef]float64 {
	if len(scores) == 0 {
		return scores
	}

	var minScore, maxScore float64
	first := true
	for _, score := range scores {
		if first {
			minScore, maxScore = score, score
			first = false
			continue
		}
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
	}

	rang := maxScore - minScore
	if rang == 0 {
		for id := range scores {
			scores[id] = 0.5
		}
		return scores
	}

	for id, score := range scores {
		scores[id] = (score - minScore) / rang
	}
	return scores
}
