// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/logging"
	"github.com/buffrhost/buffrhost/internal/metrics"
	"github.com/buffrhost/buffrhost/internal/models"
)

// Engine produces personalized recommendation lists.
type Engine struct {
	store  Store
	cfg    config.RecommendConfig
	logger zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates an engine over the given store.
func NewEngine(store Store, cfg config.RecommendConfig) *Engine {
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logging.With().Str("component", "recommend").Logger(),
		now:    time.Now,
	}
}

// GetRecommendations returns up to limit recommendations for the user,
// serving from cache when possible. A non-empty itemType narrows the
// list to one catalog domain. The second return value reports which path
// produced the list.
//
// This is a read path embedded in guest-facing pages, so it never
// surfaces storage errors: every failure degrades toward the popularity
// list and, at worst, an empty list.
func (e *Engine) GetRecommendations(ctx context.Context, userID string, itemType models.ItemType, limit int) ([]models.Recommendation, string) {
	if limit <= 0 || limit > e.cfg.MaxResults {
		limit = e.cfg.MaxResults
	}

	start := e.now()

	cached, err := e.store.GetCachedRecommendations(ctx, userID, itemType)
	if err != nil {
		// A broken cache read falls through to recompute.
		e.logger.Warn().Err(err).Str("user_id", userID).Msg("Cache read failed, recomputing")
	}
	if len(cached) > 0 {
		metrics.RecommendCacheHits.Inc()
		metrics.RecordRecommendation(SourceCache, time.Since(start))
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, SourceCache
	}
	metrics.RecommendCacheMisses.Inc()

	recs, source := e.compute(ctx, userID)

	// Cache the full list before narrowing so a later request with a
	// different item-type filter still hits.
	if len(recs) > 0 {
		if err := e.store.ReplaceCachedRecommendations(ctx, userID, recs); err != nil {
			// Serving fresh results matters more than caching them.
			e.logger.Warn().Err(err).Str("user_id", userID).Msg("Cache write failed")
		}
	}

	recs = filterByItemType(recs, itemType)
	if len(recs) > limit {
		recs = recs[:limit]
	}

	metrics.RecordRecommendation(source, time.Since(start))
	return recs, source
}

// compute runs collaborative filtering, falling back to popularity. A
// failed collaborative query degrades to the popularity list; a failed
// popularity query degrades to an empty list.
func (e *Engine) compute(ctx context.Context, userID string) ([]models.Recommendation, string) {
	recs, err := e.collaborative(ctx, userID)
	if err != nil {
		e.logger.Error().Err(err).Str("user_id", userID).Msg("Collaborative path failed, falling back to popularity")
	}
	if len(recs) > 0 {
		return recs, SourceCollaborative
	}

	metrics.RecommendFallbacks.Inc()
	recs, err = e.popularity(ctx, userID)
	if err != nil {
		e.logger.Error().Err(err).Str("user_id", userID).Msg("Popularity fallback failed, serving empty list")
		return nil, SourcePopularity
	}
	return recs, SourcePopularity
}

// collaborative scores items endorsed by similar users. Returns an empty
// slice when the user has no usable neighbourhood.
func (e *Engine) collaborative(ctx context.Context, userID string) ([]models.Recommendation, error) {
	similar, err := e.store.FindSimilarUsers(ctx, userID, e.cfg.SimilarUserMinShared, e.cfg.SimilarUserCap)
	if err != nil {
		return nil, fmt.Errorf("find similar users: %w", err)
	}
	if len(similar) == 0 {
		return nil, nil
	}

	ids := make([]string, len(similar))
	for i, u := range similar {
		ids[i] = u.UserID
	}

	candidates, err := e.store.CollaborativeCandidates(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("collaborative candidates: %w", err)
	}

	// Items need corroboration from more than one neighbour before they
	// are worth surfacing. Ranking is by average preference score with
	// the endorsing-user count as tiebreak.
	scores := make(map[models.ItemRef]float64)
	counts := make(map[models.ItemRef]int)
	for _, c := range candidates {
		if c.UserCount < e.cfg.MinCorroboratingUsers {
			continue
		}
		scores[c.Item] = c.AvgScore
		counts[c.Item] = c.UserCount
	}
	if len(scores) == 0 {
		return nil, nil
	}

	scores = normalizeScores(scores)
	return e.buildList(userID, models.RecommendationPersonalized, scores, counts, e.cfg.MaxResults), nil
}

// popularity is the cold-start path: most liked and booked items across
// all users. Confidence stays low because nothing is personalized.
func (e *Engine) popularity(ctx context.Context, userID string) ([]models.Recommendation, error) {
	popular, err := e.store.PopularItems(ctx, e.cfg.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("popular items: %w", err)
	}
	if len(popular) == 0 {
		return nil, nil
	}

	now := e.now().UTC()
	expiry := now.Add(e.cfg.CacheTTL)

	// The store already ranks by interaction count, then average score.
	// Scores are derived from that rank so the ordering survives a cache
	// round trip, which sorts by score alone.
	n := len(popular)
	recs := make([]models.Recommendation, 0, n)
	for i, p := range popular {
		recs = append(recs, models.Recommendation{
			UserID:     userID,
			Item:       p.Item,
			Type:       models.RecommendationPopular,
			Score:      float64(n-i) / float64(n),
			Confidence: math.Min(1.0/e.cfg.ConfidenceDivisor, 1.0),
			Reason:     ReasonPopularChoice,
			CreatedAt:  now,
			ExpiresAt:  expiry,
		})
	}
	return recs, nil
}

// buildList turns normalized scores into a sorted, bounded, cacheable list.
func (e *Engine) buildList(userID string, recType models.RecommendationType, scores map[models.ItemRef]float64, counts map[models.ItemRef]int, limit int) []models.Recommendation {
	now := e.now().UTC()
	expiry := now.Add(e.cfg.CacheTTL)

	recs := make([]models.Recommendation, 0, len(scores))
	for item, score := range scores {
		recs = append(recs, models.Recommendation{
			UserID:     userID,
			Item:       item,
			Type:       recType,
			Score:      score,
			Confidence: math.Min(float64(counts[item])/e.cfg.ConfidenceDivisor, 1.0),
			Reason:     ReasonForScore(score),
			CreatedAt:  now,
			ExpiresAt:  expiry,
		})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		// Equal scores: broader endorsement wins.
		ci, cj := counts[recs[i].Item], counts[recs[j].Item]
		if ci != cj {
			return ci > cj
		}
		return recs[i].Item.String() < recs[j].Item.String()
	})

	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// filterByItemType narrows a list to one catalog domain; an empty type
// keeps everything.
func filterByItemType(recs []models.Recommendation, itemType models.ItemType) []models.Recommendation {
	if itemType == "" {
		return recs
	}
	filtered := recs[:0]
	for _, r := range recs {
		if r.Item.Type == itemType {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Invalidate drops the user's cached list. Called by the event router
// when a preference write lands.
func (e *Engine) Invalidate(ctx context.Context, userID string) error {
	metrics.RecommendCacheInvalidations.Inc()
	return e.store.InvalidateCachedRecommendations(ctx, userID)
}

// SweepExpired removes expired cache rows. Run periodically.
func (e *Engine) SweepExpired(ctx context.Context) (int64, error) {
	removed, err := e.store.CleanupExpiredRecommendations(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		e.logger.Debug().Int64("rows", removed).Msg("Swept expired recommendation cache rows")
	}
	return removed, nil
}
