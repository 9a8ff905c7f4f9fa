// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/buffrhost/buffrhost/internal/models"
	"github.com/buffrhost/buffrhost/internal/recommend"
)

// ListMenu handles GET /api/v1/menu/{propertyID}. Unranked catalog
// order, popularity first.
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	propertyID := chi.URLParam(r, "propertyID")
	includeUnavailable := r.URL.Query().Get("include_unavailable") == "true"

	items, err := h.db.ListMenuItems(r.Context(), propertyID, includeUnavailable)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if items == nil {
		items = []models.MenuItem{}
	}

	rw.SuccessWithPagination(items, &PaginationMeta{Count: len(items)})
}

// RankMenu handles POST /api/v1/menu/{propertyID}/rank. The body
// carries the guest profile; items conflicting with allergies are
// dropped, the rest come back ordered by content score.
func (h *Handler) RankMenu(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	propertyID := chi.URLParam(r, "propertyID")
	var req RankedMenuRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	items, err := h.db.ListMenuItems(r.Context(), propertyID, false)
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	ranked := h.scorer.RankMenu(items, recommend.GuestProfile{
		DietaryPreferences: req.DietaryPreferences,
		Allergies:          req.Allergies,
		AverageSpending:    req.AverageSpending,
	}, recommend.ScoreContext{
		SeasonalMultiplier:   req.SeasonalMultiplier,
		MealWindowMultiplier: req.MealWindowMultiplier,
	})
	if ranked == nil {
		ranked = []recommend.ScoredMenuItem{}
	}

	rw.SuccessWithPagination(ranked, &PaginationMeta{Count: len(ranked)})
}
