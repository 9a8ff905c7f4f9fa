// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/buffrhost/buffrhost/internal/events"
	"github.com/buffrhost/buffrhost/internal/models"
)

// GetRecommendations handles GET /api/v1/recommendations/{userID}.
// Returns the personalized list, served from cache when fresh. An
// optional ?item_type= narrows the list to one catalog domain. The
// engine degrades storage failures internally, so this endpoint only
// rejects bad input.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("Missing user ID")
		return
	}
	itemType := models.ItemType(r.URL.Query().Get("item_type"))
	if itemType != "" && !itemType.Valid() {
		rw.BadRequest("Unknown item type")
		return
	}
	limit := h.clampLimit(r.URL.Query().Get("limit"))

	recs, source := h.engine.GetRecommendations(r.Context(), userID, itemType, limit)
	if recs == nil {
		recs = []models.Recommendation{}
	}

	rw.SuccessWithPagination(map[string]interface{}{
		"user_id":         userID,
		"source":          source,
		"recommendations": recs,
	}, &PaginationMeta{Count: len(recs), Limit: limit})
}

// RecordPreference handles POST /api/v1/preferences. The write is
// committed before the invalidation event publishes; a failed publish
// leaves at most a stale cache entry, never a lost preference.
func (h *Handler) RecordPreference(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req PreferenceRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	action := models.PreferenceAction(req.Action)
	score := action.DefaultScore()
	if req.Score != nil {
		score = *req.Score
	}

	pref := &models.PreferenceEvent{
		UserID:  req.UserID,
		Item:    itemRef(req.ItemID, req.ItemType),
		Action:  action,
		Score:   score,
		Context: req.Context,
	}
	if err := h.db.UpsertPreference(r.Context(), pref); err != nil {
		rw.DatabaseError(err)
		return
	}

	h.publishPreference(r, pref)
	rw.Created(pref)
}

func (h *Handler) publishPreference(r *http.Request, pref *models.PreferenceEvent) {
	msg, err := events.NewPreferenceMessage(&events.PreferenceEvent{
		UserID:     pref.UserID,
		Item:       pref.Item,
		Action:     pref.Action,
		Score:      pref.Score,
		OccurredAt: time.Now().UTC(),
	})
	if err == nil {
		err = h.bus.Publish(r.Context(), events.TopicPreferenceWritten, msg)
	}
	if err != nil {
		h.logger.Warn().Err(err).
			Str("user_id", pref.UserID).
			Msg("Failed to publish preference event; cached recommendations may be stale")
	}
}

// ToggleFavorite handles POST /api/v1/favorites. A favorite is also a
// preference signal: toggling on records a like, toggling off records
// an unlike, and either invalidates the cached recommendations through
// the bus, the same as an explicit preference write.
func (h *Handler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req FavoriteToggleRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	favorited, err := h.db.ToggleFavorite(r.Context(), req.UserID, req.PropertyID, itemRef(req.ItemID, req.ItemType))
	if err != nil {
		rw.DatabaseError(err)
		return
	}

	action := models.ActionUnlike
	if favorited {
		action = models.ActionLike
	}
	pref := &models.PreferenceEvent{
		UserID: req.UserID,
		Item:   itemRef(req.ItemID, req.ItemType),
		Action: action,
		Score:  action.DefaultScore(),
	}
	if err := h.db.UpsertPreference(r.Context(), pref); err != nil {
		// The favorite itself is committed; a lost signal row only
		// weakens future recommendations.
		h.logger.Warn().Err(err).
			Str("user_id", req.UserID).
			Str("item_id", req.ItemID).
			Msg("Failed to record preference for favorite toggle")
	} else {
		h.publishPreference(r, pref)
	}

	rw.Success(map[string]interface{}{
		"user_id":   req.UserID,
		"item_id":   req.ItemID,
		"item_type": req.ItemType,
		"favorited": favorited,
	})
}

// ListFavorites handles GET /api/v1/favorites/{userID}.
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		rw.BadRequest("Missing user ID")
		return
	}

	favorites, err := h.db.ListFavorites(r.Context(), userID)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if favorites == nil {
		favorites = []models.UserFavorite{}
	}

	rw.SuccessWithPagination(favorites, &PaginationMeta{Count: len(favorites)})
}

// RecordBehavior handles POST /api/v1/behavior. Client metadata that
// belongs to the transport (agent, address) comes from the request, not
// the body.
func (h *Handler) RecordBehavior(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req BehaviorRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	ev := &models.BehaviorEvent{
		UserID:     req.UserID,
		SessionID:  req.SessionID,
		PagePath:   req.PagePath,
		ActionType: req.ActionType,
		ActionData: req.ActionData,
		UserAgent:  r.UserAgent(),
		IPAddress:  r.RemoteAddr,
		Referrer:   req.Referrer,
		Timestamp:  time.Now().UTC(),
	}
	if err := h.db.RecordBehavior(r.Context(), ev); err != nil {
		rw.DatabaseError(err)
		return
	}

	rw.Created(map[string]string{"status": "recorded"})
}
