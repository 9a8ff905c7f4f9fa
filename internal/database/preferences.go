// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/buffrhost/buffrhost/internal/metrics"
	"github.com/buffrhost/buffrhost/internal/models"
)

// UpsertPreference records or updates a user's preference for an item.
// The row is keyed by (user_id, item, action): distinct actions on the
// same item are separate signals, and only repeating the same action
// refreshes score, context, and updated_at in place. A passive view can
// therefore never erase an earlier like.
func (db *DB) UpsertPreference(ctx context.Context, pref *models.PreferenceEvent) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	contextJSON, err := marshalStringMap(pref.Context)
	if err != nil {
		return fmt.Errorf("marshal preference context: %w", err)
	}

	query := `
		INSERT INTO user_preferences (user_id, item_id, item_type, action, score, context, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, item_id, item_type, action) DO UPDATE SET
			score = EXCLUDED.score,
			context = EXCLUDED.context,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now().UTC()
	start := time.Now()
	_, err = db.conn.ExecContext(ctx, query,
		pref.UserID, pref.Item.ID, string(pref.Item.Type),
		string(pref.Action), pref.Score, contextJSON, now, now)
	metrics.RecordDBQuery("upsert", "user_preferences", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert preference: %w", err)
	}
	return nil
}

// GetUserPreferences returns all stored preferences for a user, most
// recently updated first.
func (db *DB) GetUserPreferences(ctx context.Context, userID string) ([]models.PreferenceEvent, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT user_id, item_id, item_type, action, score, context, created_at, updated_at
		FROM user_preferences
		WHERE user_id = ?
		ORDER BY updated_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer closeQuietly(rows)

	var prefs []models.PreferenceEvent
	for rows.Next() {
		var (
			p           models.PreferenceEvent
			itemType    string
			action      string
			contextJSON sql.NullString
		)
		if err := rows.Scan(&p.UserID, &p.Item.ID, &itemType, &action, &p.Score, &contextJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		p.Item.Type = models.ItemType(itemType)
		p.Action = models.PreferenceAction(action)
		if contextJSON.Valid && contextJSON.String != "" {
			if err := json.Unmarshal([]byte(contextJSON.String), &p.Context); err != nil {
				return nil, fmt.Errorf("unmarshal preference context: %w", err)
			}
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

// FindSimilarUsers returns users who liked or booked at least minShared of
// the same items as userID, ranked by overlap. Only positive signals count
// as overlap; views and hovers are too weak to define taste.
func (db *DB) FindSimilarUsers(ctx context.Context, userID string, minShared, limit int) ([]models.SimilarUser, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT other.user_id, COUNT(*) AS shared_items
		FROM user_preferences AS target
		JOIN user_preferences AS other
		  ON other.item_id = target.item_id
		 AND other.item_type = target.item_type
		WHERE target.user_id = ?
		  AND other.user_id <> ?
		  AND target.action IN ('like', 'book')
		  AND other.action IN ('like', 'book')
		GROUP BY other.user_id
		HAVING COUNT(*) >= ?
		ORDER BY shared_items DESC, other.user_id
		LIMIT ?
	`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, userID, userID, minShared, limit)
	metrics.RecordDBQuery("similar_users", "user_preferences", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query similar users: %w", err)
	}
	defer closeQuietly(rows)

	var users []models.SimilarUser
	for rows.Next() {
		var u models.SimilarUser
		if err := rows.Scan(&u.UserID, &u.SharedItems); err != nil {
			return nil, fmt.Errorf("scan similar user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CollaborativeCandidates returns items the given similar users liked or
// booked that the target user has not interacted with at all, aggregated
// per item as the average preference score plus how many of the similar
// users endorsed it.
func (db *DB) CollaborativeCandidates(ctx context.Context, userID string, similarUserIDs []string) ([]models.CandidateItem, error) {
	if len(similarUserIDs) == 0 {
		return nil, nil
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(similarUserIDs)), ",")
	query := fmt.Sprintf(`
		SELECT p.item_id, p.item_type, COUNT(DISTINCT p.user_id) AS user_count, AVG(p.score) AS avg_score
		FROM user_preferences AS p
		WHERE p.user_id IN (%s)
		  AND p.action IN ('like', 'book')
		  AND NOT EXISTS (
			SELECT 1 FROM user_preferences AS mine
			WHERE mine.user_id = ?
			  AND mine.item_id = p.item_id
			  AND mine.item_type = p.item_type
		  )
		GROUP BY p.item_id, p.item_type
		ORDER BY avg_score DESC, user_count DESC
	`, placeholders)

	args := make([]interface{}, 0, len(similarUserIDs)+1)
	for _, id := range similarUserIDs {
		args = append(args, id)
	}
	args = append(args, userID)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("candidates", "user_preferences", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer closeQuietly(rows)

	var candidates []models.CandidateItem
	for rows.Next() {
		var (
			c        models.CandidateItem
			itemType string
		)
		if err := rows.Scan(&c.Item.ID, &itemType, &c.UserCount, &c.AvgScore); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Item.Type = models.ItemType(itemType)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// PopularItems returns items ranked by like and booking counts across
// all users, then by average score. This is the cold-start fallback, so
// it never filters by user; weak signals (views, hovers) do not count.
func (db *DB) PopularItems(ctx context.Context, limit int) ([]models.PopularItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT item_id, item_type, COUNT(*) AS interactions, AVG(score) AS avg_score
		FROM user_preferences
		WHERE action IN ('like', 'book')
		GROUP BY item_id, item_type
		ORDER BY interactions DESC, avg_score DESC
		LIMIT ?
	`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, limit)
	metrics.RecordDBQuery("popular", "user_preferences", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query popular items: %w", err)
	}
	defer closeQuietly(rows)

	var items []models.PopularItem
	for rows.Next() {
		var (
			p        models.PopularItem
			itemType string
		)
		if err := rows.Scan(&p.Item.ID, &itemType, &p.Interactions, &p.AvgScore); err != nil {
			return nil, fmt.Errorf("scan popular item: %w", err)
		}
		p.Item.Type = models.ItemType(itemType)
		items = append(items, p)
	}
	return items, rows.Err()
}

// marshalStringMap encodes a context map as JSON, returning NULL-able
// empty string for nil maps.
func marshalStringMap(m map[string]string) (interface{}, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
