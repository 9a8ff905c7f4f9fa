// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/buffrhost/buffrhost/internal/metrics"
	"github.com/buffrhost/buffrhost/internal/models"
)

// GetCachedRecommendations returns the user's cached list, skipping rows
// past their expiry. A non-empty itemType narrows the list to one catalog
// domain. An empty result means cache miss; expired rows are left for
// the sweeper.
func (db *DB) GetCachedRecommendations(ctx context.Context, userID string, itemType models.ItemType) ([]models.Recommendation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT user_id, item_id, item_type, rec_type, score, confidence, reason, created_at, expires_at
		FROM recommendation_cache
		WHERE user_id = ? AND expires_at > ?
	`
	args := []interface{}{userID, time.Now().UTC()}
	if itemType != "" {
		query += ` AND item_type = ?`
		args = append(args, string(itemType))
	}
	query += ` ORDER BY score DESC`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, args...)
	metrics.RecordDBQuery("get", "recommendation_cache", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("query cached recommendations: %w", err)
	}
	defer closeQuietly(rows)

	var recs []models.Recommendation
	for rows.Next() {
		var (
			r           models.Recommendation
			itemTypeCol string
			recType     string
		)
		if err := rows.Scan(&r.UserID, &r.Item.ID, &itemTypeCol, &recType, &r.Score, &r.Confidence, &r.Reason, &r.CreatedAt, &r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan cached recommendation: %w", err)
		}
		r.Item.Type = models.ItemType(itemTypeCol)
		r.Type = models.RecommendationType(recType)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// ReplaceCachedRecommendations atomically swaps the user's cached list.
// Readers never observe a partially written list.
func (db *DB) ReplaceCachedRecommendations(ctx context.Context, userID string, recs []models.Recommendation) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	start := time.Now()
	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendation_cache WHERE user_id = ?`, userID); err != nil {
		metrics.RecordDBQuery("replace", "recommendation_cache", time.Since(start), err)
		return fmt.Errorf("clear cached recommendations: %w", err)
	}

	insert := `
		INSERT INTO recommendation_cache (user_id, item_id, item_type, rec_type, score, confidence, reason, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for _, r := range recs {
		if _, err := tx.ExecContext(ctx, insert,
			userID, r.Item.ID, string(r.Item.Type), string(r.Type), r.Score, r.Confidence, r.Reason, r.CreatedAt, r.ExpiresAt); err != nil {
			metrics.RecordDBQuery("replace", "recommendation_cache", time.Since(start), err)
			return fmt.Errorf("insert cached recommendation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit cache replace: %w", err)
	}
	metrics.RecordDBQuery("replace", "recommendation_cache", time.Since(start), nil)
	return nil
}

// InvalidateCachedRecommendations drops the user's cached list so the
// next request recomputes with fresh preferences.
func (db *DB) InvalidateCachedRecommendations(ctx context.Context, userID string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_cache WHERE user_id = ?`, userID)
	metrics.RecordDBQuery("invalidate", "recommendation_cache", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("invalidate cached recommendations: %w", err)
	}
	return nil
}

// CleanupExpiredRecommendations removes rows past their expiry. Run
// periodically by the maintenance service; returns how many rows went.
func (db *DB) CleanupExpiredRecommendations(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	start := time.Now()
	res, err := db.conn.ExecContext(ctx, `DELETE FROM recommendation_cache WHERE expires_at <= ?`, time.Now().UTC())
	metrics.RecordDBQuery("cleanup", "recommendation_cache", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired recommendations: %w", err)
	}
	return res.RowsAffected()
}
