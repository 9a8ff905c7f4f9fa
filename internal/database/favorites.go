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

// ToggleFavorite flips the favorite state for (user, item). Returns true
// when the item is now favorited, false when it was removed.
func (db *DB) ToggleFavorite(ctx context.Context, userID, propertyID string, item models.ItemRef) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin toggle favorite: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	start := time.Now()
	res, err := tx.ExecContext(ctx,
		`DELETE FROM user_favorites WHERE user_id = ? AND item_id = ? AND item_type = ?`,
		userID, item.ID, string(item.Type))
	if err != nil {
		metrics.RecordDBQuery("toggle", "user_favorites", time.Since(start), err)
		return false, fmt.Errorf("delete favorite: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("toggle favorite rows affected: %w", err)
	}

	favorited := false
	if deleted == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_favorites (user_id, item_id, item_type, property_id, added_at) VALUES (?, ?, ?, ?, ?)`,
			userID, item.ID, string(item.Type), propertyID, time.Now().UTC())
		if err != nil {
			metrics.RecordDBQuery("toggle", "user_favorites", time.Since(start), err)
			return false, fmt.Errorf("insert favorite: %w", err)
		}
		favorited = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit toggle favorite: %w", err)
	}
	metrics.RecordDBQuery("toggle", "user_favorites", time.Since(start), nil)
	return favorited, nil
}

// ListFavorites returns a user's favorites, newest first.
func (db *DB) ListFavorites(ctx context.Context, userID string) ([]models.UserFavorite, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT user_id, item_id, item_type, property_id, added_at
		FROM user_favorites
		WHERE user_id = ?
		ORDER BY added_at DESC
	`

	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer closeQuietly(rows)

	var favorites []models.UserFavorite
	for rows.Next() {
		var (
			f        models.UserFavorite
			itemType string
		)
		if err := rows.Scan(&f.UserID, &f.Item.ID, &itemType, &f.PropertyID, &f.AddedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		f.Item.Type = models.ItemType(itemType)
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// IsFavorite reports whether the user has favorited the item.
func (db *DB) IsFavorite(ctx context.Context, userID string, item models.ItemRef) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_favorites WHERE user_id = ? AND item_id = ? AND item_type = ?`,
		userID, item.ID, string(item.Type)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query favorite: %w", err)
	}
	return count > 0, nil
}
