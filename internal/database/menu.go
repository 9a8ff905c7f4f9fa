// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/buffrhost/buffrhost/internal/metrics"
	"github.com/buffrhost/buffrhost/internal/models"
)

// UpsertMenuItem inserts or replaces a catalog entry.
func (db *DB) UpsertMenuItem(ctx context.Context, item *models.MenuItem) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tags, err := marshalStringSlice(item.DietaryTags)
	if err != nil {
		return fmt.Errorf("marshal dietary tags: %w", err)
	}
	allergens, err := marshalStringSlice(item.Allergens)
	if err != nil {
		return fmt.Errorf("marshal allergens: %w", err)
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO menu_items (id, property_id, name, description, price, category, dietary_tags, allergens, popularity, available, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			property_id = EXCLUDED.property_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			dietary_tags = EXCLUDED.dietary_tags,
			allergens = EXCLUDED.allergens,
			popularity = EXCLUDED.popularity,
			available = EXCLUDED.available
	`

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, query,
		item.ID, item.PropertyID, item.Name, nullIfEmpty(item.Description), item.Price,
		nullIfEmpty(item.Category), tags, allergens, item.Popularity, item.Available, item.CreatedAt)
	metrics.RecordDBQuery("upsert", "menu_items", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert menu item: %w", err)
	}
	return nil
}

// GetMenuItem returns one catalog entry by ID.
func (db *DB) GetMenuItem(ctx context.Context, itemID string) (*models.MenuItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, property_id, name, description, price, category, dietary_tags, allergens, popularity, available, created_at
		FROM menu_items
		WHERE id = ?
	`

	item, err := scanMenuItem(db.conn.QueryRowContext(ctx, query, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("menu item %s: %w", itemID, ErrNotFound)
	}
	return item, err
}

// ListMenuItems returns a property's available catalog entries.
func (db *DB) ListMenuItems(ctx context.Context, propertyID string, includeUnavailable bool) ([]models.MenuItem, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, property_id, name, description, price, category, dietary_tags, allergens, popularity, available, created_at
		FROM menu_items
		WHERE property_id = ?
	`
	if !includeUnavailable {
		query += ` AND available`
	}
	query += ` ORDER BY popularity DESC, name`

	rows, err := db.conn.QueryContext(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("query menu items: %w", err)
	}
	defer closeQuietly(rows)

	var items []models.MenuItem
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetMenuItemsByRefs resolves item refs of type menu_item to full catalog
// rows. Refs of other types and unknown IDs are skipped.
func (db *DB) GetMenuItemsByRefs(ctx context.Context, refs []models.ItemRef) (map[string]*models.MenuItem, error) {
	out := make(map[string]*models.MenuItem, len(refs))
	for _, ref := range refs {
		if ref.Type != models.ItemTypeMenuItem {
			continue
		}
		item, err := db.GetMenuItem(ctx, ref.ID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[ref.ID] = item
	}
	return out, nil
}

func scanMenuItem(row rowScanner) (*models.MenuItem, error) {
	var (
		item          models.MenuItem
		description   sql.NullString
		category      sql.NullString
		tagsJSON      sql.NullString
		allergensJSON sql.NullString
	)
	err := row.Scan(&item.ID, &item.PropertyID, &item.Name, &description, &item.Price,
		&category, &tagsJSON, &allergensJSON, &item.Popularity, &item.Available, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan menu item: %w", err)
	}

	item.Description = description.String
	item.Category = category.String
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &item.DietaryTags); err != nil {
			return nil, fmt.Errorf("unmarshal dietary tags: %w", err)
		}
	}
	if allergensJSON.Valid && allergensJSON.String != "" {
		if err := json.Unmarshal([]byte(allergensJSON.String), &item.Allergens); err != nil {
			return nil, fmt.Errorf("unmarshal allergens: %w", err)
		}
	}
	return &item, nil
}

func marshalStringSlice(s []string) (interface{}, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
