// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package database

import (
	"context"
	"fmt"
	"time"
)

// Schema notes:
//   - Structured payloads (preference context, dietary tags, tier benefit
//     snapshots) are stored as JSON text and marshalled in the Go layer, so
//     no DuckDB extension is required at startup.
//   - recommendation_cache holds one row per recommended item; a cached
//     list for a user is replaced atomically (delete + insert in one tx).
var createTableStatements = []string{
	`CREATE TABLE IF NOT EXISTS user_preferences (
		user_id    VARCHAR NOT NULL,
		item_id    VARCHAR NOT NULL,
		item_type  VARCHAR NOT NULL,
		action     VARCHAR NOT NULL,
		score      DOUBLE NOT NULL,
		context    VARCHAR,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, item_id, item_type, action)
	)`,

	`CREATE TABLE IF NOT EXISTS user_favorites (
		user_id     VARCHAR NOT NULL,
		item_id     VARCHAR NOT NULL,
		item_type   VARCHAR NOT NULL,
		property_id VARCHAR NOT NULL,
		added_at    TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, item_id, item_type)
	)`,

	`CREATE TABLE IF NOT EXISTS user_behavior (
		id          VARCHAR NOT NULL PRIMARY KEY,
		user_id     VARCHAR NOT NULL,
		session_id  VARCHAR NOT NULL,
		page_path   VARCHAR NOT NULL,
		action_type VARCHAR NOT NULL,
		action_data VARCHAR,
		user_agent  VARCHAR,
		ip_address  VARCHAR,
		referrer    VARCHAR,
		ts          TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS recommendation_cache (
		user_id    VARCHAR NOT NULL,
		item_id    VARCHAR NOT NULL,
		item_type  VARCHAR NOT NULL,
		rec_type   VARCHAR NOT NULL,
		score      DOUBLE NOT NULL,
		confidence DOUBLE NOT NULL,
		reason     VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL,
		expires_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, item_id, item_type)
	)`,

	`CREATE TABLE IF NOT EXISTS customers (
		id             VARCHAR NOT NULL PRIMARY KEY,
		property_id    VARCHAR NOT NULL,
		name           VARCHAR NOT NULL,
		email          VARCHAR NOT NULL,
		loyalty_points INTEGER NOT NULL DEFAULT 0,
		total_spent    DOUBLE NOT NULL DEFAULT 0,
		created_at     TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS cross_business_redemptions (
		id                 VARCHAR NOT NULL PRIMARY KEY,
		customer_id        VARCHAR NOT NULL,
		property_id        VARCHAR NOT NULL,
		source_service     VARCHAR NOT NULL,
		target_service     VARCHAR NOT NULL,
		points_redeemed    INTEGER NOT NULL,
		tier_at_redemption VARCHAR NOT NULL,
		benefits_applied   VARCHAR NOT NULL,
		created_at         TIMESTAMP NOT NULL,
		expires_at         TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS menu_items (
		id           VARCHAR NOT NULL PRIMARY KEY,
		property_id  VARCHAR NOT NULL,
		name         VARCHAR NOT NULL,
		description  VARCHAR,
		price        DOUBLE NOT NULL,
		category     VARCHAR,
		dietary_tags VARCHAR,
		allergens    VARCHAR,
		popularity   DOUBLE NOT NULL DEFAULT 0,
		available    BOOLEAN NOT NULL DEFAULT TRUE,
		created_at   TIMESTAMP NOT NULL
	)`,
}

var createIndexStatements = []string{
	`CREATE INDEX IF NOT EXISTS idx_preferences_user ON user_preferences (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_preferences_item ON user_preferences (item_id, item_type)`,
	`CREATE INDEX IF NOT EXISTS idx_behavior_user ON user_behavior (user_id, ts)`,
	`CREATE INDEX IF NOT EXISTS idx_behavior_session ON user_behavior (session_id)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_expiry ON recommendation_cache (expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_customers_property ON customers (property_id)`,
	`CREATE INDEX IF NOT EXISTS idx_redemptions_customer ON cross_business_redemptions (customer_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_menu_property ON menu_items (property_id)`,
}

func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range createTableStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, stmt := range createIndexStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

// seedDemoData inserts a small demo property so fresh installs have
// something to recommend. No-op when customers already exist.
func (db *DB) seedDemoData() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return fmt.Errorf("count customers: %w", err)
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	seed := []struct {
		query string
		args  []interface{}
	}{
		{
			`INSERT INTO customers (id, property_id, name, email, loyalty_points, total_spent, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			[]interface{}{"11111111-1111-4111-8111-111111111111", "demo-property", "Demo Guest", "guest@example.com", 1200, 3400.0, now},
		},
		{
			`INSERT INTO menu_items (id, property_id, name, description, price, category, dietary_tags, allergens, popularity, available, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			[]interface{}{"22222222-2222-4222-8222-222222222222", "demo-property", "Kapana Platter", "Grilled beef strips with chakalaka", 145.0, "mains", `["halal"]`, `[]`, 0.9, true, now},
		},
		{
			`INSERT INTO menu_items (id, property_id, name, description, price, category, dietary_tags, allergens, popularity, available, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			[]interface{}{"33333333-3333-4333-8333-333333333333", "demo-property", "Oshifima Bowl", "Mahangu porridge with spinach", 95.0, "mains", `["vegetarian","vegan"]`, `[]`, 0.7, true, now},
		},
	}

	for _, s := range seed {
		if _, err := db.conn.ExecContext(ctx, s.query, s.args...); err != nil {
			return fmt.Errorf("seed row: %w", err)
		}
	}
	return nil
}
