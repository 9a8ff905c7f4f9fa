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

// CreateCustomer inserts a new loyalty account.
func (db *DB) CreateCustomer(ctx context.Context, c *models.Customer) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO customers (id, property_id, name, email, loyalty_points, total_spent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	start := time.Now()
	_, err := db.conn.ExecContext(ctx, query,
		c.ID, c.PropertyID, c.Name, c.Email, c.LoyaltyPoints, c.TotalSpent, c.CreatedAt)
	metrics.RecordDBQuery("insert", "customers", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

// GetCustomer returns a loyalty account by ID.
func (db *DB) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, property_id, name, email, loyalty_points, total_spent, created_at
		FROM customers
		WHERE id = ?
	`

	var c models.Customer
	err := db.conn.QueryRowContext(ctx, query, customerID).Scan(
		&c.ID, &c.PropertyID, &c.Name, &c.Email, &c.LoyaltyPoints, &c.TotalSpent, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query customer: %w", err)
	}
	return &c, nil
}

// AddPoints credits earned points and spending to the account.
func (db *DB) AddPoints(ctx context.Context, customerID string, points int, spent float64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		UPDATE customers
		SET loyalty_points = loyalty_points + ?, total_spent = total_spent + ?
		WHERE id = ?
	`
	start := time.Now()
	res, err := db.conn.ExecContext(ctx, query, points, spent, customerID)
	metrics.RecordDBQuery("update", "customers", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("credit points: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("credit points rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	return nil
}

// RedeemPoints decrements the balance and records the redemption in one
// transaction, returning the balance after the debit. The decrement is
// conditional on the balance actually covering the requested points, so
// concurrent redemptions can never drive the balance negative, and the
// returned balance comes from the debit statement itself rather than any
// earlier read.
func (db *DB) RedeemPoints(ctx context.Context, r *models.CrossBusinessRedemption) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	benefits, err := json.Marshal(r.BenefitsApplied)
	if err != nil {
		return 0, fmt.Errorf("marshal benefits snapshot: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin redemption: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	start := time.Now()
	var remaining int
	err = tx.QueryRowContext(ctx, `
		UPDATE customers
		SET loyalty_points = loyalty_points - ?
		WHERE id = ? AND loyalty_points >= ?
		RETURNING loyalty_points
	`, r.PointsRedeemed, r.CustomerID, r.PointsRedeemed).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the customer does not exist or the balance is short.
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers WHERE id = ?`, r.CustomerID).Scan(&exists); err != nil {
			return 0, fmt.Errorf("check customer: %w", err)
		}
		if exists == 0 {
			return 0, fmt.Errorf("customer %s: %w", r.CustomerID, ErrNotFound)
		}
		return 0, fmt.Errorf("customer %s needs %d points: %w", r.CustomerID, r.PointsRedeemed, ErrInsufficientPoints)
	}
	if err != nil {
		metrics.RecordDBQuery("redeem", "customers", time.Since(start), err)
		return 0, fmt.Errorf("debit points: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO cross_business_redemptions
			(id, customer_id, property_id, source_service, target_service, points_redeemed, tier_at_redemption, benefits_applied, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.CustomerID, r.PropertyID, string(r.SourceService), string(r.TargetService),
		r.PointsRedeemed, string(r.TierAtRedemption), string(benefits), r.CreatedAt, r.ExpiresAt)
	if err != nil {
		metrics.RecordDBQuery("redeem", "customers", time.Since(start), err)
		return 0, fmt.Errorf("insert redemption: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit redemption: %w", err)
	}
	metrics.RecordDBQuery("redeem", "customers", time.Since(start), nil)
	return remaining, nil
}

// GetRedemption returns a recorded redemption by ID.
func (db *DB) GetRedemption(ctx context.Context, redemptionID string) (*models.CrossBusinessRedemption, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, customer_id, property_id, source_service, target_service, points_redeemed, tier_at_redemption, benefits_applied, created_at, expires_at
		FROM cross_business_redemptions
		WHERE id = ?
	`

	r, err := scanRedemption(db.conn.QueryRowContext(ctx, query, redemptionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("redemption %s: %w", redemptionID, ErrNotFound)
	}
	return r, err
}

// ListRedemptions returns a customer's redemptions, newest first.
func (db *DB) ListRedemptions(ctx context.Context, customerID string, limit int) ([]models.CrossBusinessRedemption, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT id, customer_id, property_id, source_service, target_service, points_redeemed, tier_at_redemption, benefits_applied, created_at, expires_at
		FROM cross_business_redemptions
		WHERE customer_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query redemptions: %w", err)
	}
	defer closeQuietly(rows)

	var redemptions []models.CrossBusinessRedemption
	for rows.Next() {
		r, err := scanRedemption(rows)
		if err != nil {
			return nil, err
		}
		redemptions = append(redemptions, *r)
	}
	return redemptions, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRedemption(row rowScanner) (*models.CrossBusinessRedemption, error) {
	var (
		r             models.CrossBusinessRedemption
		sourceService string
		targetService string
		tier          string
		benefitsJSON  string
	)
	err := row.Scan(&r.ID, &r.CustomerID, &r.PropertyID, &sourceService, &targetService,
		&r.PointsRedeemed, &tier, &benefitsJSON, &r.CreatedAt, &r.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan redemption: %w", err)
	}

	r.SourceService = models.ServiceDomain(sourceService)
	r.TargetService = models.ServiceDomain(targetService)
	r.TierAtRedemption = models.Tier(tier)
	if err := json.Unmarshal([]byte(benefitsJSON), &r.BenefitsApplied); err != nil {
		return nil, fmt.Errorf("unmarshal benefits snapshot: %w", err)
	}
	return &r, nil
}
