// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/buffrhost/buffrhost/internal/metrics"
	"github.com/buffrhost/buffrhost/internal/models"
)

// RecordBehavior appends one event to the behavior log. The log is
// append-only; rows are never updated.
func (db *DB) RecordBehavior(ctx context.Context, ev *models.BehaviorEvent) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	actionData, err := marshalStringMap(ev.ActionData)
	if err != nil {
		return fmt.Errorf("marshal action data: %w", err)
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	query := `
		INSERT INTO user_behavior (id, user_id, session_id, page_path, action_type, action_data, user_agent, ip_address, referrer, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	start := time.Now()
	_, err = db.conn.ExecContext(ctx, query,
		uuid.NewString(), ev.UserID, ev.SessionID, ev.PagePath, ev.ActionType,
		actionData, nullIfEmpty(ev.UserAgent), nullIfEmpty(ev.IPAddress), nullIfEmpty(ev.Referrer), ts)
	metrics.RecordDBQuery("insert", "user_behavior", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("insert behavior event: %w", err)
	}
	return nil
}

// GetUserBehavior returns a user's behavior events newest first, bounded
// by limit.
func (db *DB) GetUserBehavior(ctx context.Context, userID string, limit int) ([]models.BehaviorEvent, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	query := `
		SELECT user_id, session_id, page_path, action_type, action_data, user_agent, ip_address, referrer, ts
		FROM user_behavior
		WHERE user_id = ?
		ORDER BY ts DESC
		LIMIT ?
	`

	rows, err := db.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query behavior: %w", err)
	}
	defer closeQuietly(rows)

	var events []models.BehaviorEvent
	for rows.Next() {
		var (
			ev         models.BehaviorEvent
			actionData sql.NullString
			userAgent  sql.NullString
			ipAddress  sql.NullString
			referrer   sql.NullString
		)
		if err := rows.Scan(&ev.UserID, &ev.SessionID, &ev.PagePath, &ev.ActionType,
			&actionData, &userAgent, &ipAddress, &referrer, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan behavior event: %w", err)
		}
		if actionData.Valid && actionData.String != "" {
			if err := json.Unmarshal([]byte(actionData.String), &ev.ActionData); err != nil {
				return nil, fmt.Errorf("unmarshal action data: %w", err)
			}
		}
		ev.UserAgent = userAgent.String
		ev.IPAddress = ipAddress.String
		ev.Referrer = referrer.String
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SessionEventCount returns how many events a session has produced.
func (db *DB) SessionEventCount(ctx context.Context, sessionID string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_behavior WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count session events: %w", err)
	}
	return count, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
