// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package api

import (
	"net/http"
	"time"
)

// Health handles GET /api/v1/health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}

	rw.Success(map[string]interface{}{
		"status":             status,
		"database_connected": dbConnected,
		"environment":        h.cfg.Server.Environment,
		"uptime_seconds":     time.Since(h.startTime).Seconds(),
	})
}

// HealthLive handles GET /api/v1/health/live. Liveness says the process
// runs; dependency state is the readiness probe's business.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"alive":          true,
		"uptime_seconds": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles GET /api/v1/health/ready. Returns 503 until the
// database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	if !dbConnected {
		rw.Error(http.StatusServiceUnavailable, "NOT_READY", "Database is not reachable")
		return
	}

	rw.Success(map[string]interface{}{
		"ready_to_serve":     true,
		"database_connected": true,
		"uptime_seconds":     time.Since(h.startTime).Seconds(),
	})
}
