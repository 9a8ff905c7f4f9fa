// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package api

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/database"
	"github.com/buffrhost/buffrhost/internal/events"
	"github.com/buffrhost/buffrhost/internal/logging"
	"github.com/buffrhost/buffrhost/internal/loyalty"
	"github.com/buffrhost/buffrhost/internal/qr"
	"github.com/buffrhost/buffrhost/internal/recommend"
)

// Handler bundles the services the HTTP layer fronts. Handlers stay
// thin: decode, validate, call the service, map errors.
type Handler struct {
	cfg     *config.Config
	db      *database.DB
	engine  *recommend.Engine
	scorer  *recommend.ContentScorer
	loyalty *loyalty.Service
	qr      *qr.Service
	bus     *events.Bus
	logger  zerolog.Logger

	startTime time.Time
}

// NewHandler wires the handler set.
func NewHandler(cfg *config.Config, db *database.DB, engine *recommend.Engine, scorer *recommend.ContentScorer, loyaltySvc *loyalty.Service, qrSvc *qr.Service, bus *events.Bus) *Handler {
	return &Handler{
		cfg:     cfg,
		db:      db,
		engine:  engine,
		scorer:  scorer,
		loyalty: loyaltySvc,
		qr:      qrSvc,
		bus:     bus,
		logger:  logging.With().Str("component", "api").Logger(),

		startTime: time.Now(),
	}
}

// clampLimit parses a limit against the configured page bounds.
func (h *Handler) clampLimit(raw string) int {
	limit := h.cfg.API.DefaultPageSize
	if raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > h.cfg.API.MaxPageSize {
		limit = h.cfg.API.MaxPageSize
	}
	return limit
}
