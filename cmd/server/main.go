// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

// Package main is the entry point for the Buffr Host server.
//
// Buffr Host is a hospitality platform combining personalized
// recommendations with a cross-business loyalty program. Guests earn
// points at any service domain of a property group (restaurant, hotel,
// spa, conference, recreation, shuttle) and redeem them at another via
// signed QR codes.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered load via Koanf v2 (defaults, file, env)
//  2. Database: DuckDB with demo seed data in development
//  3. Services: recommendation engine, loyalty service, QR service
//  4. Event bus: in-process watermill pub/sub with a cache
//     invalidation router
//  5. Supervisor tree: HTTP server, event router, and maintenance
//     sweepers under suture supervision
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file, built-in
// defaults. See internal/config for the full key list. The only value
// without a default is SIGNING_SECRET, required in production.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server stops
// accepting connections, in-flight requests get the configured
// timeout, the event router drains, and the database checkpoints on
// close.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/buffrhost/buffrhost/internal/api"
	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/database"
	"github.com/buffrhost/buffrhost/internal/events"
	"github.com/buffrhost/buffrhost/internal/logging"
	"github.com/buffrhost/buffrhost/internal/loyalty"
	"github.com/buffrhost/buffrhost/internal/qr"
	"github.com/buffrhost/buffrhost/internal/recommend"
	"github.com/buffrhost/buffrhost/internal/supervisor"
	"github.com/buffrhost/buffrhost/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Int("port", cfg.Server.Port).
		Msg("Starting Buffr Host")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	engine := recommend.NewEngine(db, cfg.Recommend)
	scorer := recommend.NewContentScorer(cfg.Recommend)
	loyaltySvc := loyalty.NewService(db, cfg.Loyalty)

	replay, err := newReplayTracker(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open QR replay store")
	}
	defer func() {
		if err := replay.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing replay store")
		}
	}()

	qrSvc, err := qr.NewService(cfg.QR, cfg.Security.SigningSecret, replay, loyaltySvc)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize QR service")
	}

	bus := events.NewBus(cfg.Events)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing event bus")
		}
	}()

	eventRouter, err := events.NewRouter(cfg.Events, bus, engine)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create event router")
	}

	handler := api.NewHandler(cfg, db, engine, scorer, loyaltySvc, qrSvc, bus)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(supervisor.DefaultTreeConfig())
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.Timeout))
	tree.AddMessagingService(services.NewEventRouterService(eventRouter))
	tree.AddDataService(services.NewSweeperService(
		"recommend-cache-sweeper", cfg.Recommend.SweepInterval, engine.SweepExpired, logging.Logger()))
	tree.AddDataService(services.NewSweeperService(
		"qr-replay-sweeper", cfg.QR.ReplayGCInterval, func(ctx context.Context) (int64, error) {
			n, err := qrSvc.SweepReplayStore(ctx)
			return int64(n), err
		}, logging.Logger()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Buffr Host stopped gracefully")
}

// newReplayTracker picks the QR nonce store. Production uses badger so
// single-use survives restarts; the in-memory store is for development.
func newReplayTracker(cfg *config.Config) (qr.ReplayTracker, error) {
	if cfg.QR.ReplayStoreInMem {
		logging.Info().Msg("Using in-memory QR replay store")
		return qr.NewMemoryReplayTracker(), nil
	}
	return qr.NewBadgerReplayTracker(cfg.QR.ReplayStorePath)
}
