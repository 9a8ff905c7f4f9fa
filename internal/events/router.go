// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package events

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/buffrhost/buffrhost/internal/config"
	"github.com/buffrhost/buffrhost/internal/logging"
)

// CacheInvalidator is the slice of the recommendation engine the router
// needs. *recommend.Engine satisfies it.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Router consumes domain events and applies their side effects.
type Router struct {
	router *message.Router
	logger zerolog.Logger
}

// NewRouter builds the event router with the standard middleware stack
// and registers the cache invalidation handler.
func NewRouter(cfg config.EventsConfig, bus *Bus, invalidator CacheInvalidator) (*Router, error) {
	logger := logging.With().Str("component", "event_router").Logger()
	adapter := NewLoggerAdapter(logger)

	wmRouter, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: cfg.CloseTimeout,
	}, adapter)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}

	wmRouter.AddMiddleware(middleware.Recoverer)
	retry := middleware.Retry{
		MaxRetries:      cfg.RetryCount,
		InitialInterval: cfg.RetryInitialBackoff,
		Logger:          adapter,
	}
	wmRouter.AddMiddleware(retry.Middleware)

	wmRouter.AddNoPublisherHandler(
		"recommend-cache-invalidator",
		TopicPreferenceWritten,
		bus.Subscriber(),
		preferenceHandler(invalidator, logger),
	)

	return &Router{router: wmRouter, logger: logger}, nil
}

// preferenceHandler invalidates the cached recommendations of the user
// whose preference changed. Stale cache entries are the only coupling
// between writes and reads, so this is the whole consistency story.
func preferenceHandler(invalidator CacheInvalidator, logger zerolog.Logger) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var ev PreferenceEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			// Undecodable events are dropped, not retried.
			logger.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable preference event")
			return nil
		}
		if ev.UserID == "" {
			logger.Warn().Str("message_id", msg.UUID).Msg("Dropping preference event without user")
			return nil
		}

		if err := invalidator.Invalidate(msg.Context(), ev.UserID); err != nil {
			return fmt.Errorf("invalidate recommendations for %s: %w", ev.UserID, err)
		}
		logger.Debug().
			Str("user_id", ev.UserID).
			Str("item", ev.Item.String()).
			Msg("Recommendation cache invalidated")
		return nil
	}
}

// Run blocks processing events until ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running returns a channel closed once the router is up. Useful in
// tests to avoid publishing before subscriptions exist.
func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

// Close stops the router, waiting up to the configured close timeout.
func (r *Router) Close() error {
	return r.router.Close()
}
