// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// SweepFunc removes expired rows and reports how many went away.
type SweepFunc func(ctx context.Context) (int64, error)

// SweeperService runs a sweep function on a fixed interval. Used for
// the recommendation cache and the QR replay store.
type SweeperService struct {
	sweep    SweepFunc
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewSweeperService creates a named periodic sweeper.
func NewSweeperService(name string, interval time.Duration, sweep SweepFunc, logger zerolog.Logger) *SweeperService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SweeperService{
		sweep:    sweep,
		interval: interval,
		logger:   logger.With().Str("service", name).Logger(),
		name:     name,
	}
}

// Serve implements suture.Service. Sweep failures are logged and
// retried next tick; only cancellation stops the loop.
func (s *SweeperService) Serve(ctx context.Context) error {
	s.logger.Info().Dur("interval", s.interval).Msg("Sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Sweeper stopping")
			return ctx.Err()

		case <-ticker.C:
			removed, err := s.sweep(ctx)
			if err != nil {
				s.logger.Warn().Err(err).Msg("Sweep failed")
				continue
			}
			if removed > 0 {
				s.logger.Debug().Int64("removed", removed).Msg("Sweep completed")
			}
		}
	}
}

func (s *SweeperService) String() string { return s.name }
