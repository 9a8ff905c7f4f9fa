// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package services

import (
	"context"
	"errors"
	"fmt"
)

// EventRouter matches events.Router's lifecycle methods.
type EventRouter interface {
	Run(ctx context.Context) error
	Close() error
}

// EventRouterService runs the event router under supervision.
type EventRouterService struct {
	router EventRouter
	name   string
}

// NewEventRouterService wraps the event router for supervision.
func NewEventRouterService(router EventRouter) *EventRouterService {
	return &EventRouterService{router: router, name: "event-router"}
}

// Serve implements suture.Service. Run blocks until ctx cancels; Close
// then drains in-flight handlers.
func (s *EventRouterService) Serve(ctx context.Context) error {
	err := s.router.Run(ctx)
	if closeErr := s.router.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close event router: %w", closeErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return ctx.Err()
}

func (s *EventRouterService) String() string { return s.name }
