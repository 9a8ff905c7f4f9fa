// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

// Package events carries in-process domain events between the write
// path and the recommendation engine. Preference writes publish here;
// a router handler invalidates the affected user's cached
// recommendations so the next read recomputes.
package events

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/buffrhost/buffrhost/internal/models"
)

// SchemaVersion is the current event schema version.
const SchemaVersion = 1

// Topics. One topic per event kind; handlers subscribe by topic.
const (
	TopicPreferenceWritten = "preference.written"
	TopicRedemptionCreated = "redemption.created"
)

// PreferenceEvent is published whenever a user preference is written.
type PreferenceEvent struct {
	SchemaVersion int `json:"schema_version"`

	EventID    string                  `json:"event_id"`
	UserID     string                  `json:"user_id"`
	Item       models.ItemRef          `json:"item"`
	Action     models.PreferenceAction `json:"action"`
	Score      float64                 `json:"score"`
	OccurredAt time.Time               `json:"occurred_at"`
}

// RedemptionEvent is published after a cross-business redemption commits.
type RedemptionEvent struct {
	SchemaVersion int `json:"schema_version"`

	EventID       string               `json:"event_id"`
	RedemptionID  string               `json:"redemption_id"`
	CustomerID    string               `json:"customer_id"`
	SourceService models.ServiceDomain `json:"source_service"`
	TargetService models.ServiceDomain `json:"target_service"`
	Points        int                  `json:"points"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// NewPreferenceMessage wraps a preference event in a watermill message.
func NewPreferenceMessage(ev *PreferenceEvent) (*message.Message, error) {
	return newMessage(ev, &ev.SchemaVersion, &ev.EventID)
}

// NewRedemptionMessage wraps a redemption event in a watermill message.
func NewRedemptionMessage(ev *RedemptionEvent) (*message.Message, error) {
	return newMessage(ev, &ev.SchemaVersion, &ev.EventID)
}

func newMessage(ev any, version *int, eventID *string) (*message.Message, error) {
	if *version == 0 {
		*version = SchemaVersion
	}
	if *eventID == "" {
		*eventID = uuid.NewString()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return message.NewMessage(*eventID, body), nil
}
