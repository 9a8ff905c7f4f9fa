// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package models

import (
	"fmt"
	"time"
)

// ItemType is the closed set of catalog domains an item reference may point
// into. The recommendation core is generic over these; boundary layers must
// reject anything outside the set.
type ItemType string

const (
	// ItemTypeRoom is a hotel room or room category.
	ItemTypeRoom ItemType = "room"
	// ItemTypeTour is a bookable tour or excursion.
	ItemTypeTour ItemType = "tour"
	// ItemTypeService is a property service (spa, shuttle, laundry).
	ItemTypeService ItemType = "service"
	// ItemTypeMenuItem is a restaurant menu item.
	ItemTypeMenuItem ItemType = "menu_item"
)

// ItemTypes lists all valid item types.
var ItemTypes = []ItemType{ItemTypeRoom, ItemTypeTour, ItemTypeService, ItemTypeMenuItem}

// Valid reports whether t is one of the known item types.
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeRoom, ItemTypeTour, ItemTypeService, ItemTypeMenuItem:
		return true
	default:
		return false
	}
}

// ParseItemType converts a string into an ItemType, rejecting unknown values.
func ParseItemType(s string) (ItemType, error) {
	t := ItemType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown item type %q", s)
	}
	return t, nil
}

// ItemRef identifies an item within a catalog domain. IDs are opaque strings
// scoped by Type; the pair is the unit the engine ranks and caches.
type ItemRef struct {
	// ID is the opaque item identifier within its catalog.
	ID string `json:"item_id"`

	// Type is the catalog domain the ID belongs to.
	Type ItemType `json:"item_type"`
}

// String returns a stable "type:id" form, used for map keys and logging.
func (r ItemRef) String() string {
	return string(r.Type) + ":" + r.ID
}

// PreferenceAction classifies a user-item interaction. Each action carries a
// canonical default score; callers may override per event.
type PreferenceAction string

const (
	// ActionLike is an explicit positive signal.
	ActionLike PreferenceAction = "like"
	// ActionUnlike is an explicit negative signal.
	ActionUnlike PreferenceAction = "unlike"
	// ActionView is a passive detail-page view.
	ActionView PreferenceAction = "view"
	// ActionBook is a completed booking or order.
	ActionBook PreferenceAction = "book"
	// ActionShare is a share to another person or channel.
	ActionShare PreferenceAction = "share"
	// ActionClick is a list-level click-through.
	ActionClick PreferenceAction = "click"
	// ActionHover is a momentary hover or focus.
	ActionHover PreferenceAction = "hover"
)

// Valid reports whether a is one of the known preference actions.
func (a PreferenceAction) Valid() bool {
	switch a {
	case ActionLike, ActionUnlike, ActionView, ActionBook, ActionShare, ActionClick, ActionHover:
		return true
	default:
		return false
	}
}

// DefaultScore returns the canonical score for this action.
func (a PreferenceAction) DefaultScore() float64 {
	switch a {
	case ActionLike:
		return 1.0
	case ActionBook:
		return 0.8
	case ActionShare:
		return 0.6
	case ActionView:
		return 0.3
	case ActionClick:
		return 0.2
	case ActionHover:
		return 0.1
	case ActionUnlike:
		return -1.0
	default:
		return 0.0
	}
}

// Positive reports whether the action counts as a strong positive signal for
// similarity and popularity computations.
func (a PreferenceAction) Positive() bool {
	return a == ActionLike || a == ActionBook
}

// ParsePreferenceAction converts a string into a PreferenceAction.
func ParsePreferenceAction(s string) (PreferenceAction, error) {
	a := PreferenceAction(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown preference action %q", s)
	}
	return a, nil
}

// PreferenceEvent is one user-item interaction with its derived score.
// Unique per (UserID, Item, Action): re-recording the same action updates
// score, context, and timestamp in place rather than inserting a duplicate.
type PreferenceEvent struct {
	// UserID is the interacting user.
	UserID string `json:"user_id"`

	// Item is the item acted upon.
	Item ItemRef `json:"item"`

	// Action classifies the interaction.
	Action PreferenceAction `json:"action"`

	// Score is the numeric preference signal. Defaults to
	// Action.DefaultScore() when the caller does not override it.
	Score float64 `json:"score"`

	// Context carries opaque caller-supplied key-value metadata.
	Context map[string]string `json:"context,omitempty"`

	// CreatedAt is when the event was first recorded.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the event was last re-recorded.
	UpdatedAt time.Time `json:"updated_at"`
}

// UserFavorite marks an item a user has favorited. Presence is the whole
// state: toggling off deletes the row.
type UserFavorite struct {
	UserID     string    `json:"user_id"`
	Item       ItemRef   `json:"item"`
	PropertyID string    `json:"property_id"`
	AddedAt    time.Time `json:"added_at"`
}

// BehaviorEvent is one row of the append-only behavior analytics log.
// Events are never mutated after insertion.
type BehaviorEvent struct {
	UserID     string            `json:"user_id"`
	SessionID  string            `json:"session_id"`
	PagePath   string            `json:"page_path"`
	ActionType string            `json:"action_type"`
	ActionData map[string]string `json:"action_data,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	IPAddress  string            `json:"ip_address,omitempty"`
	Referrer   string            `json:"referrer,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// MenuItem is a catalog entry used by content-based scoring. Dietary tags and
// allergens are free-form lowercase tokens ("vegan", "gluten", "nuts").
type MenuItem struct {
	ID          string    `json:"id"`
	PropertyID  string    `json:"property_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       float64   `json:"price"`
	Category    string    `json:"category,omitempty"`
	DietaryTags []string  `json:"dietary_tags,omitempty"`
	Allergens   []string  `json:"allergens,omitempty"`
	Popularity  float64   `json:"popularity"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ref returns the ItemRef for this menu item.
func (m MenuItem) Ref() ItemRef {
	return ItemRef{ID: m.ID, Type: ItemTypeMenuItem}
}
