// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

// Package models defines the shared domain types for the loyalty and
// recommendation core: preference events, recommendation cache entries,
// favorites, behavior events, customers, tiers, and cross-business
// redemptions.
//
// The package contains plain data structures and closed enumerations only.
// Business rules (scoring, tier thresholds, redemption validation) live in
// the recommend and loyalty packages; persistence lives in database.
//
// Item references are intentionally polymorphic: an ItemRef pairs an opaque
// item ID with a closed ItemType, so the recommendation engine can rank
// rooms, tours, services, and menu items through one code path without
// foreign keys into each catalog.
package models
