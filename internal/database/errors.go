// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package database

import (
	"errors"
	"io"

	"github.com/buffrhost/buffrhost/internal/logging"
)

// Sentinel errors returned by the data access layer. Callers use
// errors.Is to map them onto API responses.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientPoints indicates a redemption asked for more points
	// than the customer's balance holds. The balance is unchanged.
	ErrInsufficientPoints = errors.New("insufficient loyalty points")
)

// closeWithLog closes a resource and logs any error.
// Use for cleanup where errors should be acknowledged but not fail the operation.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource and explicitly ignores any error.
// Use in error paths where Close() errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
