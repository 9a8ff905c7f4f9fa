// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package qr

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// EncodeImage renders the signed payload as a PNG QR code and returns it
// as a base64 data URI ready for an <img> src attribute.
func EncodeImage(payload string, size int) (string, error) {
	if size <= 0 {
		size = 256
	}

	// Medium recovery keeps the payload density manageable; the signed
	// envelopes are already several hundred bytes.
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return "", fmt.Errorf("encode qr image: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
