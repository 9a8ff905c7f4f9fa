// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package api

import (
	"errors"
	"net/http"

	"github.com/buffrhost/buffrhost/internal/database"
	"github.com/buffrhost/buffrhost/internal/models"
	"github.com/buffrhost/buffrhost/internal/qr"
)

// GenerateEnrollmentQR handles POST /api/v1/qr/enrollment.
func (h *Handler) GenerateEnrollmentQR(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req EnrollmentQRRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	code, err := h.qr.GenerateLoyaltyEnrollmentQR(r.Context(), req.CustomerID, req.PropertyID)
	if err != nil {
		rw.InternalError("Failed to generate enrollment code")
		return
	}
	rw.Created(code)
}

// GenerateRedemptionQR handles POST /api/v1/qr/redemption. Generation
// reads the account for the tier preview but leaves the balance alone.
func (h *Handler) GenerateRedemptionQR(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RedemptionQRRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	code, err := h.qr.GenerateCrossBusinessRedemptionQR(r.Context(), req.CustomerID, req.PropertyID,
		models.ServiceDomain(req.SourceService), models.ServiceDomain(req.TargetService), req.Points)
	if err != nil {
		h.writeRedemptionError(rw, err)
		return
	}
	rw.Created(code)
}

// GenerateMenuQR handles POST /api/v1/qr/menu.
func (h *Handler) GenerateMenuQR(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req MenuQRRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	code, err := h.qr.GenerateMenuQR(r.Context(), req.PropertyID, req.CustomerID)
	if err != nil {
		rw.InternalError("Failed to generate menu code")
		return
	}
	rw.Created(code)
}

// ScanQR handles POST /api/v1/qr/scan. A redemption scan is the moment
// the ledger mutates.
func (h *Handler) ScanQR(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req ScanRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	result, err := h.qr.Scan(r.Context(), req.Payload, req.PropertyID)
	if err != nil {
		h.writeScanError(rw, err)
		return
	}
	rw.Success(result)
}

// writeScanError maps scan failures. Rejections carry the reason so a
// kiosk can tell the guest why; server faults stay opaque.
func (h *Handler) writeScanError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, qr.ErrExpired):
		rw.Error(http.StatusGone, ErrCodeQRRejected, "Code has expired")
	case errors.Is(err, qr.ErrNonceAlreadyUsed):
		rw.Error(http.StatusConflict, ErrCodeQRRejected, "Code has already been used")
	case errors.Is(err, qr.ErrInvalidSignature):
		rw.Error(http.StatusBadRequest, ErrCodeQRRejected, "Code signature is invalid")
	case errors.Is(err, qr.ErrMalformed), errors.Is(err, qr.ErrUnknownType):
		rw.Error(http.StatusBadRequest, ErrCodeQRRejected, "Code is not readable")
	case errors.Is(err, database.ErrInsufficientPoints):
		rw.Error(http.StatusConflict, ErrCodeInsufficientPoints, "Customer does not have enough points")
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("Customer not found")
	default:
		rw.InternalError("Failed to process scan")
	}
}
