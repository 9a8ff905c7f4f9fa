// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/buffrhost/buffrhost/internal/database"
	"github.com/buffrhost/buffrhost/internal/loyalty"
	"github.com/buffrhost/buffrhost/internal/models"
)

// GetLoyaltyAccount handles GET /api/v1/loyalty/{customerID}.
func (h *Handler) GetLoyaltyAccount(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	customerID := chi.URLParam(r, "customerID")
	status, err := h.loyalty.GetAccountStatus(r.Context(), customerID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Customer not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	rw.Success(status)
}

// EarnPoints handles POST /api/v1/loyalty/{customerID}/earn. The tier
// multiplier applies to the credited amount.
func (h *Handler) EarnPoints(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	customerID := chi.URLParam(r, "customerID")
	var req EarnRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	credited, err := h.loyalty.EarnPoints(r.Context(), customerID, req.BasePoints, req.Spent)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Customer not found")
			return
		}
		rw.DatabaseError(err)
		return
	}

	rw.Success(map[string]interface{}{
		"customer_id":     customerID,
		"base_points":     req.BasePoints,
		"credited_points": credited,
	})
}

// CreateRedemption handles POST /api/v1/loyalty/redemptions.
func (h *Handler) CreateRedemption(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RedeemRequest
	if !decodeAndValidate(rw, r, &req) {
		return
	}

	result, err := h.loyalty.CreateCrossBusinessRedemption(r.Context(), loyalty.RedemptionRequest{
		CustomerID:    req.CustomerID,
		PropertyID:    req.PropertyID,
		SourceService: models.ServiceDomain(req.SourceService),
		TargetService: models.ServiceDomain(req.TargetService),
		Points:        req.Points,
	})
	if err != nil {
		h.writeRedemptionError(rw, err)
		return
	}

	rw.Created(result)
}

// writeRedemptionError maps loyalty errors onto HTTP statuses. An
// insufficient balance is a conflict with current account state, not a
// malformed request.
func (h *Handler) writeRedemptionError(rw *ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrInsufficientPoints):
		rw.Error(http.StatusConflict, ErrCodeInsufficientPoints, "Customer does not have enough points")
	case errors.Is(err, database.ErrNotFound):
		rw.NotFound("Customer not found")
	case errors.Is(err, loyalty.ErrInvalidPoints),
		errors.Is(err, loyalty.ErrSameServiceDomain),
		errors.Is(err, loyalty.ErrInvalidServiceName):
		rw.BadRequest(err.Error())
	default:
		rw.DatabaseError(err)
	}
}

// ListRedemptions handles GET /api/v1/loyalty/{customerID}/redemptions.
func (h *Handler) ListRedemptions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	customerID := chi.URLParam(r, "customerID")
	limit := h.clampLimit(r.URL.Query().Get("limit"))

	redemptions, err := h.loyalty.ListRedemptions(r.Context(), customerID, limit)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if redemptions == nil {
		redemptions = []models.CrossBusinessRedemption{}
	}

	rw.SuccessWithPagination(redemptions, &PaginationMeta{Count: len(redemptions), Limit: limit})
}

// GetOffers handles GET /api/v1/loyalty/{customerID}/offers. The source
// query parameter names the service domain the customer is redeeming
// from; only offers the balance can afford come back.
func (h *Handler) GetOffers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	customerID := chi.URLParam(r, "customerID")
	source := models.ServiceDomain(r.URL.Query().Get("source"))
	if !source.Valid() {
		rw.BadRequest("Query parameter 'source' must be a valid service domain")
		return
	}

	offers, err := h.loyalty.GetCrossBusinessOffers(r.Context(), customerID, source)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			rw.NotFound("Customer not found")
			return
		}
		rw.DatabaseError(err)
		return
	}
	if offers == nil {
		offers = []models.CrossBusinessOffer{}
	}

	rw.SuccessWithPagination(offers, &PaginationMeta{Count: len(offers)})
}
