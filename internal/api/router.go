// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter assembles the route tree with the global middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(h.cfg.Security.CORSOrigins))
	r.Use(RequestLogging)

	// Probes stay outside the rate limiter so orchestrators can poll
	// them freely.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(h.cfg.Security))
		r.Use(PrometheusMetrics)

		r.Get("/recommendations/{userID}", h.GetRecommendations)

		r.Post("/preferences", h.RecordPreference)
		r.Post("/favorites", h.ToggleFavorite)
		r.Get("/favorites/{userID}", h.ListFavorites)
		r.Post("/behavior", h.RecordBehavior)

		r.Route("/loyalty", func(r chi.Router) {
			r.Post("/redemptions", h.CreateRedemption)
			r.Get("/{customerID}", h.GetLoyaltyAccount)
			r.Post("/{customerID}/earn", h.EarnPoints)
			r.Get("/{customerID}/redemptions", h.ListRedemptions)
			r.Get("/{customerID}/offers", h.GetOffers)
		})

		r.Route("/qr", func(r chi.Router) {
			r.Post("/enrollment", h.GenerateEnrollmentQR)
			r.Post("/redemption", h.GenerateRedemptionQR)
			r.Post("/menu", h.GenerateMenuQR)
			r.Post("/scan", h.ScanQR)
		})

		r.Route("/menu", func(r chi.Router) {
			r.Get("/{propertyID}", h.ListMenu)
			r.Post("/{propertyID}/rank", h.RankMenu)
		})
	})

	return r
}
