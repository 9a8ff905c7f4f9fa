// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Recommendation engine latency and cache efficiency
// - Loyalty redemptions
// - QR generation and scan outcomes

var (
	// Database metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Recommendation engine metrics
	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_generation_duration_seconds",
			Help:    "Time to produce a recommendation list",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"source"}, // "cache", "collaborative", "popularity"
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Total recommendation cache hits",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Total recommendation cache misses",
		},
	)

	RecommendCacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_invalidations_total",
			Help: "Total recommendation cache invalidations triggered by preference writes",
		},
	)

	RecommendFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_popularity_fallbacks_total",
			Help: "Recommendation requests served by the popularity fallback",
		},
	)

	// Loyalty metrics
	LoyaltyRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loyalty_redemptions_total",
			Help: "Total cross-business redemption attempts",
		},
		[]string{"source_service", "target_service", "outcome"}, // outcome: "success", "insufficient_points", "error"
	)

	LoyaltyPointsRedeemed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loyalty_points_redeemed_total",
			Help: "Total loyalty points redeemed across businesses",
		},
	)

	// QR metrics
	QRGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_generated_total",
			Help: "Total QR codes generated",
		},
		[]string{"type"},
	)

	QRScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qr_scans_total",
			Help: "Total QR scan attempts",
		},
		[]string{"type", "outcome"}, // outcome: "ok", "expired", "invalid_signature", "replayed", "malformed"
	)

	// Event bus metrics
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total domain events published on the in-process bus",
		},
		[]string{"topic"},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRecommendation records how a recommendation list was produced.
func RecordRecommendation(source string, duration time.Duration) {
	RecommendDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordRedemption records the outcome of a cross-business redemption.
func RecordRedemption(sourceService, targetService, outcome string, points int) {
	LoyaltyRedemptionsTotal.WithLabelValues(sourceService, targetService, outcome).Inc()
	if outcome == "success" {
		LoyaltyPointsRedeemed.Add(float64(points))
	}
}

// RecordQRScan records the outcome of a QR scan attempt.
func RecordQRScan(qrType, outcome string) {
	QRScansTotal.WithLabelValues(qrType, outcome).Inc()
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
