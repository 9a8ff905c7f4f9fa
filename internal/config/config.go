// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

// Package config defines the application configuration and its loading
// pipeline. Configuration is layered (struct defaults, then an optional
// YAML file, then environment variables) so container deployments can
// override any setting without shipping a config file.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the Buffr Host server.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Recommend RecommendConfig `koanf:"recommend"`
	Loyalty   LoyaltyConfig   `koanf:"loyalty"`
	QR        QRConfig        `koanf:"qr"`
	Events    EventsConfig    `koanf:"events"`
	API       APIConfig       `koanf:"api"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development or production
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"`
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
	SeedDemoData           bool   `koanf:"seed_demo_data"`
}

// SecurityConfig holds signing secrets and HTTP protection settings.
type SecurityConfig struct {
	// SigningSecret is the master secret. Per-purpose keys (QR payload
	// signing, enrollment URL tokens) are derived from it with HKDF.
	SigningSecret     string        `koanf:"signing_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// RecommendConfig holds recommendation engine tunables. The defaults
// reflect the shipped scoring model; they are exposed so operators can
// tighten or loosen the collaborative thresholds per deployment.
type RecommendConfig struct {
	Enabled bool `koanf:"enabled"`

	// Collaborative filtering thresholds.
	SimilarUserMinShared  int     `koanf:"similar_user_min_shared"`
	SimilarUserCap        int     `koanf:"similar_user_cap"`
	MinCorroboratingUsers int     `koanf:"min_corroborating_users"`
	ConfidenceDivisor     float64 `koanf:"confidence_divisor"`

	// Cache behaviour.
	CacheTTL      time.Duration `koanf:"cache_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// Content-based scoring weights.
	DietaryMatchWeight float64 `koanf:"dietary_match_weight"`
	PriceFitWeight     float64 `koanf:"price_fit_weight"`
	PopularityWeight   float64 `koanf:"popularity_weight"`

	MaxResults int `koanf:"max_results"`
}

// LoyaltyConfig holds cross-business loyalty settings.
type LoyaltyConfig struct {
	RedemptionExpiry time.Duration `koanf:"redemption_expiry"`
}

// QRConfig holds QR code generation and verification settings.
type QRConfig struct {
	BaseURL          string        `koanf:"base_url"`
	EnrollmentTTL    time.Duration `koanf:"enrollment_ttl"`
	RedemptionTTL    time.Duration `koanf:"redemption_ttl"`
	MenuTTL          time.Duration `koanf:"menu_ttl"`
	ImageSize        int           `koanf:"image_size"`
	ReplayStorePath  string        `koanf:"replay_store_path"`
	ReplayStoreInMem bool          `koanf:"replay_store_in_mem"`
	ReplayGCInterval time.Duration `koanf:"replay_gc_interval"`
}

// EventsConfig holds in-process event bus settings.
type EventsConfig struct {
	BufferSize          int           `koanf:"buffer_size"`
	CloseTimeout        time.Duration `koanf:"close_timeout"`
	RetryCount          int           `koanf:"retry_count"`
	RetryInitialBackoff time.Duration `koanf:"retry_initial_backoff"`
}

// APIConfig holds pagination bounds for list endpoints.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// DefaultConfig returns the configuration defaults applied before any
// file or environment overrides.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Timeout:     30 * time.Second,
			Environment: "production",
		},
		Database: DatabaseConfig{
			Path:                   "/data/buffrhost.db",
			MaxMemory:              "512MB",
			Threads:                4,
			PreserveInsertionOrder: false,
			SeedDemoData:           false,
		},
		Security: SecurityConfig{
			TokenTTL:          7 * 24 * time.Hour,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Recommend: RecommendConfig{
			Enabled:               true,
			SimilarUserMinShared:  2,
			SimilarUserCap:        50,
			MinCorroboratingUsers: 2,
			ConfidenceDivisor:     10,
			CacheTTL:              24 * time.Hour,
			SweepInterval:         time.Hour,
			DietaryMatchWeight:    0.3,
			PriceFitWeight:        0.2,
			PopularityWeight:      0.5,
			MaxResults:            10,
		},
		Loyalty: LoyaltyConfig{
			RedemptionExpiry: 24 * time.Hour,
		},
		QR: QRConfig{
			BaseURL:          "https://host.buffr.ai",
			EnrollmentTTL:    7 * 24 * time.Hour,
			RedemptionTTL:    24 * time.Hour,
			MenuTTL:          7 * 24 * time.Hour,
			ImageSize:        256,
			ReplayStorePath:  "/data/replay",
			ReplayGCInterval: 10 * time.Minute,
		},
		Events: EventsConfig{
			BufferSize:          256,
			CloseTimeout:        10 * time.Second,
			RetryCount:          3,
			RetryInitialBackoff: 100 * time.Millisecond,
		},
		API: APIConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
	}
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	env := strings.ToLower(c.Server.Environment)
	if env != "development" && env != "production" {
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Signed QR payloads are the trust anchor for cross-business
	// redemptions; refuse to start in production without a real secret.
	if env == "production" {
		if len(c.Security.SigningSecret) < 32 {
			return fmt.Errorf("security.signing_secret must be at least 32 characters in production")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	if f := strings.ToLower(c.Logging.Format); f != "json" && f != "console" {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Recommend.SimilarUserMinShared < 1 {
		return fmt.Errorf("recommend.similar_user_min_shared must be at least 1")
	}
	if c.Recommend.SimilarUserCap < 1 {
		return fmt.Errorf("recommend.similar_user_cap must be at least 1")
	}
	if c.Recommend.MinCorroboratingUsers < 1 {
		return fmt.Errorf("recommend.min_corroborating_users must be at least 1")
	}
	if c.Recommend.ConfidenceDivisor <= 0 {
		return fmt.Errorf("recommend.confidence_divisor must be positive")
	}
	if c.Recommend.CacheTTL <= 0 {
		return fmt.Errorf("recommend.cache_ttl must be positive")
	}
	if c.Recommend.MaxResults < 1 {
		return fmt.Errorf("recommend.max_results must be at least 1")
	}

	if c.QR.EnrollmentTTL <= 0 || c.QR.RedemptionTTL <= 0 || c.QR.MenuTTL <= 0 {
		return fmt.Errorf("qr TTLs must be positive")
	}
	if c.QR.ImageSize < 64 || c.QR.ImageSize > 2048 {
		return fmt.Errorf("qr.image_size must be between 64 and 2048, got %d", c.QR.ImageSize)
	}

	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size must be between 1 and api.max_page_size")
	}

	return nil
}
