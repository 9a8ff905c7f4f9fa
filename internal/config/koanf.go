// Buffr Host - Hospitality Loyalty and Recommendation Platform
// Copyright 2026 Buffr Host Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/buffrhost/buffrhost

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search paths.
const ConfigPathEnvVar = "BUFFRHOST_CONFIG"

// DefaultConfigPaths are searched in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"./config.yaml",
	"./config.yml",
	"/config/config.yaml",
	"/config/config.yml",
	"/etc/buffrhost/config.yaml",
}

// sliceConfigPaths lists config keys that hold string slices. Environment
// variables provide them as comma-separated strings, which processSliceFields
// splits before unmarshalling.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// Load builds the configuration from three layers, lowest priority first:
// struct defaults, an optional YAML config file, then environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from the struct.
	if err := k.Load(structs.Provider(DefaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file.
	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment variables (highest priority).
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// envTransformFunc maps flat environment variable names to config keys.
// Unmapped variables are dropped so unrelated environment noise cannot
// reach the config tree.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",
		"environment":  "server.environment",

		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",
		"seed_demo_data":    "database.seed_demo_data",

		// Security
		"signing_secret":      "security.signing_secret",
		"token_ttl":           "security.token_ttl",
		"rate_limit_requests": "security.rate_limit_requests",
		"rate_limit_window":   "security.rate_limit_window",
		"disable_rate_limit":  "security.rate_limit_disabled",
		"cors_origins":        "security.cors_origins",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// Recommendation engine
		"recommend_enabled":                 "recommend.enabled",
		"recommend_similar_user_min_shared": "recommend.similar_user_min_shared",
		"recommend_similar_user_cap":        "recommend.similar_user_cap",
		"recommend_min_corroborating":       "recommend.min_corroborating_users",
		"recommend_confidence_divisor":      "recommend.confidence_divisor",
		"recommend_cache_ttl":               "recommend.cache_ttl",
		"recommend_sweep_interval":          "recommend.sweep_interval",
		"recommend_dietary_weight":          "recommend.dietary_match_weight",
		"recommend_price_weight":            "recommend.price_fit_weight",
		"recommend_popularity_weight":       "recommend.popularity_weight",
		"recommend_max_results":             "recommend.max_results",

		// Loyalty
		"loyalty_redemption_expiry": "loyalty.redemption_expiry",

		// QR codes
		"qr_base_url":           "qr.base_url",
		"qr_enrollment_ttl":     "qr.enrollment_ttl",
		"qr_redemption_ttl":     "qr.redemption_ttl",
		"qr_menu_ttl":           "qr.menu_ttl",
		"qr_image_size":         "qr.image_size",
		"qr_replay_store_path":  "qr.replay_store_path",
		"qr_replay_in_memory":   "qr.replay_store_in_mem",
		"qr_replay_gc_interval": "qr.replay_gc_interval",

		// Events
		"events_buffer_size":   "events.buffer_size",
		"events_close_timeout": "events.close_timeout",
		"events_retry_count":   "events.retry_count",
		"events_retry_backoff": "events.retry_initial_backoff",

		// API
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// processSliceFields splits comma-separated env values into string slices
// for the keys in sliceConfigPaths. Values that arrived from YAML are
// already slices and are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		if strVal, ok := val.(string); ok {
			if strVal == "" {
				continue
			}
			parts := strings.Split(strVal, ",")
			trimmed := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					trimmed = append(trimmed, p)
				}
			}
			if len(trimmed) > 0 {
				if err := k.Set(path, trimmed); err != nil {
					return fmt.Errorf("failed to set %s: %w", path, err)
				}
			}
		}
	}
	return nil
}
