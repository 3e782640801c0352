// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package config

import (
	"fmt"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateModels(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateEvents(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive")
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQS must be at least 1")
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.IsProduction() {
		for _, o := range c.Security.CORSOrigins {
			if o == "*" {
				return fmt.Errorf("CORS_ORIGINS must not be '*' in production")
			}
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendDuckDB, BackendSQLite, BackendMemory:
	case BackendPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_BACKEND=postgres")
		}
	case BackendBadger:
		if c.Store.Path == "" {
			return fmt.Errorf("STORE_PATH is required when STORE_BACKEND=badger")
		}
	default:
		return fmt.Errorf("STORE_BACKEND must be one of duckdb, postgres, sqlite, badger, memory, got %q", c.Store.Backend)
	}

	cb := c.Store.CircuitBreaker
	if cb.Enabled {
		if cb.FailureRatio <= 0 || cb.FailureRatio > 1 {
			return fmt.Errorf("store.circuit_breaker.failure_ratio must be in (0, 1], got %v", cb.FailureRatio)
		}
		if cb.Timeout <= 0 {
			return fmt.Errorf("store.circuit_breaker.timeout must be positive")
		}
	}
	return nil
}

func (c *Config) validateModels() error {
	if strings.TrimSpace(c.Models.Dir) == "" {
		return fmt.Errorf("MODELS_DIR is required")
	}
	if c.Models.ClusterCount < 1 {
		return fmt.Errorf("CLUSTER_NUMBER must be at least 1, got %d", c.Models.ClusterCount)
	}
	if c.Models.Version < 0 {
		return fmt.Errorf("MODELS_VERSION must not be negative")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.TopK < 1 {
		return fmt.Errorf("RECOMMEND_TOP_K must be at least 1, got %d", c.Recommend.TopK)
	}
	if c.Recommend.MaxK < c.Recommend.TopK {
		return fmt.Errorf("RECOMMEND_MAX_K (%d) must be >= RECOMMEND_TOP_K (%d)", c.Recommend.MaxK, c.Recommend.TopK)
	}
	if c.Recommend.CacheEnabled && c.Recommend.CacheTTL <= 0 {
		return fmt.Errorf("RECOMMEND_CACHE_TTL must be positive when caching is enabled")
	}
	return nil
}

func (c *Config) validateEvents() error {
	if !c.Events.Enabled {
		return nil
	}
	if c.Events.BufferSize < 0 {
		return fmt.Errorf("EVENTS_BUFFER_SIZE must not be negative")
	}
	switch c.Events.Transport {
	case "gochannel":
	case "nats":
		if !c.Events.NATS.Embedded && c.Events.NATS.URL == "" {
			return fmt.Errorf("NATS_URL is required when EVENTS_TRANSPORT=nats and NATS_EMBEDDED is false")
		}
	default:
		return fmt.Errorf("EVENTS_TRANSPORT must be gochannel or nats, got %q", c.Events.Transport)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
