// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package config loads Orderwise configuration from layered sources using
// koanf v2: built-in defaults, an optional YAML file, then environment
// variables. The resulting Config is read-only after Load returns.
package config

import "time"

// Store backends.
const (
	BackendDuckDB   = "duckdb"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
	BackendMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Store     StoreConfig     `koanf:"store"`
	Profiles  ProfilesConfig  `koanf:"profiles"`
	Models    ModelsConfig    `koanf:"models"`
	Recommend RecommendConfig `koanf:"recommend"`
	Events    EventsConfig    `koanf:"events"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // "development", "staging", "production"
}

// SecurityConfig holds CORS and rate limiting settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// StoreConfig selects and configures the order store backend.
type StoreConfig struct {
	// Backend is one of duckdb, postgres, sqlite, badger, memory.
	Backend string `koanf:"backend"`

	// Path is the database file (duckdb, sqlite) or directory (badger).
	// Empty means in-memory for duckdb and sqlite.
	Path string `koanf:"path"`

	// DSN is the connection string for postgres.
	DSN string `koanf:"dsn"`

	// CSVPath is the merged order dataset. When set it seeds the store at
	// startup and, for the duckdb backend, is rewritten after every append.
	CSVPath string `koanf:"csv_path"`

	// SerializeWrites runs ingestion under a single lock so the
	// read-derive-write sequence of two requests never interleaves.
	SerializeWrites bool `koanf:"serialize_writes"`

	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// CircuitBreakerConfig configures the gobreaker wrapper around the store.
type CircuitBreakerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	FailureRatio float64       `koanf:"failure_ratio"`
	MinRequests  uint32        `koanf:"min_requests"`
}

// ProfilesConfig locates the customer profile table (CSV or XLSX).
type ProfilesConfig struct {
	Path string `koanf:"path"`
}

// ModelsConfig locates the segmentation and CF model artifacts.
type ModelsConfig struct {
	Dir          string `koanf:"dir"`
	ClusterCount int    `koanf:"cluster_count"`
	Version      int    `koanf:"version"` // 0 = latest
}

// RecommendConfig tunes the ranker.
type RecommendConfig struct {
	TopK         int           `koanf:"top_k"`
	MaxK         int           `koanf:"max_k"`
	CacheEnabled bool          `koanf:"cache_enabled"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// EventsConfig configures the in-process order event bus.
type EventsConfig struct {
	Enabled    bool  `koanf:"enabled"`
	BufferSize int64 `koanf:"buffer_size"`

	// Transport is gochannel (in-process) or nats.
	Transport string     `koanf:"transport"`
	NATS      NATSConfig `koanf:"nats"`
}

// NATSConfig configures the NATS event transport.
type NATSConfig struct {
	URL           string        `koanf:"url"`
	Embedded      bool          `koanf:"embedded"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
