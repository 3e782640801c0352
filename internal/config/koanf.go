// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/orderwise/config.yaml",
	"/etc/orderwise/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Defaults returns the built-in configuration before file and environment overrides.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Store: StoreConfig{
			Backend:         BackendDuckDB,
			Path:            "",
			CSVPath:         "data/merged_data.csv",
			SerializeWrites: true,
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:      true,
				MaxRequests:  3,
				Interval:     time.Minute,
				Timeout:      30 * time.Second,
				FailureRatio: 0.6,
				MinRequests:  3,
			},
		},
		Profiles: ProfilesConfig{
			Path: "data/customer_profiles.csv",
		},
		Models: ModelsConfig{
			Dir:          "models",
			ClusterCount: 4,
			Version:      0,
		},
		Recommend: RecommendConfig{
			TopK:         5,
			MaxK:         50,
			CacheEnabled: true,
			CacheTTL:     5 * time.Minute,
		},
		Events: EventsConfig{
			Enabled:    true,
			BufferSize: 256,
			Transport:  "gochannel",
			NATS: NATSConfig{
				URL:           "nats://127.0.0.1:4222",
				MaxReconnects: 60,
				ReconnectWait: 2 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration in order of increasing priority:
//
//  1. Built-in defaults
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables
func Load() (*Config, error) {
	return LoadFrom(findConfigFile())
}

// LoadFrom behaves like Load but reads the YAML layer from path.
// An empty path skips the file layer.
func LoadFrom(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
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

// sliceConfigPaths are parsed from comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
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
	return nil
}

// envMappings maps environment variables to koanf paths. CLUSTER_NUMBER,
// MERGED_DATA and CUSTOMER_DF keep the key names of the legacy INI file.
var envMappings = map[string]string{
	"http_host":                  "server.host",
	"http_port":                  "server.port",
	"server_timeout":             "server.timeout",
	"shutdown_timeout":           "server.shutdown_timeout",
	"environment":                "server.environment",
	"cors_origins":               "security.cors_origins",
	"rate_limit_reqs":            "security.rate_limit_reqs",
	"rate_limit_window":          "security.rate_limit_window",
	"disable_rate_limit":         "security.rate_limit_disabled",
	"store_backend":              "store.backend",
	"store_path":                 "store.path",
	"duckdb_path":                "store.path",
	"database_url":               "store.dsn",
	"store_csv_path":             "store.csv_path",
	"merged_data":                "store.csv_path",
	"store_serialize_writes":     "store.serialize_writes",
	"store_breaker_enabled":      "store.circuit_breaker.enabled",
	"store_breaker_timeout":      "store.circuit_breaker.timeout",
	"store_breaker_failure_rate": "store.circuit_breaker.failure_ratio",
	"profiles_path":              "profiles.path",
	"customer_df":                "profiles.path",
	"models_dir":                 "models.dir",
	"cluster_number":             "models.cluster_count",
	"models_version":             "models.version",
	"recommend_top_k":            "recommend.top_k",
	"recommend_max_k":            "recommend.max_k",
	"recommend_cache_enabled":    "recommend.cache_enabled",
	"recommend_cache_ttl":        "recommend.cache_ttl",
	"events_enabled":             "events.enabled",
	"events_buffer_size":         "events.buffer_size",
	"events_transport":           "events.transport",
	"nats_url":                   "events.nats.url",
	"nats_embedded":              "events.nats.embedded",
	"log_level":                  "logging.level",
	"log_format":                 "logging.format",
	"log_caller":                 "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf paths.
// Unmapped variables are dropped.
//
//   - HTTP_PORT -> server.port
//   - CLUSTER_NUMBER -> models.cluster_count
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
