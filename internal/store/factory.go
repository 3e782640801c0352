// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package store

import (
	"context"
	"fmt"

	"github.com/tomtom215/orderwise/internal/config"
	"github.com/tomtom215/orderwise/internal/logging"
)

// New opens the configured backend, seeds it from the CSV dataset when it
// is empty, and wraps it with metrics and the optional circuit breaker.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	base, err := open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	seeded, err := Seed(ctx, base, cfg.CSVPath)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	logger := logging.WithComponent("store")
	logger.Info().
		Str("backend", cfg.Backend).
		Str("csv_path", cfg.CSVPath).
		Int("seeded", seeded).
		Msg("order store opened")

	var s Store = Instrument(base, cfg.Backend)
	if cfg.CircuitBreaker.Enabled {
		cb := cfg.CircuitBreaker
		s = NewBreakerStore(s, BreakerSettings{
			Name:         "order-store",
			MaxRequests:  cb.MaxRequests,
			Interval:     cb.Interval,
			Timeout:      cb.Timeout,
			FailureRatio: cb.FailureRatio,
			MinRequests:  cb.MinRequests,
		})
	}
	return s, nil
}

func open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendDuckDB:
		var opts []SQLOption
		if cfg.CSVPath != "" {
			opts = append(opts, WithCSVMirror(cfg.CSVPath))
		}
		return OpenSQL(ctx, DuckDB, cfg.Path, opts...)
	case config.BackendSQLite:
		dsn := cfg.Path
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		return OpenSQL(ctx, SQLite, dsn)
	case config.BackendPostgres:
		return OpenSQL(ctx, Postgres, cfg.DSN)
	case config.BackendBadger:
		return OpenBadger(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
