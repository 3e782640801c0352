// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package store persists order lines. Every backend enforces uniqueness of
// the (order_id, product_id, sku_id) key and reports a collision as
// *models.DuplicateOrderError. All other I/O failures surface as
// *models.StoreIOError.
//
// Backends:
//   - memory:   map-backed, for tests and ephemeral runs
//   - duckdb:   embedded DuckDB through sqlx, with an optional CSV mirror
//   - sqlite:   embedded SQLite through sqlx
//   - postgres: PostgreSQL through sqlx and lib/pq
//   - badger:   embedded key-value store
package store

import (
	"context"
	"time"

	"github.com/tomtom215/orderwise/internal/metrics"
	"github.com/tomtom215/orderwise/internal/models"
)

// Store is the tabular order store.
type Store interface {
	// Load returns every stored line. An empty store returns an empty slice.
	Load(ctx context.Context) ([]models.OrderLine, error)

	// Exists reports whether a line with exactly this key is stored.
	Exists(ctx context.Context, key models.OrderKey) (bool, error)

	// OrdersForCustomer returns all lines of one customer in no particular order.
	OrdersForCustomer(ctx context.Context, customerID string) ([]models.OrderLine, error)

	// Append persists one line. A key collision returns *models.DuplicateOrderError.
	Append(ctx context.Context, line models.OrderLine) error

	// Import bulk-inserts lines, silently skipping keys already present.
	// It returns the number of lines inserted.
	Import(ctx context.Context, lines []models.OrderLine) (int, error)

	// ProductIDs returns the distinct product ids, sorted ascending.
	ProductIDs(ctx context.Context) ([]string, error)

	// Count returns the number of stored lines.
	Count(ctx context.Context) (int, error)

	Close() error
}

// Operation names used in errors and metrics.
const (
	OpLoad              = "load"
	OpExists            = "exists"
	OpOrdersForCustomer = "orders_for_customer"
	OpAppend            = "append"
	OpImport            = "import"
	OpProductIDs        = "product_ids"
	OpCount             = "count"
)

// instrumented records duration and error metrics for every call.
type instrumented struct {
	next    Store
	backend string
}

// Instrument wraps s so every operation is recorded under the given backend label.
func Instrument(s Store, backend string) Store {
	return &instrumented{next: s, backend: backend}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(s.backend, op, time.Since(start), err)
}

func (s *instrumented) Load(ctx context.Context) ([]models.OrderLine, error) {
	start := time.Now()
	lines, err := s.next.Load(ctx)
	s.observe(OpLoad, start, err)
	return lines, err
}

func (s *instrumented) Exists(ctx context.Context, key models.OrderKey) (bool, error) {
	start := time.Now()
	ok, err := s.next.Exists(ctx, key)
	s.observe(OpExists, start, err)
	return ok, err
}

func (s *instrumented) OrdersForCustomer(ctx context.Context, customerID string) ([]models.OrderLine, error) {
	start := time.Now()
	lines, err := s.next.OrdersForCustomer(ctx, customerID)
	s.observe(OpOrdersForCustomer, start, err)
	return lines, err
}

func (s *instrumented) Append(ctx context.Context, line models.OrderLine) error {
	start := time.Now()
	err := s.next.Append(ctx, line)
	s.observe(OpAppend, start, err)
	return err
}

func (s *instrumented) Import(ctx context.Context, lines []models.OrderLine) (int, error) {
	start := time.Now()
	n, err := s.next.Import(ctx, lines)
	s.observe(OpImport, start, err)
	return n, err
}

func (s *instrumented) ProductIDs(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := s.next.ProductIDs(ctx)
	s.observe(OpProductIDs, start, err)
	return ids, err
}

func (s *instrumented) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.next.Count(ctx)
	s.observe(OpCount, start, err)
	return n, err
}

func (s *instrumented) Close() error { return s.next.Close() }
