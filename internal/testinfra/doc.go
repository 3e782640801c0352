// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package testinfra starts throwaway service containers for integration
// tests using testcontainers-go.
//
//	func TestPostgresStore(t *testing.T) {
//	    pg := testinfra.StartPostgres(t)
//	    s, err := store.OpenSQL(ctx, store.Postgres, pg.DSN)
//	    ...
//	}
//
// Tests are skipped when no Docker daemon is reachable. The first run may
// pull images; later runs use the local image cache.
package testinfra
