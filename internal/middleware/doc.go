// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

/*
Package middleware provides HTTP middleware for the Orderwise API.

Key Components:

  - Request ID: UUID-based request tracking, propagated into the logging context
  - Prometheus Metrics: request count, latency and in-flight gauge per route

Both are chi-compatible (func(http.Handler) http.Handler). The router
installs them around chi's RealIP and Recoverer:

	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(...))
	r.Use(httprate.LimitByIP(...))
	r.Use(middleware.PrometheusMetrics)

Route labels use the chi route pattern ("/orders") rather than the raw path,
so query strings and path parameters do not inflate label cardinality.
*/
package middleware
