// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

/*
Package main is the entry point for the Orderwise HTTP server.

Orderwise accepts order lines over HTTP, stores them with derived
recency and gap fields, and serves per-customer product recommendations
from a customer segmentation pipeline and one collaborative filtering
model per segment.

# Startup

The server initializes components in this order and exits with status 1
if any step fails:

 1. Configuration: defaults, config.yaml, then environment (Koanf v2)
 2. Logging: zerolog with the configured level and format
 3. Customer profiles: CSV or XLSX table keyed by customer id
 4. Model artifacts: power transformer, PCA, KMeans and per-cluster models
 5. Order store: duckdb, sqlite, postgres, badger or memory backend
 6. Event bus: in-process order.added events (optional)
 7. Supervisor tree: HTTP server and event consumer

# Endpoints

	POST /orders                  add one order line
	GET  /orders?order_id=&product_id=&sku_id=
	                              check whether an order line exists
	POST /users?customer_id=      top recommended products
	GET  /health/live             liveness probe
	GET  /health/ready            readiness probe
	GET  /metrics                 Prometheus metrics

# Configuration

Every setting can be overridden from the environment, for example:

	export STORE_BACKEND=duckdb
	export STORE_CSV_PATH=/data/merged_data.csv
	export PROFILES_PATH=/data/customer_features.csv
	export MODELS_DIR=/data/models
	export CLUSTER_NUMBER=4
	./orderwise

Model artifacts are produced offline and imported with orderctl:

	orderctl artifacts import --dir /data/models export.json

# Signal Handling

SIGINT and SIGTERM stop the supervisor tree. The HTTP server drains
in-flight requests within server.shutdown_timeout before the runtime
closes the store.
*/
package main
