// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package metrics registers the Prometheus collectors for Orderwise and
// exposes Record* helpers so callers never touch label ordering directly.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/orderwise/internal/models"
)

// Result label values.
const (
	ResultSuccess          = "success"
	ResultDuplicate        = "duplicate"
	ResultInvalid          = "invalid"
	ResultError            = "error"
	ResultCustomerNotFound = "customer_not_found"
	ResultModelNotFound    = "model_not_found"
	ResultCacheHit         = "cache_hit"
)

var (
	// Ingestion
	OrdersIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_ingested_total",
			Help: "Order lines submitted for ingestion, by outcome",
		},
		[]string{"result"},
	)

	OrderIngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "order_ingest_duration_seconds",
			Help:    "Duration of order ingestion in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Recommendation
	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Recommendation requests, by outcome",
		},
		[]string{"result"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ClusterAssignments = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_cluster_assignments_total",
			Help: "Customers assigned to each segment",
		},
		[]string{"cluster"},
	)

	// Store
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of order store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Order store operations that failed",
		},
		[]string{"backend", "operation"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of active API requests",
		},
	)

	// Circuit Breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Events
	OrderEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_events_published_total",
			Help: "Order events published to the in-process bus",
		},
		[]string{"result"},
	)

	OrderEventsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_events_consumed_total",
			Help: "Order events handled by the cache invalidation consumer",
		},
	)
)

// IngestResult maps an ingestion error to its result label.
func IngestResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, models.ErrDuplicateOrder):
		return ResultDuplicate
	case errors.Is(err, models.ErrValidation):
		return ResultInvalid
	default:
		return ResultError
	}
}

// RecommendResult maps a recommendation error to its result label.
func RecommendResult(err error) string {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, models.ErrCustomerNotFound):
		return ResultCustomerNotFound
	case errors.Is(err, models.ErrModelNotFound):
		return ResultModelNotFound
	default:
		return ResultError
	}
}

// RecordOrderIngest records one ingestion attempt.
func RecordOrderIngest(duration time.Duration, err error) {
	OrdersIngested.WithLabelValues(IngestResult(err)).Inc()
	OrderIngestDuration.Observe(duration.Seconds())
}

// RecordRecommendation records one recommendation request.
func RecordRecommendation(duration time.Duration, err error) {
	Recommendations.WithLabelValues(RecommendResult(err)).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordRecommendationCacheHit counts a request answered from cache.
func RecordRecommendationCacheHit() {
	Recommendations.WithLabelValues(ResultCacheHit).Inc()
}

// RecordClusterAssignment counts a segment assignment.
func RecordClusterAssignment(cluster int) {
	ClusterAssignments.WithLabelValues(strconv.Itoa(cluster)).Inc()
}

// RecordStoreOperation records a store call. Duplicate-key outcomes are not
// counted as errors.
func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil && !errors.Is(err, models.ErrDuplicateOrder) {
		StoreOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCircuitBreakerState sets the breaker state gauge (0=closed, 1=half-open, 2=open).
func RecordCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCircuitBreakerTransition counts a state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordCircuitBreakerRequest counts a request by outcome: success, failure or rejected.
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// RecordOrderEventPublished counts a publish attempt.
func RecordOrderEventPublished(err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	OrderEventsPublished.WithLabelValues(result).Inc()
}

// RecordOrderEventConsumed counts a handled event.
func RecordOrderEventConsumed() {
	OrderEventsConsumed.Inc()
}
