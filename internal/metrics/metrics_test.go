// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/tomtom215/orderwise/internal/models"
)

func TestIngestResult(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ResultSuccess},
		{&models.DuplicateOrderError{}, ResultDuplicate},
		{fmt.Errorf("wrapped: %w", &models.ValidationError{}), ResultInvalid},
		{&models.StoreIOError{Op: "append", Err: errors.New("disk")}, ResultError},
	}
	for _, tt := range tests {
		if got := IngestResult(tt.err); got != tt.want {
			t.Errorf("IngestResult(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestRecommendResult(t *testing.T) {
	if got := RecommendResult(&models.CustomerNotFoundError{CustomerID: "CUST1"}); got != ResultCustomerNotFound {
		t.Errorf("got %q", got)
	}
	if got := RecommendResult(&models.ModelNotFoundError{ClusterID: 2}); got != ResultModelNotFound {
		t.Errorf("got %q", got)
	}
	if got := RecommendResult(errors.New("boom")); got != ResultError {
		t.Errorf("got %q", got)
	}
}

func TestRecordOrderIngest(t *testing.T) {
	before := testutil.ToFloat64(OrdersIngested.WithLabelValues(ResultDuplicate))
	RecordOrderIngest(5*time.Millisecond, &models.DuplicateOrderError{})
	after := testutil.ToFloat64(OrdersIngested.WithLabelValues(ResultDuplicate))
	if after != before+1 {
		t.Errorf("expected duplicate counter +1, got %v -> %v", before, after)
	}
}

func TestRecordStoreOperation_DuplicateNotAnError(t *testing.T) {
	counter := StoreOperationErrors.WithLabelValues("memory", "append")
	before := testutil.ToFloat64(counter)

	RecordStoreOperation("memory", "append", time.Millisecond, &models.DuplicateOrderError{})
	if got := testutil.ToFloat64(counter); got != before {
		t.Errorf("duplicate should not count as error: %v -> %v", before, got)
	}

	RecordStoreOperation("memory", "append", time.Millisecond, errors.New("disk full"))
	if got := testutil.ToFloat64(counter); got != before+1 {
		t.Errorf("expected error counter +1, got %v -> %v", before, got)
	}
}

func TestRecordStoreOperation_ObservesHistogram(t *testing.T) {
	RecordStoreOperation("sqlite", "load", 20*time.Millisecond, nil)

	observer := StoreOperationDuration.WithLabelValues("sqlite", "load")
	m := &dto.Metric{}
	if err := observer.(interface{ Write(*dto.Metric) error }).Write(m); err != nil {
		t.Fatal(err)
	}
	if m.GetHistogram().GetSampleCount() == 0 {
		t.Error("expected at least one observation")
	}
}

func TestRecordClusterAssignment(t *testing.T) {
	before := testutil.ToFloat64(ClusterAssignments.WithLabelValues("3"))
	RecordClusterAssignment(3)
	if got := testutil.ToFloat64(ClusterAssignments.WithLabelValues("3")); got != before+1 {
		t.Errorf("expected +1, got %v -> %v", before, got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("expected gauge +1, got %v", got)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("expected gauge back to %v, got %v", before, got)
	}
}

func TestCircuitBreakerAndEvents(t *testing.T) {
	RecordCircuitBreakerState("store", 2)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("store")); got != 2 {
		t.Errorf("state gauge = %v", got)
	}

	before := testutil.ToFloat64(OrderEventsPublished.WithLabelValues(ResultError))
	RecordOrderEventPublished(errors.New("closed"))
	if got := testutil.ToFloat64(OrderEventsPublished.WithLabelValues(ResultError)); got != before+1 {
		t.Errorf("publish error counter = %v", got)
	}
}
