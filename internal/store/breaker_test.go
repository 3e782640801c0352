// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/orderwise/internal/models"
)

// failingStore fails Count with err and delegates everything else.
type failingStore struct {
	*MemoryStore
	err   error
	calls int
}

func (f *failingStore) Count(ctx context.Context) (int, error) {
	f.calls++
	return 0, f.err
}

func testBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:         "test-store",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func TestBreakerStore_OpensAfterFailures(t *testing.T) {
	inner := &failingStore{MemoryStore: NewMemoryStore(), err: &models.StoreIOError{Op: OpCount, Err: errors.New("disk")}}
	b := NewBreakerStore(inner, testBreakerSettings())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := b.Count(ctx)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Count(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrStoreIO))
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 3, inner.calls, "open breaker must not call through")
}

func TestBreakerStore_DuplicatesDoNotTrip(t *testing.T) {
	b := NewBreakerStore(NewMemoryStore(), testBreakerSettings())
	ctx := context.Background()
	line := testLine(1, "CUST1", "Product_1", "SKU_1", models.NewDate(2024, 1, 1))

	require.NoError(t, b.Append(ctx, line))
	for i := 0; i < 5; i++ {
		err := b.Append(ctx, line)
		require.True(t, errors.Is(err, models.ErrDuplicateOrder))
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerStore_PassesResultsThrough(t *testing.T) {
	b := NewBreakerStore(NewMemoryStore(), testBreakerSettings())
	ctx := context.Background()

	require.NoError(t, b.Append(ctx, testLine(1, "CUST1", "Product_9", "SKU_1", models.NewDate(2024, 1, 1))))
	ids, err := b.ProductIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Product_9"}, ids)

	ok, err := b.Exists(ctx, models.OrderKey{OrderID: 1, ProductID: "Product_9", SKUID: "SKU_1"})
	require.NoError(t, err)
	assert.True(t, ok)
}
