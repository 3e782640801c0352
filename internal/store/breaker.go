// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package store

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/metrics"
	"github.com/tomtom215/orderwise/internal/models"
)

var _ Store = (*BreakerStore)(nil)

// BreakerSettings configures BreakerStore.
type BreakerSettings struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// BreakerStore fails fast when the wrapped store keeps failing. It never
// retries. Duplicate keys and caller cancellations do not count as failures.
type BreakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// NewBreakerStore wraps next with a circuit breaker.
func NewBreakerStore(next Store, cfg BreakerSettings) *BreakerStore {
	name := cfg.Name
	if name == "" {
		name = "order-store"
	}
	metrics.RecordCircuitBreakerState(name, 0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_ratio", ratio).Msg("opening order store circuit")
				return true
			}
			return false
		},
		IsSuccessful: isBreakerSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state transition")
			metrics.RecordCircuitBreakerState(name, stateValue(to))
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},
	})

	return &BreakerStore{next: next, cb: cb, name: name}
}

func isBreakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, models.ErrDuplicateOrder) ||
		errors.Is(err, context.Canceled)
}

func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// State returns the current breaker state.
func (b *BreakerStore) State() gobreaker.State { return b.cb.State() }

func execute[T any](b *BreakerStore, op string, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordCircuitBreakerRequest(b.name, "rejected")
			return zero, &models.StoreIOError{Op: op, Err: err}
		}
		if !isBreakerSuccess(err) {
			metrics.RecordCircuitBreakerRequest(b.name, "failure")
		}
		return zero, err
	}
	metrics.RecordCircuitBreakerRequest(b.name, "success")
	typed, _ := result.(T)
	return typed, nil
}

func (b *BreakerStore) Load(ctx context.Context) ([]models.OrderLine, error) {
	return execute(b, OpLoad, func() ([]models.OrderLine, error) { return b.next.Load(ctx) })
}

func (b *BreakerStore) Exists(ctx context.Context, key models.OrderKey) (bool, error) {
	return execute(b, OpExists, func() (bool, error) { return b.next.Exists(ctx, key) })
}

func (b *BreakerStore) OrdersForCustomer(ctx context.Context, customerID string) ([]models.OrderLine, error) {
	return execute(b, OpOrdersForCustomer, func() ([]models.OrderLine, error) {
		return b.next.OrdersForCustomer(ctx, customerID)
	})
}

func (b *BreakerStore) Append(ctx context.Context, line models.OrderLine) error {
	_, err := execute(b, OpAppend, func() (struct{}, error) { return struct{}{}, b.next.Append(ctx, line) })
	return err
}

func (b *BreakerStore) Import(ctx context.Context, lines []models.OrderLine) (int, error) {
	return execute(b, OpImport, func() (int, error) { return b.next.Import(ctx, lines) })
}

func (b *BreakerStore) ProductIDs(ctx context.Context) ([]string, error) {
	return execute(b, OpProductIDs, func() ([]string, error) { return b.next.ProductIDs(ctx) })
}

func (b *BreakerStore) Count(ctx context.Context) (int, error) {
	return execute(b, OpCount, func() (int, error) { return b.next.Count(ctx) })
}

func (b *BreakerStore) Close() error { return b.next.Close() }
