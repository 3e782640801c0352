// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package orders ingests new order lines: validation, duplicate detection,
// derived fields, persistence and the order.added notification.
package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/metrics"
	"github.com/tomtom215/orderwise/internal/models"
	"github.com/tomtom215/orderwise/internal/store"
	"github.com/tomtom215/orderwise/internal/validation"
)

// Publisher announces ingested order lines.
type Publisher interface {
	PublishOrderAdded(ctx context.Context, line models.OrderLine) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the source of "today" for recency. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPublisher sets where order.added events go.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithSerializedWrites controls whether the check-then-append section runs
// under a mutex. Enabled by default.
func WithSerializedWrites(enabled bool) Option {
	return func(e *Engine) { e.serialize = enabled }
}

// Engine ingests order lines into a store.
type Engine struct {
	store     store.Store
	publisher Publisher
	now       func() time.Time
	serialize bool
	mu        sync.Mutex
	logger    zerolog.Logger
}

// NewEngine creates an ingestion engine over s.
func NewEngine(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:     s,
		now:       time.Now,
		serialize: true,
		logger:    logging.WithComponent("orders"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddOrder validates req, derives sales, recency and order gap, and appends
// the line. On any error the store is left unchanged.
func (e *Engine) AddOrder(ctx context.Context, req *models.OrderRequest) (line models.OrderLine, err error) {
	start := time.Now()
	defer func() { metrics.RecordOrderIngest(time.Since(start), err) }()

	if req == nil {
		return models.OrderLine{}, &models.ValidationError{Fields: []models.FieldError{
			{Field: "body", Tag: "required", Message: "order body is required"},
		}}
	}

	e.logger.Info().
		Str("customer_id", req.CustomerID).
		Str("product_id", req.ProductID).
		Str("sku_id", req.SKUID).
		Msg("Received order")

	if verr := validation.ValidateStruct(req); verr != nil {
		e.logger.Warn().Str("customer_id", req.CustomerID).Err(verr).Msg("Order rejected by validation")
		return models.OrderLine{}, verr.ToModelError()
	}

	line, err = req.ToOrderLine()
	if err != nil {
		return models.OrderLine{}, err
	}

	if e.serialize {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	key := line.Key()
	exists, err := e.store.Exists(ctx, key)
	if err != nil {
		return models.OrderLine{}, fmt.Errorf("check duplicate: %w", err)
	}
	if exists {
		e.logger.Warn().Str("key", key.String()).Msg("Duplicate order detected")
		return models.OrderLine{}, &models.DuplicateOrderError{Key: key}
	}

	if err := e.derive(ctx, &line); err != nil {
		return models.OrderLine{}, err
	}

	if err := e.store.Append(ctx, line); err != nil {
		if errors.Is(err, models.ErrDuplicateOrder) {
			e.logger.Warn().Str("key", key.String()).Msg("Duplicate order detected by store")
		}
		return models.OrderLine{}, fmt.Errorf("append order: %w", err)
	}

	e.logger.Info().
		Str("key", key.String()).
		Str("customer_id", line.CustomerID).
		Float64("sales", line.Sales).
		Int("recency", line.Recency).
		Int("order_gap", line.OrderGap).
		Msg("Order added")

	e.publish(ctx, line)
	return line, nil
}

// derive fills Sales, Recency and OrderGap.
func (e *Engine) derive(ctx context.Context, line *models.OrderLine) error {
	line.Sales = float64(line.Quantity) * line.PricePerUnit
	line.Recency = models.DateOf(e.now()).DaysSince(line.OrderDate)

	history, err := e.store.OrdersForCustomer(ctx, line.CustomerID)
	if err != nil {
		return fmt.Errorf("load customer history: %w", err)
	}
	if len(history) == 0 {
		e.logger.Info().Str("customer_id", line.CustomerID).Msg("First order for customer, order gap set to 0")
		line.OrderGap = 0
		return nil
	}

	latest := history[0].OrderDate
	for _, prior := range history[1:] {
		if prior.OrderDate.After(latest) {
			latest = prior.OrderDate
		}
	}
	line.OrderGap = line.OrderDate.DaysSince(latest)
	return nil
}

func (e *Engine) publish(ctx context.Context, line models.OrderLine) {
	if e.publisher == nil {
		return
	}
	err := e.publisher.PublishOrderAdded(ctx, line)
	metrics.RecordOrderEventPublished(err)
	if err != nil {
		e.logger.Warn().Err(err).Str("key", line.Key().String()).Msg("Failed to publish order event")
	}
}

// OrderExists reports whether a line with key has been ingested. An empty
// store reports false.
func (e *Engine) OrderExists(ctx context.Context, key models.OrderKey) (bool, error) {
	exists, err := e.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("order exists: %w", err)
	}
	return exists, nil
}
