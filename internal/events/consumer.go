// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package events

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/metrics"
)

// CacheInvalidator drops cached recommendations.
type CacheInvalidator interface {
	InvalidateCache() int
}

// Consumer is a suture service that invalidates the recommendation cache for
// every order.added event.
type Consumer struct {
	bus    *Bus
	target CacheInvalidator
	logger zerolog.Logger
}

// NewConsumer creates the cache invalidation consumer.
func NewConsumer(bus *Bus, target CacheInvalidator) *Consumer {
	return &Consumer{
		bus:    bus,
		target: target,
		logger: logging.WithComponent("order-events"),
	}
}

// Serve implements suture.Service.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.bus.Subscribe(ctx)
	if err != nil {
		if errors.Is(err, ErrBusClosed) {
			return suture.ErrDoNotRestart
		}
		return err
	}
	c.logger.Info().Str("topic", TopicOrderAdded).Msg("Order event consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.logger.Info().Msg("Order event stream closed")
				return suture.ErrDoNotRestart
			}
			c.handle(msg)
		}
	}
}

func (c *Consumer) handle(msg *message.Message) {
	defer msg.Ack()

	event, err := DecodeOrderAdded(msg)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Malformed order event, invalidating anyway")
	}
	dropped := c.target.InvalidateCache()
	metrics.RecordOrderEventConsumed()
	c.logger.Debug().
		Str("event_id", event.EventID).
		Str("customer_id", event.CustomerID).
		Int("dropped", dropped).
		Msg("Recommendation cache invalidated by order event")
}

// String implements fmt.Stringer for suture logging.
func (c *Consumer) String() string { return "order-event-consumer" }
