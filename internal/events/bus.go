// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package events carries order.added notifications over Watermill. The
// default transport is an in-process channel; builds with the nats tag can
// fan events out over NATS so every instance invalidates its cache.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/models"
)

// TopicOrderAdded is published once per ingested order line.
const TopicOrderAdded = "order.added"

// ErrBusClosed is returned by Publish after Close.
var ErrBusClosed = errors.New("event bus closed")

// OrderAdded is the order.added payload.
type OrderAdded struct {
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Key        models.OrderKey `json:"key"`
	CustomerID string          `json:"customer_id"`
	OrderDate  models.Date     `json:"order_date"`
	Sales      float64         `json:"sales"`
}

// Transport names accepted by the events configuration.
const (
	TransportChannel = "gochannel"
	TransportNATS    = "nats"
)

// Bus publishes and subscribes order events over one Watermill transport.
type Bus struct {
	transport  string
	publisher  message.Publisher
	subscriber message.Subscriber

	// run after the publisher and subscriber are closed
	closers []func() error

	mu     sync.RWMutex
	closed bool
}

func newLogger() watermill.LoggerAdapter {
	return watermill.NewSlogLogger(logging.NewSlogLogger())
}

// NewBus creates an in-process bus whose subscriber channels buffer
// bufferSize messages.
func NewBus(bufferSize int64) *Bus {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: bufferSize,
	}, newLogger())
	return &Bus{
		transport:  TransportChannel,
		publisher:  pubsub,
		subscriber: pubsub,
	}
}

// Transport reports which transport the bus runs on.
func (b *Bus) Transport() string { return b.transport }

// PublishOrderAdded announces a newly ingested line.
func (b *Bus) PublishOrderAdded(ctx context.Context, line models.OrderLine) error {
	event := OrderAdded{
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Key:        line.Key(),
		CustomerID: line.CustomerID,
		OrderDate:  line.OrderDate,
		Sales:      line.Sales,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := message.NewMessage(event.EventID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("customer_id", line.CustomerID)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set("request_id", id)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}
	if err := b.publisher.Publish(TopicOrderAdded, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicOrderAdded, err)
	}
	return nil
}

// Subscribe returns a channel of order.added messages. It closes when ctx is
// done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	return b.subscriber.Subscribe(ctx, TopicOrderAdded)
}

// Close shuts the bus down. Safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	errs := []error{b.publisher.Close()}
	if any(b.subscriber) != any(b.publisher) {
		errs = append(errs, b.subscriber.Close())
	}
	for _, closeFn := range b.closers {
		errs = append(errs, closeFn())
	}
	return errors.Join(errs...)
}

// DecodeOrderAdded parses an order.added payload.
func DecodeOrderAdded(msg *message.Message) (OrderAdded, error) {
	var event OrderAdded
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return OrderAdded{}, fmt.Errorf("decode order event %s: %w", msg.UUID, err)
	}
	return event, nil
}
