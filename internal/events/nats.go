// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

//go:build nats

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
)

// NATSAvailable reports whether the binary was built with NATS support.
const NATSAvailable = true

// NewNATSBus connects a bus to NATS core pub/sub. Every subscriber receives
// every event; there is no queue group. With cfg.Embedded an in-process
// server is started on a random local port and shut down by Close.
func NewNATSBus(cfg NATSConfig) (*Bus, error) {
	logger := newLogger()
	bus := &Bus{transport: TransportNATS}

	url := cfg.URL
	if cfg.Embedded {
		ns, err := startEmbeddedServer()
		if err != nil {
			return nil, err
		}
		url = ns.ClientURL()
		bus.closers = append(bus.closers, func() error {
			ns.Shutdown()
			ns.WaitForShutdown()
			return nil
		})
	}

	natsOpts := connectOptions(cfg, logger)

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		closeAll(bus.closers)
		return nil, fmt.Errorf("create nats publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		CloseTimeout:     5 * time.Second,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		pub.Close() //nolint:errcheck
		closeAll(bus.closers)
		return nil, fmt.Errorf("create nats subscriber: %w", err)
	}

	bus.publisher = pub
	bus.subscriber = sub
	return bus, nil
}

func connectOptions(cfg NATSConfig, logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("orderwise"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

func startEmbeddedServer() (*server.Server, error) {
	ns, err := server.NewServer(&server.Options{
		ServerName: "orderwise-events",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		NoSigs:     true,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedded nats server: %w", err)
	}
	go ns.Start()

	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded nats server not ready within timeout")
	}
	return ns, nil
}

func closeAll(closers []func() error) {
	for _, fn := range closers {
		_ = fn()
	}
}
