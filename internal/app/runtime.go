// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package app assembles the process-wide runtime: store, profile table,
// model artifacts, engines and HTTP handler. Everything is built once at
// startup and only read afterwards.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/tomtom215/orderwise/internal/api"
	"github.com/tomtom215/orderwise/internal/artifacts"
	"github.com/tomtom215/orderwise/internal/config"
	"github.com/tomtom215/orderwise/internal/events"
	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/models"
	"github.com/tomtom215/orderwise/internal/orders"
	"github.com/tomtom215/orderwise/internal/profiles"
	"github.com/tomtom215/orderwise/internal/recommend"
	"github.com/tomtom215/orderwise/internal/store"
)

// Runtime is the immutable set of components shared by all requests.
type Runtime struct {
	Config      *config.Config
	Store       store.Store
	Profiles    *profiles.Table
	Artifacts   *artifacts.Bundle
	Orders      *orders.Engine
	Recommender *recommend.Engine
	Bus         *events.Bus // nil when events are disabled
}

// Build loads every startup dependency. Any failure is returned as a
// *models.StartupError and leaves nothing open.
func Build(ctx context.Context, cfg *config.Config) (rt *Runtime, err error) {
	logger := logging.WithComponent("app")

	var closers []func() error
	defer func() {
		if err == nil {
			return
		}
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}()

	table, err := profiles.Load(ctx, cfg.Profiles.Path)
	if err != nil {
		return nil, startupError("profiles", err)
	}
	logger.Info().Str("path", cfg.Profiles.Path).Int("customers", table.Len()).Msg("Customer profiles loaded")

	bundle, err := artifacts.LoadBundle(ctx, cfg.Models.Dir, cfg.Models.Version, cfg.Models.ClusterCount)
	if err != nil {
		return nil, startupError("artifacts", err)
	}
	if width := bundle.Pipeline.InputWidth(); width != profiles.FeatureCount {
		return nil, startupError("artifacts", fmt.Errorf(
			"segmentation expects %d features, profiles provide %d", width, profiles.FeatureCount))
	}

	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, startupError("store", err)
	}
	closers = append(closers, s.Close)

	recommender, err := recommend.NewEngine(recommend.Config{
		TopK:         cfg.Recommend.TopK,
		MaxK:         cfg.Recommend.MaxK,
		CacheEnabled: cfg.Recommend.CacheEnabled,
		CacheTTL:     cfg.Recommend.CacheTTL,
	}, profiles.NewExtractor(table), bundle.Pipeline, s, bundle.Models)
	if err != nil {
		return nil, startupError("recommend", err)
	}
	closers = append(closers, func() error { recommender.Close(); return nil })

	opts := []orders.Option{orders.WithSerializedWrites(cfg.Store.SerializeWrites)}
	var bus *events.Bus
	if cfg.Events.Enabled {
		bus, err = newBus(cfg.Events)
		if err != nil {
			return nil, startupError("events", err)
		}
		closers = append(closers, bus.Close)
		opts = append(opts, orders.WithPublisher(bus))
		logger.Info().Str("transport", bus.Transport()).Msg("Order event bus ready")
	}

	return &Runtime{
		Config:      cfg,
		Store:       s,
		Profiles:    table,
		Artifacts:   bundle,
		Orders:      orders.NewEngine(s, opts...),
		Recommender: recommender,
		Bus:         bus,
	}, nil
}

func newBus(cfg config.EventsConfig) (*events.Bus, error) {
	if cfg.Transport == events.TransportNATS {
		return events.NewNATSBus(events.NATSConfig{
			URL:           cfg.NATS.URL,
			Embedded:      cfg.NATS.Embedded,
			MaxReconnects: cfg.NATS.MaxReconnects,
			ReconnectWait: cfg.NATS.ReconnectWait,
		})
	}
	return events.NewBus(cfg.BufferSize), nil
}

func startupError(component string, err error) error {
	var se *models.StartupError
	if errors.As(err, &se) {
		return err
	}
	return &models.StartupError{Component: component, Err: err}
}

// Handler builds the HTTP handler over the runtime.
func (rt *Runtime) Handler() http.Handler {
	h := api.NewHandler(rt.Orders, rt.Recommender, rt.Store, rt.Config.Models.ClusterCount)
	return api.NewRouter(h, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(rt.Config.Security)))
}

// HTTPServer returns a configured *http.Server for the runtime.
func (rt *Runtime) HTTPServer() *http.Server {
	srv := rt.Config.Server
	return &http.Server{
		Addr:              net.JoinHostPort(srv.Host, strconv.Itoa(srv.Port)),
		Handler:           rt.Handler(),
		ReadHeaderTimeout: srv.Timeout,
		ReadTimeout:       srv.Timeout,
		WriteTimeout:      srv.Timeout,
	}
}

// Close releases the runtime in reverse construction order.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Bus != nil {
		errs = append(errs, rt.Bus.Close())
	}
	if rt.Recommender != nil {
		rt.Recommender.Close()
	}
	if rt.Store != nil {
		errs = append(errs, rt.Store.Close())
	}
	return errors.Join(errs...)
}
