// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/tomtom215/orderwise/internal/app"
	"github.com/tomtom215/orderwise/internal/config"
	"github.com/tomtom215/orderwise/internal/events"
	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("store_backend", cfg.Store.Backend).
		Str("profiles", cfg.Profiles.Path).
		Str("models_dir", cfg.Models.Dir).
		Int("clusters", cfg.Models.ClusterCount).
		Msg("Starting Orderwise")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Startup failed")
		return 1
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing runtime")
		}
	}()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if rt.Bus != nil {
		tree.Add(supervisor.LayerMessaging, events.NewConsumer(rt.Bus, rt.Recommender))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var exitCode atomic.Int32
	server := rt.HTTPServer()
	tree.Add(supervisor.LayerAPI,
		supervisor.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout).
			OnFatal(func(err error) {
				logging.Error().Err(err).Str("addr", server.Addr).Msg("HTTP server cannot listen")
				exitCode.Store(1)
				cancel()
			}),
	)

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	for err := range tree.ServeBackground(ctx) {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
			exitCode.Store(1)
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}

	code := int(exitCode.Load())
	logging.Info().Int("exit_code", code).Msg("Orderwise stopped")
	return code
}
