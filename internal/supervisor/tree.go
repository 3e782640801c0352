// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package supervisor runs the long-lived Orderwise services under a suture
// supervisor tree.
//
//	orderwise (root)
//	├── messaging   order event consumer
//	└── api         HTTP server
//
// A crash in the messaging layer restarts only that layer; the API keeps
// serving, at worst with a stale recommendation cache until the consumer is
// back.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Layer names a child supervisor of the root.
type Layer string

const (
	LayerMessaging Layer = "messaging"
	LayerAPI       Layer = "api"
)

// TreeConfig tunes restart behavior. Zero fields take suture's defaults.
type TreeConfig struct {
	FailureThreshold float64       // failures before backoff, default 5
	FailureDecay     float64       // seconds, default 30
	FailureBackoff   time.Duration // default 15s
	ShutdownTimeout  time.Duration // per service, default 10s
}

func (c TreeConfig) withDefaults() TreeConfig {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = 30
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = 15 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

func (c TreeConfig) spec() suture.Spec {
	return suture.Spec{
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// Tree is the root supervisor with one child per Layer.
type Tree struct {
	root   *suture.Supervisor
	layers map[Layer]*suture.Supervisor
}

// NewTree builds the tree. Supervisor events are logged through logger.
func NewTree(logger *slog.Logger, cfg TreeConfig) *Tree {
	cfg = cfg.withDefaults()

	hook := (&sutureslog.Handler{Logger: logger}).MustHook()
	rootSpec := cfg.spec()
	rootSpec.EventHook = hook

	t := &Tree{
		root:   suture.New("orderwise", rootSpec),
		layers: make(map[Layer]*suture.Supervisor, 2),
	}
	for _, layer := range []Layer{LayerMessaging, LayerAPI} {
		child := suture.New(string(layer), cfg.spec())
		t.root.Add(child)
		t.layers[layer] = child
	}
	return t
}

// Add starts svc under layer. It panics on an unknown layer.
func (t *Tree) Add(layer Layer, svc suture.Service) suture.ServiceToken {
	child, ok := t.layers[layer]
	if !ok {
		panic("supervisor: unknown layer " + string(layer))
	}
	return child.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground runs the tree in a goroutine. The channel yields the
// result of Serve and is then closed.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
