// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

//go:build !nats

package events

import "errors"

// NATSAvailable reports whether the binary was built with NATS support.
const NATSAvailable = false

// ErrNATSUnavailable is returned by NewNATSBus in builds without the nats tag.
var ErrNATSUnavailable = errors.New("NATS transport not compiled in (build with -tags nats)")

// NewNATSBus always fails in this build.
func NewNATSBus(NATSConfig) (*Bus, error) {
	return nil, ErrNATSUnavailable
}
