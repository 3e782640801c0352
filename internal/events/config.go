// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package events

import "time"

// NATSConfig configures the NATS transport.
type NATSConfig struct {
	// URL of an external server. Ignored when Embedded is set.
	URL string

	// Embedded starts an in-process server for single-node deployments.
	Embedded bool

	MaxReconnects int
	ReconnectWait time.Duration
}
