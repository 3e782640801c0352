// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Command orderctl administers an Orderwise deployment: it imports model
// artifacts, inspects and exports the order store, and runs one-off
// recommendations against the same configuration the server uses.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
