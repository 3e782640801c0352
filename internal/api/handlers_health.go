// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package api

import (
	"net/http"
	"time"
)

// HealthLive handles liveness probe requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style)
// Returns 200 OK only if the store answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rows, err := h.status.Count(r.Context())
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrorResponse{
			Detail: "Order store unavailable.",
			Code:   CodeNotReady,
		}, err)
		return
	}
	products, err := h.status.ProductIDs(r.Context())
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrorResponse{
			Detail: "Order store unavailable.",
			Code:   CodeNotReady,
		}, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"ready":        true,
		"order_lines":  rows,
		"catalog_size": len(products),
		"clusters":     h.clusters,
		"uptime":       time.Since(h.startTime).Seconds(),
	})
}
