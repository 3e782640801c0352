// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tomtom215/orderwise/internal/logging"
)

var (
	errMissingCustomerID = errors.New("missing customer_id query parameter")
	errInvalidK          = errors.New("invalid k query parameter")
)

// RecommendResponse is the success body of POST /users.
type RecommendResponse struct {
	RecommendedProducts []string `json:"recommended_products"`
}

// RecommendForUser handles POST /users?customer_id=. Every failure in the
// recommendation path answers 404.
func (h *Handler) RecommendForUser(w http.ResponseWriter, r *http.Request) {
	customerID := r.URL.Query().Get("customer_id")
	if customerID == "" {
		respondError(w, r, http.StatusNotFound, ErrorResponse{
			Detail: "customer_id is required",
			Code:   CodeCustomerNotFound,
		}, errMissingCustomerID)
		return
	}

	r = r.WithContext(logging.ContextWithCustomerID(r.Context(), sanitizeLogValue(customerID)))

	k := 0
	if raw := r.URL.Query().Get("k"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, r, http.StatusNotFound, ErrorResponse{
				Detail: "k must be a positive integer",
				Code:   CodeRecommendFailed,
			}, errInvalidK)
			return
		}
		k = parsed
	}

	result, err := h.recommender.Recommend(r.Context(), customerID, k)
	if err != nil {
		respondError(w, r, http.StatusNotFound, recommendError(err), err)
		return
	}

	products := result.Products
	if products == nil {
		products = []string{}
	}
	respondJSON(w, http.StatusOK, RecommendResponse{RecommendedProducts: products})
}
