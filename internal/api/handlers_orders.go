// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/models"
)

// AddOrderResponse is the success body of POST /orders.
type AddOrderResponse struct {
	Message string `json:"message"`
}

// ExistsResponse is the body of GET /orders.
type ExistsResponse struct {
	Exists bool `json:"exists"`
}

// AddOrder handles POST /orders.
func (h *Handler) AddOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, http.StatusUnprocessableEntity, ErrorResponse{
			Detail: "Request body must be a JSON order line.",
			Code:   CodeMalformedBody,
		}, err)
		return
	}

	line, err := h.orders.AddOrder(r.Context(), &req)
	if err != nil {
		status, body := orderError(err)
		respondError(w, r, status, body, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Int("order_id", line.OrderID).
		Str("product_id", line.ProductID).
		Msg("Order accepted")
	respondJSON(w, http.StatusOK, AddOrderResponse{Message: "Order added successfully."})
}

// OrderExists handles GET /orders?order_id=&product_id=&sku_id=.
func (h *Handler) OrderExists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var fields []models.FieldError
	orderID, err := strconv.Atoi(q.Get("order_id"))
	if err != nil {
		fields = append(fields, models.FieldError{
			Field: "order_id", Tag: "int", Message: "order_id must be an integer",
		})
	}
	for _, name := range []string{"product_id", "sku_id"} {
		if q.Get(name) == "" {
			fields = append(fields, models.FieldError{
				Field: name, Tag: "required", Message: name + " is required",
			})
		}
	}
	if len(fields) > 0 {
		verr := &models.ValidationError{Fields: fields}
		status, body := orderError(verr)
		respondError(w, r, status, body, verr)
		return
	}

	key := models.OrderKey{OrderID: orderID, ProductID: q.Get("product_id"), SKUID: q.Get("sku_id")}
	logging.Ctx(r.Context()).Info().Str("key", sanitizeLogValue(key.String())).Msg("Checking order existence")

	exists, err := h.orders.OrderExists(r.Context(), key)
	if err != nil {
		status, body := orderError(err)
		respondError(w, r, status, body, err)
		return
	}
	respondJSON(w, http.StatusOK, ExistsResponse{Exists: exists})
}
