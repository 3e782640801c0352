// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package api exposes order ingestion and recommendations over HTTP.
package api

import (
	"context"
	"time"

	"github.com/tomtom215/orderwise/internal/models"
	"github.com/tomtom215/orderwise/internal/recommend"
)

// OrderService ingests and looks up order lines.
type OrderService interface {
	AddOrder(ctx context.Context, req *models.OrderRequest) (models.OrderLine, error)
	OrderExists(ctx context.Context, key models.OrderKey) (bool, error)
}

// Recommender ranks products for a customer.
type Recommender interface {
	Recommend(ctx context.Context, customerID string, k int) (*recommend.Result, error)
}

// StoreStatus reports store contents for readiness.
type StoreStatus interface {
	Count(ctx context.Context) (int, error)
	ProductIDs(ctx context.Context) ([]string, error)
}

// Handler holds the dependencies of every endpoint. It is built once and
// shared by all requests.
type Handler struct {
	orders      OrderService
	recommender Recommender
	status      StoreStatus
	clusters    int
	startTime   time.Time
}

// NewHandler creates the endpoint handlers.
func NewHandler(orders OrderService, recommender Recommender, status StoreStatus, clusters int) *Handler {
	return &Handler{
		orders:      orders,
		recommender: recommender,
		status:      status,
		clusters:    clusters,
		startTime:   time.Now(),
	}
}
