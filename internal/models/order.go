// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package models defines the data structures shared across Orderwise packages:
// order lines and their dedup key, calendar dates, and the error taxonomy.
//
// JSON field names use the human-readable column names of the order dataset
// ("Order ID", "Customer ID", ...) so payloads and exported CSV headers match.
package models

import (
	"fmt"
)

// OrderKey is the dedup key of an order line. It is unique across the store.
type OrderKey struct {
	OrderID   int    `json:"order_id"`
	ProductID string `json:"product_id"`
	SKUID     string `json:"sku_id"`
}

// String renders the key for logs and storage keys.
func (k OrderKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.OrderID, k.ProductID, k.SKUID)
}

// OrderLine is one purchased SKU instance together with its derived fields.
// Lines are created by the ingestion engine and never mutated afterwards.
type OrderLine struct {
	OrderID        int     `json:"Order ID" db:"order_id"`
	CustomerID     string  `json:"Customer ID" db:"customer_id"`
	WarehouseID    string  `json:"Warehouse ID" db:"warehouse_id"`
	CustomerAge    int     `json:"Customer Age" db:"customer_age"`
	CustomerGender string  `json:"Customer Gender" db:"customer_gender"`
	OrderDate      Date    `json:"Date" db:"order_date"`
	ProductID      string  `json:"Product ID" db:"product_id"`
	SKUID          string  `json:"SKU ID" db:"sku_id"`
	Category       string  `json:"Category" db:"category"`
	Quantity       int     `json:"Quantity" db:"quantity"`
	PricePerUnit   float64 `json:"Price per Unit" db:"price_per_unit"`

	// Derived at ingestion time.
	Sales    float64 `json:"Sales" db:"sales"`
	Recency  int     `json:"Recency" db:"recency"`
	OrderGap int     `json:"Order Gap" db:"order_gap"`
}

// Key returns the dedup key of the line.
func (o *OrderLine) Key() OrderKey {
	return OrderKey{OrderID: o.OrderID, ProductID: o.ProductID, SKUID: o.SKUID}
}

// OrderRequest is the inbound shape of a new order line, before date
// normalization and field derivation. Numeric fields are pointers so a
// missing key is distinguishable from zero. Gender and category are free
// text: the key must be present but an empty value is accepted.
type OrderRequest struct {
	OrderID        *int     `json:"Order ID" validate:"required"`
	CustomerID     string   `json:"Customer ID" validate:"required,customer_id"`
	WarehouseID    string   `json:"Warehouse ID" validate:"required,warehouse_id"`
	CustomerAge    *int     `json:"Customer Age" validate:"required"`
	CustomerGender *string  `json:"Customer Gender" validate:"required"`
	Date           string   `json:"Date" validate:"required,orderdate"`
	ProductID      string   `json:"Product ID" validate:"required,product_id"`
	SKUID          string   `json:"SKU ID" validate:"required,sku_id"`
	Category       *string  `json:"Category" validate:"required"`
	Quantity       *int     `json:"Quantity" validate:"required,gt=0"`
	PricePerUnit   *float64 `json:"Price per Unit" validate:"required,gte=0"`
}

// ToOrderLine converts a validated request into an order line with a
// normalized date. Derived fields are left zero.
func (r *OrderRequest) ToOrderLine() (OrderLine, error) {
	if r.OrderID == nil || r.CustomerAge == nil || r.Quantity == nil || r.PricePerUnit == nil ||
		r.CustomerGender == nil || r.Category == nil {
		return OrderLine{}, &ValidationError{Fields: []FieldError{{Field: "body", Tag: "required", Message: "all order fields are required"}}}
	}
	date, err := ParseDate(r.Date)
	if err != nil {
		return OrderLine{}, &ValidationError{Fields: []FieldError{{Field: "Date", Tag: "orderdate", Message: err.Error()}}}
	}
	return OrderLine{
		OrderID:        *r.OrderID,
		CustomerID:     r.CustomerID,
		WarehouseID:    r.WarehouseID,
		CustomerAge:    *r.CustomerAge,
		CustomerGender: *r.CustomerGender,
		OrderDate:      date,
		ProductID:      r.ProductID,
		SKUID:          r.SKUID,
		Category:       *r.Category,
		Quantity:       *r.Quantity,
		PricePerUnit:   *r.PricePerUnit,
	}, nil
}
