// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package profiles holds the read-only customer profile table and turns a
// profile into the feature vector consumed by segmentation.
package profiles

import (
	"github.com/tomtom215/orderwise/internal/models"
)

// FeatureNames is the fixed column order of a feature vector.
var FeatureNames = []string{
	"total_spend",
	"purchase_frequency",
	"avg_basket_size",
	"category_diversity",
	"recency",
	"gap",
	"age",
}

// FeatureCount is the width of a feature vector.
const FeatureCount = 7

// Profile is one customer's precomputed aggregate features.
type Profile struct {
	CustomerID        string  `json:"customer_id"`
	TotalSpend        float64 `json:"total_spend"`
	PurchaseFrequency float64 `json:"purchase_frequency"`
	AvgBasketSize     float64 `json:"avg_basket_size"`
	CategoryDiversity float64 `json:"category_diversity"`
	Recency           float64 `json:"recency"`
	Gap               float64 `json:"gap"`
	Age               float64 `json:"age"`
}

// Features returns the profile as a vector in FeatureNames order.
func (p *Profile) Features() []float64 {
	return []float64{
		p.TotalSpend,
		p.PurchaseFrequency,
		p.AvgBasketSize,
		p.CategoryDiversity,
		p.Recency,
		p.Gap,
		p.Age,
	}
}

// Table is an immutable index of profiles by customer id.
type Table struct {
	byID  map[string]Profile
	order []string
}

// NewTable indexes profiles. When a customer id repeats, the first row wins.
func NewTable(profiles []Profile) *Table {
	t := &Table{byID: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if _, seen := t.byID[p.CustomerID]; seen {
			continue
		}
		t.byID[p.CustomerID] = p
		t.order = append(t.order, p.CustomerID)
	}
	return t
}

// Get returns the profile for customerID.
func (t *Table) Get(customerID string) (Profile, bool) {
	p, ok := t.byID[customerID]
	return p, ok
}

// Len returns the number of distinct customers.
func (t *Table) Len() int { return len(t.byID) }

// CustomerIDs returns customer ids in load order.
func (t *Table) CustomerIDs() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Extractor produces feature vectors from a profile table.
type Extractor struct {
	table *Table
}

// NewExtractor returns an extractor over table.
func NewExtractor(table *Table) *Extractor {
	return &Extractor{table: table}
}

// Extract returns the customer's feature vector in FeatureNames order, or
// *models.CustomerNotFoundError when the customer is not in the table.
func (e *Extractor) Extract(customerID string) ([]float64, error) {
	p, ok := e.table.Get(customerID)
	if !ok {
		return nil, &models.CustomerNotFoundError{CustomerID: customerID}
	}
	return p.Features(), nil
}
