// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package recommend

import (
	"errors"
	"fmt"
)

// ErrInvalidModel is returned when fitted parameters are inconsistent.
var ErrInvalidModel = errors.New("invalid factor model")

// Rating scale applied to exports that omit min_rating and max_rating.
const (
	DefaultMinRating = 1.0
	DefaultMaxRating = 5.0
)

// Estimator scores a (customer, product) pair. Implementations must be safe
// for concurrent reads.
type Estimator interface {
	Estimate(customerID, productID string) float64
}

// FactorModel is a biased matrix factorization estimator:
//
//	est = mu + b_u + b_i + p_u . q_i
//
// Terms for an unknown customer or product are dropped, and the dot product
// only applies when both are known. The result is clipped to
// [MinRating, MaxRating].
type FactorModel struct {
	GlobalMean  float64              `json:"global_mean"`
	UserBias    map[string]float64   `json:"user_bias"`
	ItemBias    map[string]float64   `json:"item_bias"`
	UserFactors map[string][]float64 `json:"user_factors"`
	ItemFactors map[string][]float64 `json:"item_factors"`
	MinRating   float64              `json:"min_rating"`
	MaxRating   float64              `json:"max_rating"`
}

// Factors returns the latent dimension, or 0 when the model has no factors.
func (m *FactorModel) Factors() int {
	for _, f := range m.UserFactors {
		return len(f)
	}
	for _, f := range m.ItemFactors {
		return len(f)
	}
	return 0
}

// ApplyDefaultRange sets the default rating scale when neither bound is set.
func (m *FactorModel) ApplyDefaultRange() {
	if m.MinRating == 0 && m.MaxRating == 0 {
		m.MinRating, m.MaxRating = DefaultMinRating, DefaultMaxRating
	}
}

// Validate checks that the rating range is non-empty and all factor vectors
// share one length. An empty range would clip every estimate to one value.
func (m *FactorModel) Validate() error {
	if m.MinRating >= m.MaxRating {
		return fmt.Errorf("%w: min_rating %v must be below max_rating %v", ErrInvalidModel, m.MinRating, m.MaxRating)
	}
	k := m.Factors()
	for id, f := range m.UserFactors {
		if len(f) != k {
			return fmt.Errorf("%w: user %s has %d factors, want %d", ErrInvalidModel, id, len(f), k)
		}
	}
	for id, f := range m.ItemFactors {
		if len(f) != k {
			return fmt.Errorf("%w: item %s has %d factors, want %d", ErrInvalidModel, id, len(f), k)
		}
	}
	return nil
}

// Estimate implements Estimator.
func (m *FactorModel) Estimate(customerID, productID string) float64 {
	est := m.GlobalMean

	bu, knownUser := m.UserBias[customerID]
	if knownUser {
		est += bu
	}
	bi, knownItem := m.ItemBias[productID]
	if knownItem {
		est += bi
	}

	if knownUser && knownItem {
		pu, qi := m.UserFactors[customerID], m.ItemFactors[productID]
		if len(pu) == len(qi) {
			for f := range pu {
				est += pu[f] * qi[f]
			}
		}
	}

	if est < m.MinRating {
		est = m.MinRating
	}
	if est > m.MaxRating {
		est = m.MaxRating
	}
	return est
}
