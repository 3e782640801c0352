// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package segment assigns a customer feature vector to a segment using
// fitted model parameters, applied in strict order:
//
//  1. Yeo-Johnson power transform, optionally standardized
//  2. PCA projection, optionally whitened
//  3. nearest KMeans centroid by squared Euclidean distance
//
// All stages are read-only after construction and safe for concurrent use.
package segment

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch reports vectors or parameters of incompatible widths.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// ErrInvalidModel reports unusable fitted parameters.
var ErrInvalidModel = errors.New("invalid model parameters")

// epsilon matches the machine spacing at 1.0 used to detect lambda == 0 or 2.
const epsilon = 2.220446049250313e-16

// PowerTransformer applies a per-feature Yeo-Johnson transform.
type PowerTransformer struct {
	Lambdas     []float64 `json:"lambdas"`
	Standardize bool      `json:"standardize"`
	Mean        []float64 `json:"mean,omitempty"`
	Scale       []float64 `json:"scale,omitempty"`
}

// Width returns the number of features the transformer expects.
func (p *PowerTransformer) Width() int { return len(p.Lambdas) }

// Validate checks internal consistency of the fitted parameters.
func (p *PowerTransformer) Validate() error {
	if len(p.Lambdas) == 0 {
		return fmt.Errorf("%w: power transformer has no lambdas", ErrInvalidModel)
	}
	if p.Standardize && (len(p.Mean) != len(p.Lambdas) || len(p.Scale) != len(p.Lambdas)) {
		return fmt.Errorf("%w: power transformer mean/scale width %d/%d, want %d",
			ErrDimensionMismatch, len(p.Mean), len(p.Scale), len(p.Lambdas))
	}
	return nil
}

// Transform returns the transformed copy of x.
func (p *PowerTransformer) Transform(x []float64) ([]float64, error) {
	if len(x) != len(p.Lambdas) {
		return nil, fmt.Errorf("%w: power transformer input has %d features, want %d",
			ErrDimensionMismatch, len(x), len(p.Lambdas))
	}
	out := make([]float64, len(x))
	for i, v := range x {
		y := yeoJohnson(v, p.Lambdas[i])
		if p.Standardize {
			scale := p.Scale[i]
			if scale == 0 {
				scale = 1
			}
			y = (y - p.Mean[i]) / scale
		}
		out[i] = y
	}
	return out, nil
}

func yeoJohnson(x, lambda float64) float64 {
	if x >= 0 {
		if math.Abs(lambda) < epsilon {
			return math.Log1p(x)
		}
		return (math.Pow(x+1, lambda) - 1) / lambda
	}
	if math.Abs(lambda-2) < epsilon {
		return -math.Log1p(-x)
	}
	return -(math.Pow(-x+1, 2-lambda) - 1) / (2 - lambda)
}

// PCA projects centered vectors onto principal components.
type PCA struct {
	Mean []float64 `json:"mean"`
	// Components holds one row per component, each len(Mean) wide.
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance,omitempty"`
	Whiten            bool        `json:"whiten"`
}

// InputWidth returns the expected input dimension.
func (p *PCA) InputWidth() int { return len(p.Mean) }

// OutputWidth returns the number of components.
func (p *PCA) OutputWidth() int { return len(p.Components) }

// Validate checks internal consistency of the fitted parameters.
func (p *PCA) Validate() error {
	if len(p.Mean) == 0 || len(p.Components) == 0 {
		return fmt.Errorf("%w: pca has no mean or components", ErrInvalidModel)
	}
	for i, c := range p.Components {
		if len(c) != len(p.Mean) {
			return fmt.Errorf("%w: pca component %d has width %d, want %d",
				ErrDimensionMismatch, i, len(c), len(p.Mean))
		}
	}
	if p.Whiten {
		if len(p.ExplainedVariance) != len(p.Components) {
			return fmt.Errorf("%w: pca explained variance width %d, want %d",
				ErrDimensionMismatch, len(p.ExplainedVariance), len(p.Components))
		}
		for i, v := range p.ExplainedVariance {
			if v <= 0 {
				return fmt.Errorf("%w: pca explained variance %d is %v", ErrInvalidModel, i, v)
			}
		}
	}
	return nil
}

// Transform computes (x - mean) · componentsᵀ.
func (p *PCA) Transform(x []float64) ([]float64, error) {
	if len(x) != len(p.Mean) {
		return nil, fmt.Errorf("%w: pca input has %d features, want %d",
			ErrDimensionMismatch, len(x), len(p.Mean))
	}
	out := make([]float64, len(p.Components))
	for j, comp := range p.Components {
		var sum float64
		for i, v := range x {
			sum += (v - p.Mean[i]) * comp[i]
		}
		if p.Whiten {
			sum /= math.Sqrt(p.ExplainedVariance[j])
		}
		out[j] = sum
	}
	return out, nil
}

// KMeans holds fitted cluster centroids.
type KMeans struct {
	Centroids [][]float64 `json:"centroids"`
}

// Width returns the centroid dimension.
func (k *KMeans) Width() int {
	if len(k.Centroids) == 0 {
		return 0
	}
	return len(k.Centroids[0])
}

// Clusters returns the number of centroids.
func (k *KMeans) Clusters() int { return len(k.Centroids) }

// Validate checks that all centroids share one width.
func (k *KMeans) Validate() error {
	if len(k.Centroids) == 0 {
		return fmt.Errorf("%w: kmeans has no centroids", ErrInvalidModel)
	}
	w := len(k.Centroids[0])
	for i, c := range k.Centroids {
		if len(c) != w || w == 0 {
			return fmt.Errorf("%w: kmeans centroid %d has width %d, want %d",
				ErrDimensionMismatch, i, len(c), w)
		}
	}
	return nil
}

// Predict returns the index of the nearest centroid. Ties go to the lowest index.
func (k *KMeans) Predict(x []float64) (int, error) {
	if len(x) != k.Width() {
		return 0, fmt.Errorf("%w: kmeans input has %d features, want %d",
			ErrDimensionMismatch, len(x), k.Width())
	}
	best, bestDist := 0, math.Inf(1)
	for i, c := range k.Centroids {
		var d float64
		for j, v := range x {
			diff := v - c[j]
			d += diff * diff
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, nil
}

// Pipeline chains the three stages with their widths checked up front.
type Pipeline struct {
	pt     *PowerTransformer
	pca    *PCA
	kmeans *KMeans
}

// NewPipeline validates every stage and the widths between them.
func NewPipeline(pt *PowerTransformer, pca *PCA, km *KMeans) (*Pipeline, error) {
	if pt == nil || pca == nil || km == nil {
		return nil, fmt.Errorf("%w: pipeline stage is nil", ErrInvalidModel)
	}
	if err := pt.Validate(); err != nil {
		return nil, err
	}
	if err := pca.Validate(); err != nil {
		return nil, err
	}
	if err := km.Validate(); err != nil {
		return nil, err
	}
	if pca.InputWidth() != pt.Width() {
		return nil, fmt.Errorf("%w: pca expects %d features, power transformer produces %d",
			ErrDimensionMismatch, pca.InputWidth(), pt.Width())
	}
	if km.Width() != pca.OutputWidth() {
		return nil, fmt.Errorf("%w: kmeans centroids have %d dims, pca produces %d",
			ErrDimensionMismatch, km.Width(), pca.OutputWidth())
	}
	return &Pipeline{pt: pt, pca: pca, kmeans: km}, nil
}

// InputWidth returns the feature vector width the pipeline accepts.
func (p *Pipeline) InputWidth() int { return p.pt.Width() }

// Clusters returns the number of segments.
func (p *Pipeline) Clusters() int { return p.kmeans.Clusters() }

// Assign maps a raw feature vector to a segment index in [0, Clusters()).
func (p *Pipeline) Assign(features []float64) (int, error) {
	transformed, err := p.pt.Transform(features)
	if err != nil {
		return 0, err
	}
	projected, err := p.pca.Transform(transformed)
	if err != nil {
		return 0, err
	}
	return p.kmeans.Predict(projected)
}
