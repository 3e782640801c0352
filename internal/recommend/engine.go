// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package recommend ranks catalog products for a customer by routing the
// customer's feature vector through segmentation into the collaborative
// filtering model fitted for that segment.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/orderwise/internal/cache"
	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/metrics"
	"github.com/tomtom215/orderwise/internal/models"
)

// Default limits.
const (
	DefaultTopK = 5
	DefaultMaxK = 50
)

// FeatureSource builds the feature vector for a customer.
type FeatureSource interface {
	Extract(customerID string) ([]float64, error)
}

// Segmenter maps a feature vector to a cluster id.
type Segmenter interface {
	Assign(features []float64) (int, error)
}

// Catalog lists the products that can be recommended.
type Catalog interface {
	ProductIDs(ctx context.Context) ([]string, error)
}

// Config controls ranking limits and result caching.
type Config struct {
	TopK         int
	MaxK         int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// Result is one ranked recommendation list.
type Result struct {
	CustomerID string    `json:"customer_id"`
	Cluster    int       `json:"cluster"`
	Products   []string  `json:"products"`
	Scores     []float64 `json:"scores"`
	CacheHit   bool      `json:"cache_hit"`
}

// Stats are cumulative engine counters.
type Stats struct {
	Requests    int64 `json:"requests"`
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`
	Errors      int64 `json:"errors"`
}

// Engine produces recommendations. The model map is fixed at construction
// and only read afterwards, so the engine is safe for concurrent use.
type Engine struct {
	cfg      Config
	logger   zerolog.Logger
	features FeatureSource
	segments Segmenter
	catalog  Catalog
	models   map[int]Estimator
	cache    *cache.Cache[string, Result]

	// cacheMu orders cache fills against invalidation; generation counts
	// invalidations so a ranking started before one is never cached.
	cacheMu    sync.Mutex
	generation uint64

	requestCount atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	errorCount   atomic.Int64
}

// NewEngine wires the pipeline stages together. models is copied.
func NewEngine(cfg Config, features FeatureSource, segments Segmenter, catalog Catalog, estimators map[int]Estimator) (*Engine, error) {
	if features == nil || segments == nil || catalog == nil {
		return nil, fmt.Errorf("recommend: feature source, segmenter and catalog are required")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	if cfg.MaxK <= 0 {
		cfg.MaxK = DefaultMaxK
	}
	if cfg.TopK > cfg.MaxK {
		cfg.MaxK = cfg.TopK
	}

	fixed := make(map[int]Estimator, len(estimators))
	for id, est := range estimators {
		fixed[id] = est
	}

	e := &Engine{
		cfg:      cfg,
		logger:   logging.WithComponent("recommend"),
		features: features,
		segments: segments,
		catalog:  catalog,
		models:   fixed,
	}
	if cfg.CacheEnabled && cfg.CacheTTL > 0 {
		e.cache = cache.New[string, Result](cfg.CacheTTL)
	}
	return e, nil
}

// Recommend returns the top k products for customerID. A k of zero or less
// uses the configured TopK; larger values are capped at MaxK.
func (e *Engine) Recommend(ctx context.Context, customerID string, k int) (*Result, error) {
	start := time.Now()
	e.requestCount.Add(1)
	k = e.clampK(k)

	key := cacheKey(customerID, k)
	if cached, ok := e.cacheGet(key); ok {
		e.cacheHits.Add(1)
		metrics.RecordRecommendationCacheHit()
		return cached, nil
	}
	e.cacheMisses.Add(1)

	gen := e.cacheGeneration()
	result, err := e.rank(ctx, customerID, k)
	metrics.RecordRecommendation(time.Since(start), err)
	if err != nil {
		e.errorCount.Add(1)
		return nil, err
	}

	e.logger.Info().
		Str("customer_id", customerID).
		Int("cluster", result.Cluster).
		Strs("products", result.Products).
		Dur("duration", time.Since(start)).
		Msg("Recommendation generated")

	e.cacheFill(gen, key, *result)
	return result, nil
}

func (e *Engine) rank(ctx context.Context, customerID string, k int) (*Result, error) {
	features, err := e.features.Extract(customerID)
	if err != nil {
		return nil, fmt.Errorf("extract features: %w", err)
	}

	cluster, err := e.segments.Assign(features)
	if err != nil {
		return nil, fmt.Errorf("assign cluster: %w", err)
	}
	metrics.RecordClusterAssignment(cluster)

	model, ok := e.models[cluster]
	if !ok {
		return nil, &models.ModelNotFoundError{ClusterID: cluster}
	}

	products, err := e.catalog.ProductIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored := make([]scoredProduct, len(products))
	for i, id := range products {
		scored[i] = scoredProduct{id: id, score: model.Estimate(customerID, id)}
	}
	sortScored(scored)

	if k > len(scored) {
		k = len(scored)
	}
	result := &Result{
		CustomerID: customerID,
		Cluster:    cluster,
		Products:   make([]string, k),
		Scores:     make([]float64, k),
	}
	for i := 0; i < k; i++ {
		result.Products[i] = scored[i].id
		result.Scores[i] = scored[i].score
	}
	return result, nil
}

type scoredProduct struct {
	id    string
	score float64
}

// sortScored orders by score descending, then product id ascending.
func sortScored(s []scoredProduct) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		return s[i].id < s[j].id
	})
}

func (e *Engine) clampK(k int) int {
	if k <= 0 {
		return e.cfg.TopK
	}
	if k > e.cfg.MaxK {
		return e.cfg.MaxK
	}
	return k
}

func cacheKey(customerID string, k int) string {
	return fmt.Sprintf("%s:%d", customerID, k)
}

// cacheGet returns a copy; cached slices are never handed out.
func (e *Engine) cacheGet(key string) (*Result, bool) {
	if e.cache == nil {
		return nil, false
	}
	cached, ok := e.cache.Get(key)
	if !ok {
		return nil, false
	}
	out := cloneResult(cached)
	out.CacheHit = true
	return &out, true
}

func cloneResult(r Result) Result {
	r.Products = append([]string(nil), r.Products...)
	r.Scores = append([]float64(nil), r.Scores...)
	return r
}

func (e *Engine) cacheGeneration() uint64 {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	return e.generation
}

// cacheFill stores r unless the cache was invalidated after gen was read.
func (e *Engine) cacheFill(gen uint64, key string, r Result) {
	if e.cache == nil {
		return
	}
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	if gen != e.generation {
		return
	}
	e.cache.Set(key, cloneResult(r))
}

// InvalidateCache drops every cached result. Called after an order is ingested.
// Rankings already in flight are not cached.
func (e *Engine) InvalidateCache() int {
	if e.cache == nil {
		return 0
	}
	e.cacheMu.Lock()
	e.generation++
	n := e.cache.Clear()
	e.cacheMu.Unlock()

	if n > 0 {
		e.logger.Debug().Int("entries", n).Msg("Recommendation cache invalidated")
	}
	return n
}

// Clusters returns the cluster ids that have a model, ascending.
func (e *Engine) Clusters() []int {
	ids := make([]int, 0, len(e.models))
	for id := range e.models {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// GetStats returns cumulative counters.
func (e *Engine) GetStats() Stats {
	return Stats{
		Requests:    e.requestCount.Load(),
		CacheHits:   e.cacheHits.Load(),
		CacheMisses: e.cacheMisses.Load(),
		Errors:      e.errorCount.Load(),
	}
}

// Close releases the result cache.
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}
