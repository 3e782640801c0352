// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package recommend

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/orderwise/internal/models"
)

type fakeFeatures map[string][]float64

func (f fakeFeatures) Extract(customerID string) ([]float64, error) {
	v, ok := f[customerID]
	if !ok {
		return nil, &models.CustomerNotFoundError{CustomerID: customerID}
	}
	return v, nil
}

// firstFeatureSegmenter uses the first feature as the cluster id.
type firstFeatureSegmenter struct{}

func (firstFeatureSegmenter) Assign(features []float64) (int, error) {
	return int(features[0]), nil
}

type fakeCatalog struct {
	ids   []string
	calls atomic.Int32
	err   error
}

func (c *fakeCatalog) ProductIDs(_ context.Context) ([]string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return append([]string(nil), c.ids...), nil
}

// tableEstimator scores products from a fixed table, ignoring the customer.
type tableEstimator map[string]float64

func (t tableEstimator) Estimate(_, productID string) float64 { return t[productID] }

func newTestEngine(t *testing.T, cfg Config, catalog *fakeCatalog) *Engine {
	t.Helper()
	features := fakeFeatures{
		"CUST1": {0, 1, 1, 1, 1, 1, 30},
		"CUST2": {1, 1, 1, 1, 1, 1, 40},
		"CUST3": {7, 1, 1, 1, 1, 1, 50},
	}
	estimators := map[int]Estimator{
		0: tableEstimator{
			"Product_1": 4.0, "Product_2": 4.5, "Product_3": 4.0,
			"Product_10": 4.0, "Product_4": 3.0, "Product_5": 2.0, "Product_6": 1.0,
		},
		1: tableEstimator{},
	}
	e, err := NewEngine(cfg, features, firstFeatureSegmenter{}, catalog, estimators)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func defaultCatalog() *fakeCatalog {
	return &fakeCatalog{ids: []string{
		"Product_6", "Product_5", "Product_4", "Product_3", "Product_2", "Product_10", "Product_1",
	}}
}

func TestEngine_RecommendRanksWithTieBreak(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{}, defaultCatalog())

	got, err := e.Recommend(context.Background(), "CUST1", 0)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}

	want := []string{"Product_2", "Product_1", "Product_10", "Product_3", "Product_4"}
	if !reflect.DeepEqual(got.Products, want) {
		t.Errorf("Products = %v, want %v", got.Products, want)
	}
	if got.Cluster != 0 {
		t.Errorf("Cluster = %d, want 0", got.Cluster)
	}
	if len(got.Scores) != len(got.Products) {
		t.Errorf("got %d scores for %d products", len(got.Scores), len(got.Products))
	}
}

func TestEngine_RecommendIsDeterministic(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{}, defaultCatalog())

	first, err := e.Recommend(context.Background(), "CUST2", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	// All scores tie in cluster 1, so order is purely lexicographic.
	want := []string{"Product_1", "Product_10", "Product_2", "Product_3", "Product_4"}
	if !reflect.DeepEqual(first.Products, want) {
		t.Fatalf("Products = %v, want %v", first.Products, want)
	}
	for i := 0; i < 10; i++ {
		again, err := e.Recommend(context.Background(), "CUST2", 5)
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if !reflect.DeepEqual(again.Products, first.Products) {
			t.Fatalf("run %d: Products = %v, want %v", i, again.Products, first.Products)
		}
	}
}

func TestEngine_RecommendErrors(t *testing.T) {
	t.Parallel()

	t.Run("unknown customer", func(t *testing.T) {
		e := newTestEngine(t, Config{}, defaultCatalog())
		got, err := e.Recommend(context.Background(), "CUST404", 5)
		if !errors.Is(err, models.ErrCustomerNotFound) {
			t.Fatalf("error = %v, want ErrCustomerNotFound", err)
		}
		if got != nil {
			t.Errorf("expected no partial result, got %+v", got)
		}
	})

	t.Run("cluster without model", func(t *testing.T) {
		e := newTestEngine(t, Config{}, defaultCatalog())
		_, err := e.Recommend(context.Background(), "CUST3", 5)
		var notFound *models.ModelNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("error = %v, want ModelNotFoundError", err)
		}
		if notFound.ClusterID != 7 {
			t.Errorf("ClusterID = %d, want 7", notFound.ClusterID)
		}
	})

	t.Run("catalog failure", func(t *testing.T) {
		catalog := defaultCatalog()
		catalog.err = &models.StoreIOError{Op: "product_ids", Err: errors.New("disk gone")}
		e := newTestEngine(t, Config{}, catalog)
		_, err := e.Recommend(context.Background(), "CUST1", 5)
		if !errors.Is(err, models.ErrStoreIO) {
			t.Fatalf("error = %v, want ErrStoreIO", err)
		}
		if e.GetStats().Errors != 1 {
			t.Errorf("Errors = %d, want 1", e.GetStats().Errors)
		}
	})
}

func TestEngine_ClampK(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{TopK: 3, MaxK: 4}, defaultCatalog())

	tests := []struct {
		k    int
		want int
	}{
		{0, 3}, {-1, 3}, {2, 2}, {4, 4}, {100, 4},
	}
	for _, tt := range tests {
		got, err := e.Recommend(context.Background(), "CUST1", tt.k)
		if err != nil {
			t.Fatalf("Recommend(k=%d) error = %v", tt.k, err)
		}
		if len(got.Products) != tt.want {
			t.Errorf("Recommend(k=%d) returned %d products, want %d", tt.k, len(got.Products), tt.want)
		}
	}
}

func TestEngine_SmallCatalog(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{}, &fakeCatalog{ids: []string{"Product_2", "Product_1"}})

	got, err := e.Recommend(context.Background(), "CUST1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if want := []string{"Product_2", "Product_1"}; !reflect.DeepEqual(got.Products, want) {
		t.Errorf("Products = %v, want %v", got.Products, want)
	}
}

func TestEngine_CacheAndInvalidate(t *testing.T) {
	t.Parallel()
	catalog := defaultCatalog()
	e := newTestEngine(t, Config{CacheEnabled: true, CacheTTL: time.Minute}, catalog)
	ctx := context.Background()

	first, err := e.Recommend(ctx, "CUST1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	first.Products[0] = "mutated"

	second, err := e.Recommend(ctx, "CUST1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if !second.CacheHit {
		t.Error("second call should be served from cache")
	}
	if second.Products[0] != "Product_2" {
		t.Errorf("cached result was mutated through caller: %v", second.Products)
	}
	if calls := catalog.calls.Load(); calls != 1 {
		t.Errorf("catalog called %d times, want 1", calls)
	}

	if n := e.InvalidateCache(); n != 1 {
		t.Errorf("InvalidateCache() = %d, want 1", n)
	}
	third, err := e.Recommend(ctx, "CUST1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if third.CacheHit {
		t.Error("call after invalidation should miss the cache")
	}

	stats := e.GetStats()
	if stats.Requests != 3 || stats.CacheHits != 1 || stats.CacheMisses != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// gatedCatalog blocks ProductIDs until release is closed.
type gatedCatalog struct {
	mu      sync.Mutex
	ids     []string
	entered chan struct{}
	release chan struct{}
}

func (c *gatedCatalog) ProductIDs(_ context.Context) ([]string, error) {
	select {
	case c.entered <- struct{}{}:
		<-c.release
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...), nil
}

func (c *gatedCatalog) add(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, id)
}

func TestEngine_InvalidationDuringRankIsNotCached(t *testing.T) {
	t.Parallel()
	catalog := &gatedCatalog{
		ids:     []string{"Product_1"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e, err := NewEngine(Config{CacheEnabled: true, CacheTTL: time.Minute},
		fakeFeatures{"CUST1": {0, 1, 1, 1, 1, 1, 30}},
		firstFeatureSegmenter{}, catalog,
		map[int]Estimator{0: tableEstimator{"Product_1": 4, "Product_2": 5}})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	t.Cleanup(e.Close)
	ctx := context.Background()

	done := make(chan *Result)
	go func() {
		r, err := e.Recommend(ctx, "CUST1", 5)
		if err != nil {
			t.Errorf("Recommend() error = %v", err)
		}
		done <- r
	}()

	<-catalog.entered
	catalog.add("Product_2")
	e.InvalidateCache()
	close(catalog.release)

	if stale := <-done; !reflect.DeepEqual(stale.Products, []string{"Product_1"}) {
		t.Fatalf("in-flight ranking = %v, want [Product_1]", stale.Products)
	}

	fresh, err := e.Recommend(ctx, "CUST1", 5)
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if fresh.CacheHit {
		t.Error("result ranked before invalidation was served from cache")
	}
	if want := []string{"Product_2", "Product_1"}; !reflect.DeepEqual(fresh.Products, want) {
		t.Errorf("Recommend() = %v, want %v", fresh.Products, want)
	}
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	t.Parallel()
	if _, err := NewEngine(Config{}, nil, firstFeatureSegmenter{}, defaultCatalog(), nil); err == nil {
		t.Error("expected error for nil feature source")
	}
}

func TestEngine_Clusters(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t, Config{}, defaultCatalog())
	if got := e.Clusters(); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("Clusters() = %v, want [0 1]", got)
	}
}
