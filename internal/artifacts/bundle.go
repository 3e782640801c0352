// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package artifacts

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/models"
	"github.com/tomtom215/orderwise/internal/recommend"
	"github.com/tomtom215/orderwise/internal/segment"
)

// Payload kinds recorded in Metadata.Kind.
const (
	KindPowerTransformer = "power_transformer"
	KindPCA              = "pca"
	KindKMeans           = "kmeans"
	KindFactorModel      = "factor_model"
)

// Bundle is everything the recommendation path needs, loaded once at startup.
type Bundle struct {
	Pipeline *segment.Pipeline
	Models   map[int]recommend.Estimator
	Metadata []Metadata
}

// LoadBundle reads the segmentation stages and one factor model per cluster.
// Any missing, corrupt or inconsistent artifact yields a *models.StartupError.
func LoadBundle(ctx context.Context, dir string, version, clusterCount int) (*Bundle, error) {
	fail := func(err error) (*Bundle, error) {
		return nil, &models.StartupError{Component: "artifacts", Err: err}
	}

	s, err := Open(dir)
	if err != nil {
		return fail(err)
	}

	if version == 0 {
		version, err = completeVersion(s, clusterCount)
		if err != nil {
			return fail(err)
		}
	}

	var (
		pt    segment.PowerTransformer
		pca   segment.PCA
		km    segment.KMeans
		metas []Metadata
	)
	stages := []struct {
		name   string
		target any
	}{
		{NamePowerTransformer, &pt},
		{NamePCA, &pca},
		{NameKMeans, &km},
	}
	for _, st := range stages {
		meta, err := s.Load(ctx, st.name, version, st.target)
		if err != nil {
			return fail(fmt.Errorf("load %s: %w", st.name, err))
		}
		metas = append(metas, *meta)
	}

	pipeline, err := segment.NewPipeline(&pt, &pca, &km)
	if err != nil {
		return fail(err)
	}
	if pipeline.Clusters() != clusterCount {
		return fail(fmt.Errorf("kmeans has %d clusters, configured cluster count is %d",
			pipeline.Clusters(), clusterCount))
	}

	estimators := make(map[int]recommend.Estimator, clusterCount)
	for i := 0; i < clusterCount; i++ {
		name := ClusterModelName(i)
		var fm recommend.FactorModel
		meta, err := s.Load(ctx, name, version, &fm)
		if err != nil {
			return fail(fmt.Errorf("load %s: %w", name, err))
		}
		if err := fm.Validate(); err != nil {
			return fail(fmt.Errorf("%s: %w", name, err))
		}
		estimators[i] = &fm
		metas = append(metas, *meta)
	}

	logging.Info().
		Str("dir", dir).
		Int("clusters", clusterCount).
		Int("artifacts", len(metas)).
		Msg("Model artifacts loaded")

	return &Bundle{Pipeline: pipeline, Models: estimators, Metadata: metas}, nil
}

// completeVersion returns the newest version for which every stage and
// every cluster model is stored, so one bundle never mixes versions.
func completeVersion(s *Store, clusterCount int) (int, error) {
	names := []string{NamePowerTransformer, NamePCA, NameKMeans}
	for i := 0; i < clusterCount; i++ {
		names = append(names, ClusterModelName(i))
	}

	candidates, err := s.Versions(NameKMeans)
	if err != nil {
		return 0, err
	}
	for _, v := range candidates {
		complete := true
		for _, name := range names {
			if !s.Has(name, v) {
				complete = false
				break
			}
		}
		if complete {
			for _, name := range names {
				if latest, _ := s.LatestVersion(name); latest > v {
					logging.Warn().Str("artifact", name).Int("version", v).Int("newest", latest).
						Msg("Newer artifact set is incomplete, loading the newest complete version")
					break
				}
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: no version has a complete artifact set for %d clusters", ErrNotFound, clusterCount)
}

// Export is the JSON interchange form of a fitted model set. Fitting happens
// offline; this is how its parameters reach the artifact store.
type Export struct {
	PowerTransformer *segment.PowerTransformer         `json:"power_transformer"`
	PCA              *segment.PCA                      `json:"pca"`
	KMeans           *segment.KMeans                   `json:"kmeans"`
	ClusterModels    map[string]*recommend.FactorModel `json:"cf_models"`
}

// DecodeExport parses and validates an Export. Cluster model keys must be the
// integers 0..n-1 where n is the number of KMeans centroids.
func DecodeExport(r io.Reader) (*Export, map[int]*recommend.FactorModel, error) {
	var exp Export
	if err := json.NewDecoder(r).Decode(&exp); err != nil {
		return nil, nil, fmt.Errorf("decode export: %w", err)
	}
	if _, err := segment.NewPipeline(exp.PowerTransformer, exp.PCA, exp.KMeans); err != nil {
		return nil, nil, err
	}

	clusters := exp.KMeans.Clusters()
	byCluster := make(map[int]*recommend.FactorModel, len(exp.ClusterModels))
	for key, fm := range exp.ClusterModels {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 || id >= clusters {
			return nil, nil, fmt.Errorf("cf_models key %q is not a cluster id in [0, %d)", key, clusters)
		}
		if fm == nil {
			return nil, nil, fmt.Errorf("cf_models[%s] is null", key)
		}
		fm.ApplyDefaultRange()
		if err := fm.Validate(); err != nil {
			return nil, nil, fmt.Errorf("cf_models[%s]: %w", key, err)
		}
		byCluster[id] = fm
	}
	for i := 0; i < clusters; i++ {
		if _, ok := byCluster[i]; !ok {
			return nil, nil, fmt.Errorf("cf_models has no entry for cluster %d", i)
		}
	}
	return &exp, byCluster, nil
}

// Import validates an exported model set and writes every artifact at version.
func Import(ctx context.Context, s *Store, r io.Reader, version int) ([]Metadata, error) {
	exp, byCluster, err := DecodeExport(r)
	if err != nil {
		return nil, err
	}

	type item struct {
		name, kind string
		data       any
	}
	items := []item{
		{NamePowerTransformer, KindPowerTransformer, exp.PowerTransformer},
		{NamePCA, KindPCA, exp.PCA},
		{NameKMeans, KindKMeans, exp.KMeans},
	}
	for i := 0; i < len(byCluster); i++ {
		items = append(items, item{ClusterModelName(i), KindFactorModel, byCluster[i]})
	}

	out := make([]Metadata, 0, len(items))
	for _, it := range items {
		meta, err := s.Save(ctx, it.name, version, it.kind, it.data)
		if err != nil {
			return out, err
		}
		out = append(out, *meta)
	}
	return out, nil
}
