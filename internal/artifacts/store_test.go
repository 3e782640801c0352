// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tomtom215/orderwise/internal/segment"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T) string
		wantErr bool
	}{
		{
			name:    "existing directory",
			setup:   func(t *testing.T) string { return t.TempDir() },
			wantErr: false,
		},
		{
			name:    "missing directory",
			setup:   func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing") },
			wantErr: true,
		},
		{
			name: "file instead of directory",
			setup: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "file")
				if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
					t.Fatal(err)
				}
				return p
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.setup(t))
			if (err != nil) != tt.wantErr {
				t.Errorf("Open() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreate_MakesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models", "nested")
	if _, err := Create(dir); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	s, err := Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	ctx := context.Background()

	km := segment.KMeans{Centroids: [][]float64{{0, 0}, {1, 1}}}
	meta, err := s.Save(ctx, NameKMeans, 1, KindKMeans, &km)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if meta.Checksum == "" || meta.SizeBytes == 0 {
		t.Errorf("metadata not populated: %+v", meta)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "kmeans_v1.gob.gz")); err != nil {
		t.Errorf("expected artifact file on disk: %v", err)
	}

	var loaded segment.KMeans
	got, err := s.Load(ctx, NameKMeans, 0, &loaded)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Version != 1 || got.Kind != KindKMeans {
		t.Errorf("unexpected metadata %+v", got)
	}
	if !reflect.DeepEqual(loaded, km) {
		t.Errorf("loaded %+v, want %+v", loaded, km)
	}
}

func TestStore_LatestVersionSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Create(dir)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for v := 1; v <= 3; v++ {
		km := segment.KMeans{Centroids: [][]float64{{float64(v)}}}
		if _, err := s.Save(ctx, NameKMeans, v, KindKMeans, &km); err != nil {
			t.Fatal(err)
		}
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := reopened.LatestVersion(NameKMeans); !ok || v != 3 {
		t.Fatalf("LatestVersion() = %d, %v; want 3, true", v, ok)
	}

	var km segment.KMeans
	if _, err := reopened.Load(ctx, NameKMeans, 2, &km); err != nil {
		t.Fatalf("Load(v2) error = %v", err)
	}
	if km.Centroids[0][0] != 2 {
		t.Errorf("loaded wrong version: %+v", km)
	}
}

func TestStore_LoadErrors(t *testing.T) {
	s, err := Create(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	var km segment.KMeans
	if _, err := s.Load(ctx, NameKMeans, 0, &km); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(latest) on empty store: got %v, want ErrNotFound", err)
	}
	if _, err := s.Load(ctx, NameKMeans, 4, &km); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(v4) on empty store: got %v, want ErrNotFound", err)
	}

	path := filepath.Join(s.Dir(), "kmeans_v1.gob.gz")
	if err := os.WriteFile(path, []byte("not a gob"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(ctx, NameKMeans, 1, &km); err == nil {
		t.Error("expected error loading corrupt file")
	}
}

func TestStore_ListAndPrune(t *testing.T) {
	s, err := Create(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for v := 1; v <= 4; v++ {
		km := segment.KMeans{Centroids: [][]float64{{1}}}
		if _, err := s.Save(ctx, NameKMeans, v, KindKMeans, &km); err != nil {
			t.Fatal(err)
		}
	}
	pca := segment.PCA{Mean: []float64{0}, Components: [][]float64{{1}}}
	if _, err := s.Save(ctx, NamePCA, 1, KindPCA, &pca); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != NameKMeans || list[0].Version != 4 || list[1].Name != NamePCA {
		t.Errorf("unexpected list %+v", list)
	}

	removed, err := s.Prune(ctx, NameKMeans, 2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Prune() removed %d, want 2", removed)
	}
	var km segment.KMeans
	if _, err := s.Load(ctx, NameKMeans, 1, &km); !errors.Is(err, ErrNotFound) {
		t.Errorf("pruned version still loadable: %v", err)
	}
	if _, err := s.Load(ctx, NameKMeans, 3, &km); err != nil {
		t.Errorf("kept version not loadable: %v", err)
	}
}

func TestParseFilename(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		version int
		ok      bool
	}{
		{"pca_v1.gob.gz", "pca", 1, true},
		{"cf_cluster_3_v12.gob.gz", "cf_cluster_3", 12, true},
		{"power_transformer_v2.gob.gz", "power_transformer", 2, true},
		{"pca_v0.gob.gz", "", 0, false},
		{"pca.gob.gz", "", 0, false},
		{"pca_v1.gob.gz.tmp", "", 0, false},
		{"_v1.gob.gz", "", 0, false},
		{"readme.txt", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, version, ok := parseFilename(tt.in)
			if name != tt.name || version != tt.version || ok != tt.ok {
				t.Errorf("parseFilename(%q) = (%q, %d, %v), want (%q, %d, %v)",
					tt.in, name, version, ok, tt.name, tt.version, tt.ok)
			}
		})
	}
}
