// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

// Package artifacts persists the fitted segmentation stages and per-cluster
// factor models.
//
// # Storage Format
//
// Each artifact is one file named {name}_v{version}.gob.gz. The file holds a
// gob-encoded envelope with metadata and the gzip-compressed gob payload.
// The SHA-256 checksum of the uncompressed payload is verified on load.
package artifacts

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Artifact names.
const (
	NamePowerTransformer = "power_transformer"
	NamePCA              = "pca"
	NameKMeans           = "kmeans"
	clusterPrefix        = "cf_cluster_"

	fileSuffix = ".gob.gz"
)

// ErrNotFound is returned when no artifact exists for a name.
var ErrNotFound = errors.New("artifact not found")

// ClusterModelName returns the artifact name of the factor model for cluster i.
func ClusterModelName(i int) string {
	return clusterPrefix + strconv.Itoa(i)
}

// Metadata describes one stored artifact.
type Metadata struct {
	// Name is the artifact name (e.g. "pca", "cf_cluster_0").
	Name string `json:"name"`

	// Version is the artifact version (monotonically increasing).
	Version int `json:"version"`

	// Kind is the payload type, e.g. "kmeans" or "factor_model".
	Kind string `json:"kind"`

	// SavedAt is when the artifact was written.
	SavedAt time.Time `json:"saved_at"`

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`
}

// Store reads and writes versioned artifacts in one directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// latest version per artifact name
	versions map[string]int
}

// Open opens an existing artifact directory.
func Open(baseDir string) (*Store, error) {
	info, err := os.Stat(baseDir)
	if err != nil {
		return nil, fmt.Errorf("open artifact directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open artifact directory: %s is not a directory", baseDir)
	}
	return newStore(baseDir)
}

// Create opens baseDir, creating it if needed.
func Create(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	return newStore(baseDir)
}

func newStore(baseDir string) (*Store, error) {
	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan artifacts: %w", err)
	}
	return s, nil
}

func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseFilename(entry.Name())
		if !ok {
			continue
		}
		if current, seen := s.versions[name]; !seen || version > current {
			s.versions[name] = version
		}
	}
	return nil
}

// parseFilename splits "pca_v3.gob.gz" into ("pca", 3).
func parseFilename(filename string) (string, int, bool) {
	base, ok := strings.CutSuffix(filename, fileSuffix)
	if !ok {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version < 1 {
		return "", 0, false
	}
	return base[:idx], version, true
}

// envelope is the on-disk format.
type envelope struct {
	Metadata       Metadata
	CompressedData []byte
}

// Save writes data as version of name. The file is written to a temporary
// path and renamed into place.
func (s *Store) Save(ctx context.Context, name string, version int, kind string, data any) (*Metadata, error) {
	if version < 1 {
		return nil, fmt.Errorf("save %s: version must be >= 1, got %d", name, version)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}

	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress %s: %w", name, err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	meta := Metadata{
		Name:      name,
		Version:   version,
		Kind:      kind,
		SavedAt:   time.Now().UTC(),
		Checksum:  hex.EncodeToString(hash[:]),
		SizeBytes: int64(compressed.Len()),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(name, version)
	tmp := path + ".tmp"
	f, err := os.Create(tmp) //nolint:gosec // path is built from the store directory and artifact name
	if err != nil {
		return nil, fmt.Errorf("create artifact file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(envelope{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("write artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("close artifact file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("install artifact file: %w", err)
	}

	if current, ok := s.versions[name]; !ok || version > current {
		s.versions[name] = version
	}
	return &meta, nil
}

// Load decodes an artifact into target. A version of 0 loads the latest.
func (s *Store) Load(ctx context.Context, name string, version int, target any) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		latest, ok := s.versions[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		version = latest
	}

	env, err := readEnvelope(s.path(name, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s_v%d", ErrNotFound, name, version)
		}
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(env.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress %s: %w", name, err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != env.Metadata.Checksum {
		return nil, fmt.Errorf("%s: checksum mismatch: expected %s, got %s", name, env.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return &env.Metadata, nil
}

func readEnvelope(path string) (*envelope, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the store directory and artifact name
	if err != nil {
		return nil, fmt.Errorf("open artifact file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	var env envelope
	if err := gob.NewDecoder(f).Decode(&env); err != nil {
		return nil, fmt.Errorf("read artifact file %s: %w", filepath.Base(path), err)
	}
	return &env, nil
}

// LatestVersion returns the newest stored version of name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	version, ok := s.versions[name]
	return version, ok
}

// Versions returns every stored version of name, newest first.
func (s *Store) Versions(name string) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versionsOf(name)
}

func (s *Store) versionsOf(name string) ([]int, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, v, ok := parseFilename(entry.Name())
		if ok && n == name {
			versions = append(versions, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))
	return versions, nil
}

// Has reports whether version of name is stored.
func (s *Store) Has(name string, version int) bool {
	_, err := os.Stat(s.path(name, version))
	return err == nil
}

// List returns metadata for the latest version of every artifact, sorted by name.
func (s *Store) List(ctx context.Context) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Metadata, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		env, err := readEnvelope(s.path(name, s.versions[name]))
		if err != nil {
			return nil, err
		}
		out = append(out, env.Metadata)
	}
	return out, nil
}

// Prune removes old versions of name, keeping the newest keep versions.
// It returns the number of files removed.
func (s *Store) Prune(ctx context.Context, name string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	versions, err := s.versionsOf(name)
	if err != nil {
		return 0, err
	}

	removed := 0
	for i := keep; i < len(versions); i++ {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if err := os.Remove(s.path(name, versions[i])); err != nil {
			return removed, fmt.Errorf("remove %s_v%d: %w", name, versions[i], err)
		}
		removed++
	}
	return removed, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string { return s.baseDir }

func (s *Store) path(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, fileSuffix))
}
