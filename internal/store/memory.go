// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/orderwise/internal/models"
)

// MemoryStore keeps order lines in memory. Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	lines      []models.OrderLine
	index      map[models.OrderKey]struct{}
	byCustomer map[string][]int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index:      make(map[models.OrderKey]struct{}),
		byCustomer: make(map[string][]int),
	}
}

func (s *MemoryStore) Load(ctx context.Context) ([]models.OrderLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreIOError(OpLoad, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.OrderLine, len(s.lines))
	copy(out, s.lines)
	return out, nil
}

func (s *MemoryStore) Exists(ctx context.Context, key models.OrderKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, models.NewStoreIOError(OpExists, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.index[key]
	return ok, nil
}

func (s *MemoryStore) OrdersForCustomer(ctx context.Context, customerID string) ([]models.OrderLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreIOError(OpOrdersForCustomer, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.byCustomer[customerID]
	out := make([]models.OrderLine, len(idx))
	for i, j := range idx {
		out[i] = s.lines[j]
	}
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, line models.OrderLine) error {
	if err := ctx.Err(); err != nil {
		return models.NewStoreIOError(OpAppend, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.insertLocked(line) {
		return &models.DuplicateOrderError{Key: line.Key()}
	}
	return nil
}

func (s *MemoryStore) Import(ctx context.Context, lines []models.OrderLine) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, models.NewStoreIOError(OpImport, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for i := range lines {
		if s.insertLocked(lines[i]) {
			inserted++
		}
	}
	return inserted, nil
}

func (s *MemoryStore) insertLocked(line models.OrderLine) bool {
	key := line.Key()
	if _, dup := s.index[key]; dup {
		return false
	}
	s.index[key] = struct{}{}
	s.lines = append(s.lines, line)
	s.byCustomer[line.CustomerID] = append(s.byCustomer[line.CustomerID], len(s.lines)-1)
	return true
}

func (s *MemoryStore) ProductIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, models.NewStoreIOError(OpProductIDs, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for i := range s.lines {
		id := s.lines[i].ProductID
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, models.NewStoreIOError(OpCount, err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines), nil
}

func (s *MemoryStore) Close() error { return nil }
