// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/orderwise/internal/models"
)

// Key prefixes for BadgerDB storage
const (
	orderKeyPrefix    = "order:"
	customerKeyPrefix = "cust:"
	productKeyPrefix  = "product:"
)

// BadgerStore implements Store on BadgerDB. Each line is stored as JSON
// under its order key, with empty-valued index keys for the customer and
// the product catalog.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a BadgerDB directory.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return openBadger(opts)
}

// OpenBadgerInMemory opens a BadgerDB instance that never touches disk.
func OpenBadgerInMemory() (*BadgerStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*BadgerStore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, models.NewStoreIOError("open", err)
	}
	return &BadgerStore{db: db}, nil
}

func orderKey(k models.OrderKey) []byte {
	return []byte(orderKeyPrefix + k.String())
}

func customerIndexKey(customerID string, k models.OrderKey) []byte {
	return []byte(customerKeyPrefix + customerID + ":" + k.String())
}

func productIndexKey(productID string) []byte {
	return []byte(productKeyPrefix + productID)
}

func (s *BadgerStore) Load(ctx context.Context) ([]models.OrderLine, error) {
	lines := []models.OrderLine{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: true, PrefetchSize: 100})
		defer it.Close()

		prefix := []byte(orderKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var line models.OrderLine
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &line)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			lines = append(lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, models.NewStoreIOError(OpLoad, err)
	}
	return lines, nil
}

func (s *BadgerStore) Exists(ctx context.Context, key models.OrderKey) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(orderKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, models.NewStoreIOError(OpExists, err)
	}
	return found, nil
}

func (s *BadgerStore) OrdersForCustomer(ctx context.Context, customerID string) ([]models.OrderLine, error) {
	lines := []models.OrderLine{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(customerKeyPrefix + customerID + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			orderPart := it.Item().Key()[len(prefix):]
			item, err := txn.Get(append([]byte(orderKeyPrefix), orderPart...))
			if err != nil {
				return fmt.Errorf("resolve index %s: %w", it.Item().Key(), err)
			}
			var line models.OrderLine
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &line)
			}); err != nil {
				return err
			}
			lines = append(lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, models.NewStoreIOError(OpOrdersForCustomer, err)
	}
	return lines, nil
}

// Append checks and writes the key in one transaction. A concurrent writer
// of the same key makes the commit fail with ErrConflict, which is reported
// as a duplicate once the other write is visible.
func (s *BadgerStore) Append(ctx context.Context, line models.OrderLine) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return putLine(txn, line)
	})
	if errors.Is(err, badger.ErrConflict) {
		if exists, existsErr := s.Exists(ctx, line.Key()); existsErr == nil && exists {
			return &models.DuplicateOrderError{Key: line.Key()}
		}
	}
	return models.NewStoreIOError(OpAppend, err)
}

func putLine(txn *badger.Txn, line models.OrderLine) error {
	key := line.Key()
	_, err := txn.Get(orderKey(key))
	if err == nil {
		return &models.DuplicateOrderError{Key: key}
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return err
	}

	data, err := json.Marshal(&line)
	if err != nil {
		return fmt.Errorf("marshal order line: %w", err)
	}
	if err := txn.Set(orderKey(key), data); err != nil {
		return err
	}
	if err := txn.Set(customerIndexKey(line.CustomerID, key), nil); err != nil {
		return err
	}
	return txn.Set(productIndexKey(line.ProductID), nil)
}

// importBatchSize bounds the lines written per transaction so a large seed
// never exceeds Badger's transaction size limit.
const importBatchSize = 500

// Import writes lines in batched transactions, skipping duplicates.
func (s *BadgerStore) Import(ctx context.Context, lines []models.OrderLine) (int, error) {
	inserted := 0
	for start := 0; start < len(lines); start += importBatchSize {
		end := min(start+importBatchSize, len(lines))
		if err := ctx.Err(); err != nil {
			return inserted, models.NewStoreIOError(OpImport, err)
		}

		batchInserted := 0
		err := s.db.Update(func(txn *badger.Txn) error {
			batchInserted = 0
			for i := start; i < end; i++ {
				err := putLine(txn, lines[i])
				switch {
				case err == nil:
					batchInserted++
				case errors.Is(err, models.ErrDuplicateOrder):
				default:
					return err
				}
			}
			return nil
		})
		if err != nil {
			return inserted, models.NewStoreIOError(OpImport, err)
		}
		inserted += batchInserted
	}
	return inserted, nil
}

func (s *BadgerStore) ProductIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(productKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, models.NewStoreIOError(OpProductIDs, err)
	}
	return ids, nil
}

func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(orderKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, models.NewStoreIOError(OpCount, err)
	}
	return n, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
