// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/tomtom215/orderwise/internal/logging"
	"github.com/tomtom215/orderwise/internal/models"
)

func init() {
	// sqlx has no built-in bind type for the DuckDB driver.
	sqlx.BindDriver("duckdb", sqlx.QUESTION)
}

// Dialect captures the per-database differences of SQLStore.
type Dialect struct {
	// Name is the backend label used in metrics.
	Name string

	// DriverName is the database/sql driver name.
	DriverName string

	textType   string
	doubleType string

	isUniqueViolation func(error) bool
}

// Supported SQL dialects.
var (
	DuckDB = Dialect{
		Name:       "duckdb",
		DriverName: "duckdb",
		textType:   "VARCHAR",
		doubleType: "DOUBLE",
		isUniqueViolation: func(err error) bool {
			msg := err.Error()
			return strings.Contains(msg, "Constraint Error") && strings.Contains(msg, "Duplicate key")
		},
	}

	Postgres = Dialect{
		Name:       "postgres",
		DriverName: "postgres",
		textType:   "TEXT",
		doubleType: "DOUBLE PRECISION",
		isUniqueViolation: func(err error) bool {
			var pe *pq.Error
			return errors.As(err, &pe) && pe.Code == "23505"
		},
	}

	SQLite = Dialect{
		Name:       "sqlite",
		DriverName: "sqlite3",
		textType:   "TEXT",
		doubleType: "REAL",
		isUniqueViolation: func(err error) bool {
			var se sqlite3.Error
			return errors.As(err, &se) &&
				(se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique)
		},
	}
)

func (d Dialect) createTableSQL() string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS order_lines (
			order_id BIGINT NOT NULL,
			customer_id %[1]s NOT NULL,
			warehouse_id %[1]s NOT NULL,
			customer_age INTEGER NOT NULL,
			customer_gender %[1]s NOT NULL,
			order_date DATE NOT NULL,
			product_id %[1]s NOT NULL,
			sku_id %[1]s NOT NULL,
			category %[1]s NOT NULL,
			quantity INTEGER NOT NULL,
			price_per_unit %[2]s NOT NULL,
			sales %[2]s NOT NULL,
			recency INTEGER NOT NULL,
			order_gap INTEGER NOT NULL,
			PRIMARY KEY (order_id, product_id, sku_id)
		)`, d.textType, d.doubleType)
}

const createCustomerIndexSQL = `CREATE INDEX IF NOT EXISTS idx_order_lines_customer ON order_lines(customer_id)`

const orderColumns = `order_id, customer_id, warehouse_id, customer_age, customer_gender, order_date,
	product_id, sku_id, category, quantity, price_per_unit, sales, recency, order_gap`

const insertOrderSQL = `INSERT INTO order_lines (` + orderColumns + `) VALUES (
	:order_id, :customer_id, :warehouse_id, :customer_age, :customer_gender, :order_date,
	:product_id, :sku_id, :category, :quantity, :price_per_unit, :sales, :recency, :order_gap)`

// SQLStore implements Store on any sqlx-compatible database.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect

	// mirrorPath, when set, receives a full CSV export after every append.
	// Only the DuckDB dialect supports it.
	mirrorPath string
}

// SQLOption configures a SQLStore.
type SQLOption func(*SQLStore)

// WithCSVMirror rewrites the CSV file at path after every append.
func WithCSVMirror(path string) SQLOption {
	return func(s *SQLStore) { s.mirrorPath = path }
}

// OpenSQL opens a database for the dialect and prepares the schema.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string, opts ...SQLOption) (*SQLStore, error) {
	db, err := sqlx.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, models.NewStoreIOError("open", err)
	}
	s, err := NewSQLStore(ctx, db, dialect, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and creates the order_lines table if needed.
func NewSQLStore(ctx context.Context, db *sqlx.DB, dialect Dialect, opts ...SQLOption) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	for _, opt := range opts {
		opt(s)
	}
	if s.mirrorPath != "" && dialect.Name != DuckDB.Name {
		return nil, fmt.Errorf("csv mirror requires the duckdb dialect, got %s", dialect.Name)
	}

	if _, err := db.ExecContext(ctx, dialect.createTableSQL()); err != nil {
		return nil, models.NewStoreIOError("create_table", err)
	}
	if _, err := db.ExecContext(ctx, createCustomerIndexSQL); err != nil {
		return nil, models.NewStoreIOError("create_index", err)
	}
	return s, nil
}

// Dialect returns the store's dialect.
func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Load(ctx context.Context) ([]models.OrderLine, error) {
	lines := []models.OrderLine{}
	query := `SELECT ` + orderColumns + ` FROM order_lines`
	if err := s.db.SelectContext(ctx, &lines, query); err != nil {
		return nil, models.NewStoreIOError(OpLoad, err)
	}
	return lines, nil
}

func (s *SQLStore) Exists(ctx context.Context, key models.OrderKey) (bool, error) {
	return s.exists(ctx, s.db, key)
}

func (s *SQLStore) exists(ctx context.Context, q sqlx.QueryerContext, key models.OrderKey) (bool, error) {
	var n int
	query := s.db.Rebind(`SELECT COUNT(*) FROM order_lines WHERE order_id = ? AND product_id = ? AND sku_id = ?`)
	if err := sqlx.GetContext(ctx, q, &n, query, key.OrderID, key.ProductID, key.SKUID); err != nil {
		return false, models.NewStoreIOError(OpExists, err)
	}
	return n > 0, nil
}

func (s *SQLStore) OrdersForCustomer(ctx context.Context, customerID string) ([]models.OrderLine, error) {
	lines := []models.OrderLine{}
	query := s.db.Rebind(`SELECT ` + orderColumns + ` FROM order_lines WHERE customer_id = ?`)
	if err := s.db.SelectContext(ctx, &lines, query, customerID); err != nil {
		return nil, models.NewStoreIOError(OpOrdersForCustomer, err)
	}
	return lines, nil
}

// Append inserts the line inside a transaction. The primary key rejects a
// concurrent duplicate from another process. With a CSV mirror the table is
// exported to a temporary file before commit, and the file replaces the
// mirror only once the commit succeeds.
func (s *SQLStore) Append(ctx context.Context, line models.OrderLine) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.NewStoreIOError(OpAppend, err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Warn().Err(rbErr).Msg("order store rollback failed")
		}
	}()

	if _, err := tx.NamedExecContext(ctx, insertOrderSQL, &line); err != nil {
		if s.dialect.isUniqueViolation(err) {
			return &models.DuplicateOrderError{Key: line.Key()}
		}
		return models.NewStoreIOError(OpAppend, err)
	}

	var staged string
	if s.mirrorPath != "" {
		staged = s.mirrorPath + ".tmp"
		if err := exportCSV(ctx, tx, staged); err != nil {
			_ = os.Remove(staged)
			return models.NewStoreIOError(OpAppend, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if staged != "" {
			_ = os.Remove(staged)
		}
		return models.NewStoreIOError(OpAppend, err)
	}

	if staged != "" {
		if err := os.Rename(staged, s.mirrorPath); err != nil {
			// The row is committed; only the mirror is behind.
			logging.Error().Err(err).Str("path", s.mirrorPath).Msg("CSV mirror not replaced after append")
		}
	}
	return nil
}

func (s *SQLStore) Import(ctx context.Context, lines []models.OrderLine) (int, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, models.NewStoreIOError(OpImport, err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logging.Warn().Err(rbErr).Msg("order store rollback failed")
		}
	}()

	stmt, err := tx.PrepareNamedContext(ctx, insertOrderSQL+` ON CONFLICT DO NOTHING`)
	if err != nil {
		return 0, models.NewStoreIOError(OpImport, err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range lines {
		res, err := stmt.ExecContext(ctx, &lines[i])
		if err != nil {
			return 0, models.NewStoreIOError(OpImport, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, models.NewStoreIOError(OpImport, err)
	}
	return inserted, nil
}

func (s *SQLStore) ProductIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := s.db.SelectContext(ctx, &ids, `SELECT DISTINCT product_id FROM order_lines ORDER BY product_id`); err != nil {
		return nil, models.NewStoreIOError(OpProductIDs, err)
	}
	return ids, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM order_lines`); err != nil {
		return 0, models.NewStoreIOError(OpCount, err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// exportCSV writes the whole table to path as seen by tx.
func exportCSV(ctx context.Context, tx *sqlx.Tx, path string) error {
	query := fmt.Sprintf(`COPY (SELECT %s FROM order_lines ORDER BY order_id, product_id, sku_id) TO %s (HEADER, DELIMITER ',')`,
		csvSelectList(), quoteLiteral(path))
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}
