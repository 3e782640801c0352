// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/orderwise/internal/models"
)

// newMockSQLStore returns a postgres-dialect SQLStore over sqlmock with the
// schema statements already expected.
func newMockSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS order_lines")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(createCustomerIndexSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := NewSQLStore(context.Background(), sqlx.NewDb(db, "postgres"), Postgres)
	require.NoError(t, err)
	return s, mock
}

var orderColumnNames = []string{
	"order_id", "customer_id", "warehouse_id", "customer_age", "customer_gender", "order_date",
	"product_id", "sku_id", "category", "quantity", "price_per_unit", "sales", "recency", "order_gap",
}

func TestSQLStore_Exists_UsesDollarPlaceholders(t *testing.T) {
	s, mock := newMockSQLStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM order_lines WHERE order_id = $1 AND product_id = $2 AND sku_id = $3`)).
		WithArgs(10, "Product_1", "SKU_2").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	ok, err := s.Exists(context.Background(), models.OrderKey{OrderID: 10, ProductID: "Product_1", SKUID: "SKU_2"})
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_OrdersForCustomer(t *testing.T) {
	s, mock := newMockSQLStore(t)
	d := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(orderColumnNames).
		AddRow(1, "CUST7", "WH1", 30, "Male", d, "Product_1", "SKU_1", "Toys", 2, 4.0, 8.0, 12, 0).
		AddRow(2, "CUST7", "WH2", 30, "Male", d.AddDate(0, 0, 5), "Product_2", "SKU_3", "Toys", 1, 9.5, 9.5, 7, 5)
	mock.ExpectQuery(`SELECT .+ FROM order_lines WHERE customer_id = \$1`).
		WithArgs("CUST7").
		WillReturnRows(rows)

	lines, err := s.OrdersForCustomer(context.Background(), "CUST7")
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "2024-03-14", lines[1].OrderDate.String())
	assert.Equal(t, 5, lines[1].OrderGap)
	assert.InDelta(t, 9.5, lines[1].Sales, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Append_UniqueViolationIsDuplicate(t *testing.T) {
	s, mock := newMockSQLStore(t)
	line := testLine(3, "CUST1", "Product_1", "SKU_1", models.NewDate(2024, 1, 1))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_lines")).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := s.Append(context.Background(), line)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrDuplicateOrder))
	assert.False(t, errors.Is(err, models.ErrStoreIO))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Append_Commits(t *testing.T) {
	s, mock := newMockSQLStore(t)
	line := testLine(4, "CUST1", "Product_1", "SKU_1", models.NewDate(2024, 1, 1))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_lines")).
		WithArgs(4, "CUST1", "WH1", 40, "Female", sqlmock.AnyArg(), "Product_1", "SKU_1", "Grocery", 2, 3.5, 7.0, 10, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Append(context.Background(), line))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Append_IOErrorIsWrapped(t *testing.T) {
	s, mock := newMockSQLStore(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	err := s.Append(context.Background(), testLine(1, "CUST1", "Product_1", "SKU_1", models.NewDate(2024, 1, 1)))
	var sio *models.StoreIOError
	require.ErrorAs(t, err, &sio)
	assert.Equal(t, OpAppend, sio.Op)
}

// newMockMirrorStore returns a duckdb-dialect SQLStore over sqlmock with a
// CSV mirror at path.
func newMockMirrorStore(t *testing.T, path string) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS order_lines")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(createCustomerIndexSQL)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := NewSQLStore(context.Background(), sqlx.NewDb(db, "duckdb"), DuckDB, WithCSVMirror(path))
	require.NoError(t, err)
	return s, mock
}

func TestSQLStore_Append_MirrorReplacedOnlyAfterCommit(t *testing.T) {
	tests := []struct {
		name      string
		commitErr error
		want      string
	}{
		{name: "commit succeeds", want: "exported"},
		{name: "commit fails", commitErr: errors.New("disk full"), want: "previous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "merged.csv")
			require.NoError(t, os.WriteFile(path, []byte("previous"), 0o600))
			s, mock := newMockMirrorStore(t, path)

			// Stands in for the file COPY writes inside the transaction.
			require.NoError(t, os.WriteFile(path+".tmp", []byte("exported"), 0o600))

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta("INSERT INTO order_lines")).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectExec(regexp.QuoteMeta("COPY (SELECT")).
				WillReturnResult(sqlmock.NewResult(0, 0))
			commit := mock.ExpectCommit()
			if tt.commitErr != nil {
				commit.WillReturnError(tt.commitErr)
			}

			err := s.Append(context.Background(), testLine(5, "CUST1", "Product_1", "SKU_1", models.NewDate(2024, 1, 1)))
			if tt.commitErr != nil {
				assert.True(t, errors.Is(err, models.ErrStoreIO))
			} else {
				require.NoError(t, err)
			}

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))
			_, err = os.Stat(path + ".tmp")
			assert.True(t, os.IsNotExist(err), "staged export must not be left behind")
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSQLStore_ProductIDsAndCount(t *testing.T) {
	s, mock := newMockSQLStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT DISTINCT product_id FROM order_lines ORDER BY product_id`)).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow("Product_1").AddRow("Product_4"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM order_lines`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))

	ids, err := s.ProductIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Product_1", "Product_4"}, ids)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSQLStore_MirrorRequiresDuckDB(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = NewSQLStore(context.Background(), sqlx.NewDb(db, "postgres"), Postgres, WithCSVMirror("/tmp/x.csv"))
	require.Error(t, err)
}

func TestDialect_UniqueViolationDetection(t *testing.T) {
	assert.True(t, Postgres.isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, Postgres.isUniqueViolation(&pq.Error{Code: "42P01"}))
	assert.True(t, DuckDB.isUniqueViolation(errors.New(`Constraint Error: Duplicate key "order_id: 1" violates primary key constraint`)))
	assert.False(t, SQLite.isUniqueViolation(errors.New("disk I/O error")))
}

func TestCSVSelectLists(t *testing.T) {
	sel := csvSelectList()
	assert.Contains(t, sel, `order_id AS "Order ID"`)
	assert.Contains(t, sel, `price_per_unit AS "Price per Unit"`)

	read := csvReadList()
	assert.Contains(t, read, `CAST(CAST("Date" AS TIMESTAMP) AS DATE) AS order_date`)
	assert.Equal(t, `'it''s.csv'`, quoteLiteral("it's.csv"))
}

func TestReadCSV_MissingFileIsEmpty(t *testing.T) {
	lines, err := ReadCSV(context.Background(), t.TempDir()+"/absent.csv")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestSeed_SkipsNonEmptyStore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, testLine(1, "CUST1", "Product_1", "SKU_1", models.NewDate(2024, 1, 1))))

	n, err := Seed(ctx, s, "/nonexistent/should/not/be/read.csv")
	require.NoError(t, err)
	assert.Zero(t, n)
}
