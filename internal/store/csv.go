// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/orderwise/internal/models"
)

// csvColumn maps a dataset header to its table column. cast converts the
// all_varchar CSV value ({} is the quoted header) into the column type.
type csvColumn struct {
	header string
	column string
	cast   string
}

var csvColumns = []csvColumn{
	{"Order ID", "order_id", "CAST(CAST({} AS DOUBLE) AS BIGINT)"},
	{"Customer ID", "customer_id", "COALESCE(TRIM({}), '')"},
	{"Warehouse ID", "warehouse_id", "COALESCE(TRIM({}), '')"},
	{"Customer Age", "customer_age", "CAST(CAST({} AS DOUBLE) AS INTEGER)"},
	{"Customer Gender", "customer_gender", "COALESCE({}, '')"},
	{"Date", "order_date", "CAST(CAST({} AS TIMESTAMP) AS DATE)"},
	{"Product ID", "product_id", "COALESCE(TRIM({}), '')"},
	{"SKU ID", "sku_id", "COALESCE(TRIM({}), '')"},
	{"Category", "category", "COALESCE({}, '')"},
	{"Quantity", "quantity", "CAST(CAST({} AS DOUBLE) AS INTEGER)"},
	{"Price per Unit", "price_per_unit", "CAST({} AS DOUBLE)"},
	{"Sales", "sales", "CAST({} AS DOUBLE)"},
	{"Recency", "recency", "CAST(CAST({} AS DOUBLE) AS INTEGER)"},
	{"Order Gap", "order_gap", "COALESCE(CAST(CAST({} AS DOUBLE) AS INTEGER), 0)"},
}

// csvSelectList selects table columns under their dataset headers.
func csvSelectList() string {
	parts := make([]string, len(csvColumns))
	for i, c := range csvColumns {
		parts[i] = fmt.Sprintf("%s AS %s", c.column, quoteIdent(c.header))
	}
	return strings.Join(parts, ", ")
}

// csvReadList selects dataset headers cast to table columns.
func csvReadList() string {
	parts := make([]string, len(csvColumns))
	for i, c := range csvColumns {
		expr := strings.ReplaceAll(c.cast, "{}", quoteIdent(c.header))
		parts[i] = fmt.Sprintf("%s AS %s", expr, c.column)
	}
	return strings.Join(parts, ", ")
}

// ReadCSV loads an order dataset using DuckDB's CSV reader. A missing file
// yields an empty table. Dates are normalized to calendar days.
func ReadCSV(ctx context.Context, path string) ([]models.OrderLine, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []models.OrderLine{}, nil
		}
		return nil, models.NewStoreIOError(OpLoad, err)
	}

	db, err := sqlx.Open("duckdb", "")
	if err != nil {
		return nil, models.NewStoreIOError(OpLoad, err)
	}
	defer db.Close()

	query := fmt.Sprintf(`SELECT %s FROM read_csv(%s, header = true, all_varchar = true)`,
		csvReadList(), quoteLiteral(path))

	lines := []models.OrderLine{}
	if err := db.SelectContext(ctx, &lines, query); err != nil {
		return nil, models.NewStoreIOError(OpLoad, fmt.Errorf("read %s: %w", path, err))
	}
	return lines, nil
}

// Seed imports the CSV dataset into s when s is empty. It returns the number
// of lines imported.
func Seed(ctx context.Context, s Store, csvPath string) (int, error) {
	if csvPath == "" {
		return 0, nil
	}
	n, err := s.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	lines, err := ReadCSV(ctx, csvPath)
	if err != nil {
		return 0, err
	}
	return s.Import(ctx, lines)
}

// ExportFile writes lines to path in dataset column order. The format
// follows the extension: .parquet or .csv.
func ExportFile(ctx context.Context, lines []models.OrderLine, path string) error {
	var format string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		format = "(HEADER, DELIMITER ',')"
	case ".parquet":
		format = "(FORMAT parquet)"
	default:
		return fmt.Errorf("unsupported export file %q: want .csv or .parquet", path)
	}

	scratch, err := OpenSQL(ctx, DuckDB, "")
	if err != nil {
		return err
	}
	defer scratch.Close()

	if _, err := scratch.Import(ctx, lines); err != nil {
		return err
	}
	query := fmt.Sprintf(`COPY (SELECT %s FROM order_lines ORDER BY order_id, product_id, sku_id) TO %s %s`,
		csvSelectList(), quoteLiteral(path), format)
	if _, err := scratch.db.ExecContext(ctx, query); err != nil {
		return models.NewStoreIOError("export", err)
	}
	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
