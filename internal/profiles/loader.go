// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package profiles

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	goexcel "github.com/VantageDataChat/GoExcel"
	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/orderwise/internal/logging"
)

// headerAliases maps normalized header names to profile columns.
var headerAliases = map[string]string{
	"customer_id":        "customer_id",
	"customerid":         "customer_id",
	"total_spend":        "total_spend",
	"purchase_frequency": "purchase_frequency",
	"avg_basket_size":    "avg_basket_size",
	"category_diversity": "category_diversity",
	"cat_diversity":      "category_diversity",
	"recency":            "recency",
	"gap":                "gap",
	"age":                "age",
}

// normalizeHeader turns "Customer ID" into "customer_id".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// Load reads a profile table from a .csv or .xlsx file.
func Load(ctx context.Context, path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return LoadCSV(ctx, path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported profile file %q: want .csv or .xlsx", path)
	}
}

// LoadCSV reads a profile table using DuckDB's CSV reader.
func LoadCSV(ctx context.Context, path string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("profile table: %w", err)
	}

	db, err := sqlx.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf(`SELECT * FROM read_csv('%s', header = true, all_varchar = true)`,
		strings.ReplaceAll(path, "'", "''"))
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var records [][]string
	for rows.Next() {
		raw := make([]sql.NullString, len(header))
		dest := make([]interface{}, len(header))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", path, err)
		}
		record := make([]string, len(header))
		for i, v := range raw {
			record[i] = v.String
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", path, err)
	}

	return fromRecords(header, records)
}

// LoadXLSX reads a profile table from the first sheet of an Excel workbook.
// The first row is the header.
func LoadXLSX(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("profile table: %w", err)
	}
	return parseXLSX(data)
}

func parseXLSX(data []byte) (table *Table, err error) {
	defer func() {
		if r := recover(); r != nil {
			table = nil
			err = fmt.Errorf("parse xlsx: %v", r)
		}
	}()

	reader := goexcel.NewXLSXReader()
	wb, err := reader.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}

	names := wb.GetSheetNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("parse xlsx: workbook has no sheets")
	}
	sheet, err := wb.GetSheetByName(names[0])
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	rows, err := sheet.RowIterator()
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}

	var grid [][]string
	for _, row := range rows {
		var values []string
		for _, cell := range row {
			if cell == nil || cell.IsEmpty() {
				continue
			}
			col := int(cell.Col())
			for len(values) <= col {
				values = append(values, "")
			}
			values[col] = cell.GetFormattedValue()
		}
		grid = append(grid, values)
	}
	if len(grid) == 0 {
		return nil, fmt.Errorf("parse xlsx: sheet %q is empty", names[0])
	}
	return fromRecords(grid[0], grid[1:])
}

// fromRecords builds a table from a header row and string records. Rows
// with a blank customer id are skipped, as are rows with a feature that does
// not parse; those customers are then reported as not found.
func fromRecords(header []string, records [][]string) (*Table, error) {
	index := make(map[string]int)
	for i, h := range header {
		if col, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := index[col]; !dup {
				index[col] = i
			}
		}
	}
	required := append([]string{"customer_id"}, FeatureNames...)
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("profile table is missing column %q", col)
		}
	}

	profiles := make([]Profile, 0, len(records))
	for rowNum, rec := range records {
		get := func(col string) string {
			i := index[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		id := get("customer_id")
		if id == "" {
			continue
		}

		values := make([]float64, len(FeatureNames))
		var badColumn string
		for i, name := range FeatureNames {
			v, err := strconv.ParseFloat(get(name), 64)
			if err != nil {
				badColumn = name
				break
			}
			values[i] = v
		}
		if badColumn != "" {
			logging.Warn().
				Int("row", rowNum+2).
				Str("customer_id", id).
				Str("column", badColumn).
				Msg("Skipping profile row with a non-numeric feature")
			continue
		}
		profiles = append(profiles, Profile{
			CustomerID:        id,
			TotalSpend:        values[0],
			PurchaseFrequency: values[1],
			AvgBasketSize:     values[2],
			CategoryDiversity: values[3],
			Recency:           values[4],
			Gap:               values[5],
			Age:               values[6],
		})
	}
	return NewTable(profiles), nil
}
