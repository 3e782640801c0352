// Orderwise - Order Intake and Product Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/orderwise

package profiles

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/tomtom215/orderwise/internal/models"
)

func TestExtractor_FixedColumnOrder(t *testing.T) {
	t.Parallel()

	table := NewTable([]Profile{{
		CustomerID: "CUST1", TotalSpend: 100, PurchaseFrequency: 4, AvgBasketSize: 2.5,
		CategoryDiversity: 3, Recency: 12, Gap: 7, Age: 41,
	}})
	got, err := NewExtractor(table).Extract("CUST1")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := []float64{100, 4, 2.5, 3, 12, 7, 41}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
	if len(got) != FeatureCount || len(FeatureNames) != FeatureCount {
		t.Errorf("feature width mismatch: %d / %d", len(got), len(FeatureNames))
	}
}

func TestExtractor_CustomerNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor(NewTable(nil)).Extract("CUST404")
	if !errors.Is(err, models.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
	var nf *models.CustomerNotFoundError
	if !errors.As(err, &nf) || nf.CustomerID != "CUST404" {
		t.Errorf("unexpected error payload: %v", err)
	}
}

func TestNewTable_FirstRowWins(t *testing.T) {
	t.Parallel()

	table := NewTable([]Profile{
		{CustomerID: "CUST1", Age: 20},
		{CustomerID: "CUST2", Age: 30},
		{CustomerID: "CUST1", Age: 99},
	})
	if table.Len() != 2 {
		t.Fatalf("Len = %d, want 2", table.Len())
	}
	p, _ := table.Get("CUST1")
	if p.Age != 20 {
		t.Errorf("expected first row to win, got age %v", p.Age)
	}
	if ids := table.CustomerIDs(); !reflect.DeepEqual(ids, []string{"CUST1", "CUST2"}) {
		t.Errorf("CustomerIDs = %v", ids)
	}
}

func TestFromRecords_HeaderAliases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		header []string
	}{
		{"dataset headers", []string{"Customer ID", "total_spend", "purchase_frequency", "avg_basket_size", "cat_diversity", "recency", "gap", "age"}},
		{"snake case", []string{"customer_id", "total_spend", "purchase_frequency", "avg_basket_size", "category_diversity", "recency", "gap", "age"}},
		{"shuffled with extras", []string{"age", "gap", "cluster", "Recency", "category_diversity", "avg_basket_size", "purchase_frequency", "Total Spend", "Customer ID"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			values := map[string]string{
				"customer_id": "CUST9", "total_spend": "250.5", "purchase_frequency": "5",
				"avg_basket_size": "1.5", "category_diversity": "2", "recency": "30",
				"gap": "14", "age": "52", "cluster": "3",
			}
			rec := make([]string, len(tt.header))
			for i, h := range tt.header {
				col := headerAliases[normalizeHeader(h)]
				if col == "" {
					col = normalizeHeader(h)
				}
				rec[i] = values[col]
			}

			table, err := fromRecords(tt.header, [][]string{rec})
			if err != nil {
				t.Fatalf("fromRecords: %v", err)
			}
			got, err := NewExtractor(table).Extract("CUST9")
			if err != nil {
				t.Fatal(err)
			}
			want := []float64{250.5, 5, 1.5, 2, 30, 14, 52}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("features = %v, want %v", got, want)
			}
		})
	}
}

func TestFromRecords_Errors(t *testing.T) {
	t.Parallel()

	_, err := fromRecords([]string{"Customer ID", "total_spend"}, nil)
	if err == nil || !strings.Contains(err.Error(), "missing column") {
		t.Errorf("expected missing column error, got %v", err)
	}

	header := []string{"Customer ID", "total_spend", "purchase_frequency", "avg_basket_size", "cat_diversity", "recency", "gap", "age"}
	table, err := fromRecords(header, [][]string{{"", "1", "1", "1", "1", "1", "1", "1"}})
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 0 {
		t.Error("rows without a customer id should be skipped")
	}
}

func TestFromRecords_SkipsUnparsableRows(t *testing.T) {
	t.Parallel()

	header := []string{"Customer ID", "total_spend", "purchase_frequency", "avg_basket_size", "cat_diversity", "recency", "gap", "age"}
	table, err := fromRecords(header, [][]string{
		{"CUST1", "abc", "1", "1", "1", "1", "1", "1"},
		{"CUST2", "10", "1", "1", "1", "1", "", "40"},
		{"CUST3", "10", "1", "1", "1", "1", "1", "40"},
	})
	if err != nil {
		t.Fatalf("fromRecords: %v", err)
	}
	if table.Len() != 1 {
		t.Fatalf("table has %d profiles, want 1", table.Len())
	}

	ex := NewExtractor(table)
	for _, id := range []string{"CUST1", "CUST2"} {
		if _, err := ex.Extract(id); !errors.Is(err, models.ErrCustomerNotFound) {
			t.Errorf("Extract(%s) error = %v, want ErrCustomerNotFound", id, err)
		}
	}
	if _, err := ex.Extract("CUST3"); err != nil {
		t.Errorf("Extract(CUST3) error = %v", err)
	}
}

func TestLoad_RejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	if _, err := Load(t.Context(), "profiles.parquet"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestParseXLSX_RejectsGarbage(t *testing.T) {
	t.Parallel()

	if _, err := parseXLSX([]byte("not a zip archive")); err == nil {
		t.Error("expected error for invalid workbook")
	}
}
