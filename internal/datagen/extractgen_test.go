//-------------------------------------------------------------------------
//
// pgEdge Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"bytes"
	"testing"

	"github.com/pgEdge/pgedge-warehouse/internal/extract"
)

func TestExtractGeneratorDeterministic(t *testing.T) {
	var a, b bytes.Buffer

	if err := NewExtractGenerator(42).WriteCSV(&a, 1000); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}
	if err := NewExtractGenerator(42).WriteCSV(&b, 1000); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Error("Same seed must produce identical output")
	}
}

func TestExtractGeneratorRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := NewExtractGenerator(42).WriteCSV(&buf, 5000); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	ex, err := extract.Read(&buf)
	if err != nil {
		t.Fatalf("Generated extract failed to parse: %v", err)
	}

	if len(ex.Rows)+ex.Removed != 5000 {
		t.Errorf("Expected 5000 lines total, got %d rows + %d removed",
			len(ex.Rows), ex.Removed)
	}

	// The generator mixes in non-merchandise codes; the cleaner drops them.
	if ex.Removed == 0 {
		t.Error("Expected some rows removed by the exclusion list")
	}
	for _, row := range ex.Rows {
		if extract.IsExcludedStockCode(row.StockCode) {
			t.Fatalf("Excluded code %q survived cleaning", row.StockCode)
		}
	}

	var anonymous, cancellations, postage int
	for _, row := range ex.Rows {
		if row.CustomerID == extract.AnonymousCustomerID {
			anonymous++
		}
		if row.Quantity < 0 {
			cancellations++
			if row.InvoiceID[0] != 'C' {
				t.Errorf("Cancellation invoice %q should carry the C prefix", row.InvoiceID)
			}
		}
		if row.StockCode == "POST" {
			postage++
		}
	}
	if anonymous == 0 {
		t.Error("Expected some anonymous customers")
	}
	if cancellations == 0 {
		t.Error("Expected some cancellation lines")
	}
	if postage == 0 {
		t.Error("Expected some postage lines")
	}
}
