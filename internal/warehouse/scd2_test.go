//-------------------------------------------------------------------------
//
// pgEdge Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package warehouse

import (
	"testing"
	"time"

	"github.com/pgEdge/pgedge-warehouse/internal/extract"
)

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  WHITE HANGING HEART T-LIGHT HOLDER ", "White Hanging Heart T-Light Holder"},
		{"postage", "Postage"},
		{"CAT BOWL", "Cat Bowl"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeDescription(tt.in); got != tt.want {
			t.Errorf("NormalizeDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsShipping(t *testing.T) {
	tests := []struct {
		desc string
		want bool
	}{
		{"Postage", true},
		{"POSTAGE", true},
		{"Dotcom Postage", true},
		{"Carriage", true},
		{"Next Day Carriage", true},
		{"White Hanging Heart", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsShipping(tt.desc); got != tt.want {
			t.Errorf("IsShipping(%q) = %v, want %v", tt.desc, got, tt.want)
		}
	}
}

func TestProductCandidates(t *testing.T) {
	ts := time.Date(2010, 12, 1, 8, 0, 0, 0, time.UTC)
	rows := []extract.Row{
		{StockCode: "85048", Description: "GLASS BALL", Price: 6.95, InvoiceDate: ts},
		{StockCode: "22350", Description: "CAT BOWL", Price: 2.55, InvoiceDate: ts},
		// Later observation of 85048 wins.
		{StockCode: "85048", Description: "GLASS BALL LARGE", Price: 7.95, InvoiceDate: ts},
		// Zero price and blank descriptions never become candidates.
		{StockCode: "21730", Description: "FREEBIE", Price: 0, InvoiceDate: ts},
		{StockCode: "21731", Description: "   ", Price: 3.25, InvoiceDate: ts},
	}

	cands := ProductCandidates(rows)
	if len(cands) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(cands))
	}

	// Ordered by stock code.
	if cands[0].StockCode != "22350" || cands[1].StockCode != "85048" {
		t.Errorf("Unexpected candidate order: %+v", cands)
	}
	if cands[1].Description != "Glass Ball Large" {
		t.Errorf("Expected latest normalized description, got %q", cands[1].Description)
	}
	if cands[1].Price != 7.95 {
		t.Errorf("Expected latest price 7.95, got %v", cands[1].Price)
	}
}

func TestProductCandidatesShippingFlag(t *testing.T) {
	rows := []extract.Row{
		{StockCode: "POST", Description: "POSTAGE", Price: 18.00},
		{StockCode: "C2", Description: "CARRIAGE", Price: 50.00},
		{StockCode: "85048", Description: "GLASS BALL", Price: 6.95},
	}

	for _, cand := range ProductCandidates(rows) {
		wantShipping := cand.StockCode == "POST" || cand.StockCode == "C2"
		if cand.IsShipping != wantShipping {
			t.Errorf("%s: IsShipping = %v, want %v", cand.StockCode, cand.IsShipping, wantShipping)
		}
	}
}

func TestTransitionNotTracked(t *testing.T) {
	asOf := time.Date(2011, 3, 15, 10, 30, 0, 0, time.UTC)
	cand := ProductCandidate{StockCode: "85048", Description: "Glass Ball", Price: 6.95}

	tr := Transition(nil, cand, asOf)
	if tr.Action != ActionInsert {
		t.Fatalf("Expected ActionInsert, got %v", tr.Action)
	}
	if tr.Closed != nil {
		t.Error("Insert must not close anything")
	}
	if tr.New == nil {
		t.Fatal("Insert must produce a new version")
	}
	if !tr.New.IsCurrent {
		t.Error("New version must be current")
	}
	if tr.New.EndDate != nil {
		t.Error("New version must have no end date")
	}
	wantDate := time.Date(2011, 3, 15, 0, 0, 0, 0, time.UTC)
	if !tr.New.EffectiveDate.Equal(wantDate) {
		t.Errorf("Effective date = %v, want %v", tr.New.EffectiveDate, wantDate)
	}
}

func TestTransitionUnchangedPrice(t *testing.T) {
	asOf := time.Date(2011, 3, 15, 0, 0, 0, 0, time.UTC)
	active := &ProductVersion{
		ID: 7, StockCode: "85048", Price: 6.95, IsCurrent: true,
		EffectiveDate: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	cand := ProductCandidate{StockCode: "85048", Description: "Glass Ball", Price: 6.95}

	tr := Transition(active, cand, asOf)
	if tr.Action != ActionNone {
		t.Fatalf("Expected ActionNone, got %v", tr.Action)
	}
	if tr.New != nil || tr.Closed != nil {
		t.Error("NoOp must produce no writes")
	}
}

func TestTransitionPriceChange(t *testing.T) {
	effective := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := time.Date(2011, 3, 15, 0, 0, 0, 0, time.UTC)
	active := &ProductVersion{
		ID: 7, StockCode: "85048", Description: "Glass Ball",
		Price: 1.00, IsCurrent: true, EffectiveDate: effective,
	}
	cand := ProductCandidate{StockCode: "85048", Description: "Glass Ball", Price: 2.00}

	tr := Transition(active, cand, asOf)
	if tr.Action != ActionCloseAndInsert {
		t.Fatalf("Expected ActionCloseAndInsert, got %v", tr.Action)
	}

	if tr.Closed == nil {
		t.Fatal("Close must produce a closed version")
	}
	if tr.Closed.IsCurrent {
		t.Error("Closed version must not be current")
	}
	if tr.Closed.EndDate == nil {
		t.Fatal("Closed version must have an end date")
	}
	if !tr.Closed.EndDate.Equal(asOf) {
		t.Errorf("End date = %v, want %v", tr.Closed.EndDate, asOf)
	}
	if tr.Closed.EndDate.Before(tr.Closed.EffectiveDate) {
		t.Error("End date must not precede effective date")
	}
	// The original version is untouched; Transition returns a copy.
	if !active.IsCurrent || active.EndDate != nil {
		t.Error("Transition must not mutate the active version")
	}

	if tr.New == nil {
		t.Fatal("Close-and-insert must produce a new version")
	}
	if tr.New.Price != 2.00 {
		t.Errorf("New price = %v, want 2.00", tr.New.Price)
	}
	if !tr.New.IsCurrent {
		t.Error("New version must be current")
	}
	if !tr.New.EffectiveDate.Equal(asOf) {
		t.Errorf("New effective date = %v, want %v", tr.New.EffectiveDate, asOf)
	}
}

func TestTransitionSameDayChange(t *testing.T) {
	// A price change on the version's own effective day still satisfies
	// end date >= effective date.
	day := time.Date(2011, 3, 15, 0, 0, 0, 0, time.UTC)
	active := &ProductVersion{
		ID: 7, StockCode: "85048", Price: 1.00, IsCurrent: true, EffectiveDate: day,
	}
	cand := ProductCandidate{StockCode: "85048", Price: 1.50}

	tr := Transition(active, cand, day)
	if tr.Action != ActionCloseAndInsert {
		t.Fatalf("Expected ActionCloseAndInsert, got %v", tr.Action)
	}
	if tr.Closed.EndDate.Before(tr.Closed.EffectiveDate) {
		t.Error("End date must not precede effective date")
	}
}
