//-------------------------------------------------------------------------
//
// pgEdge Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package warehouse implements the dimensional model: dimension resolution
// with SCD Type 2 product versioning, and fact loading with referential
// integrity enforcement.
package warehouse

import "time"

// DimDate is one calendar date. Natural key: the date itself.
type DimDate struct {
	ID    int64
	Date  time.Time
	Year  int
	Month int
	Day   int
}

// DimCustomer uses the business customer identifier as its surrogate key.
// ID 0 is the reserved anonymous sentinel.
type DimCustomer struct {
	ID   int64
	Name *string
}

// DimCountry is one country name. The table is rebuilt every run, so the
// name only has to be unique within a run.
type DimCountry struct {
	ID   int64
	Name string
}

// ProductVersion is one SCD Type 2 version of a product. For a given stock
// code at most one version is current; a non-current version always has a
// non-nil EndDate on or after its EffectiveDate.
type ProductVersion struct {
	ID            int64
	StockCode     string
	Description   string
	Price         float64
	IsShipping    bool
	EffectiveDate time.Time
	EndDate       *time.Time
	IsCurrent     bool
}

// FactSales is one merchandise sale line, fully surrogate-keyed.
type FactSales struct {
	DateID     int64
	CustomerID int64
	ProductID  int64
	CountryID  int64
	Quantity   int64
	UnitPrice  float64
	Revenue    float64
}

// FactCancellation is one cancelled line with positive magnitudes.
type FactCancellation struct {
	DateID            int64
	CustomerID        int64
	ProductID         int64
	CountryID         int64
	QuantityCancelled int64
	RevenueLost       float64
}

// Lookups are the natural-key to surrogate-key maps produced by dimension
// resolution. They are built once per run and read-only afterwards; the fact
// loader never mutates them. ProductIDs covers current versions only.
type Lookups struct {
	DateIDs     map[time.Time]int64
	CustomerIDs map[int64]struct{}
	ProductIDs  map[string]int64
	CountryIDs  map[string]int64
}

// NewLookups returns an empty lookup set.
func NewLookups() *Lookups {
	return &Lookups{
		DateIDs:     make(map[time.Time]int64),
		CustomerIDs: make(map[int64]struct{}),
		ProductIDs:  make(map[string]int64),
		CountryIDs:  make(map[string]int64),
	}
}

// DateOnly truncates a timestamp to its UTC calendar date, the natural key
// of the date dimension.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
