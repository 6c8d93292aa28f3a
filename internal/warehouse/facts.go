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
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pgEdge/pgedge-warehouse/internal/extract"
	"github.com/pgEdge/pgedge-warehouse/internal/logging"
)

// RejectReason classifies why a row produced no fact row. Each reason has
// its own counter; rejection never aborts the run.
type RejectReason int

const (
	Accepted RejectReason = iota
	RejectZeroQuantity
	RejectNonPositivePrice
	RejectUnknownStockCode

	// RoutedCancellation is not a failure: the row has negative quantity
	// and belongs to the cancellation load, not the sales load.
	RoutedCancellation
)

func (r RejectReason) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case RejectZeroQuantity:
		return "zero_quantity"
	case RejectNonPositivePrice:
		return "non_positive_price"
	case RejectUnknownStockCode:
		return "unknown_stockcode"
	case RoutedCancellation:
		return "routed_cancellation"
	default:
		return "unknown"
	}
}

var factSalesColumns = []string{
	"dateid_fk", "customerid_fk", "productid_fk", "countryid_fk",
	"quantity", "unitprice", "revenue",
}

var factCancellationColumns = []string{
	"dateid_fk", "customerid_fk", "productid_fk", "countryid_fk",
	"quantity_cancelled", "revenue_lost",
}

// ResolveSale validates one cleaned row and resolves it into a fully-keyed
// sales fact. Checks short-circuit in order: zero quantity, non-positive
// price, unresolved stock code. A negative quantity at a valid price is not
// a sale; it is routed to the cancellation load. The price check comes first
// so a badly-priced return is rejected here rather than routed to a phase
// that would drop it uncounted. A customer id absent from the dimension
// falls back to the anonymous sentinel.
func ResolveSale(row extract.Row, lookups *Lookups) (FactSales, RejectReason) {
	if row.Quantity == 0 {
		return FactSales{}, RejectZeroQuantity
	}
	if row.Price <= 0 {
		return FactSales{}, RejectNonPositivePrice
	}
	if row.Quantity < 0 {
		return FactSales{}, RoutedCancellation
	}
	productID, ok := lookups.ProductIDs[row.StockCode]
	if !ok {
		return FactSales{}, RejectUnknownStockCode
	}

	return FactSales{
		DateID:     lookups.DateIDs[DateOnly(row.InvoiceDate)],
		CustomerID: resolveCustomer(row.CustomerID, lookups),
		ProductID:  productID,
		CountryID:  lookups.CountryIDs[row.Country],
		Quantity:   row.Quantity,
		UnitPrice:  row.Price,
		Revenue:    float64(row.Quantity) * row.Price,
	}, Accepted
}

// IsCancellation reports whether a cleaned row is a cancellation candidate:
// strictly negative quantity at a strictly positive price.
func IsCancellation(row extract.Row) bool {
	return row.Quantity < 0 && row.Price > 0
}

// ResolveCancellation resolves a cancellation candidate into a cancellation
// fact with positive magnitudes. Only the stock code rule applies here; the
// quantity is negative by definition and the price already checked.
func ResolveCancellation(row extract.Row, lookups *Lookups) (FactCancellation, RejectReason) {
	productID, ok := lookups.ProductIDs[row.StockCode]
	if !ok {
		return FactCancellation{}, RejectUnknownStockCode
	}

	qty := row.Quantity
	if qty < 0 {
		qty = -qty
	}
	revenue := float64(row.Quantity) * row.Price
	if revenue < 0 {
		revenue = -revenue
	}

	return FactCancellation{
		DateID:            lookups.DateIDs[DateOnly(row.InvoiceDate)],
		CustomerID:        resolveCustomer(row.CustomerID, lookups),
		ProductID:         productID,
		CountryID:         lookups.CountryIDs[row.Country],
		QuantityCancelled: qty,
		RevenueLost:       revenue,
	}, Accepted
}

func resolveCustomer(id int64, lookups *Lookups) int64 {
	if _, ok := lookups.CustomerIDs[id]; ok {
		return id
	}
	return extract.AnonymousCustomerID
}

// LoadSales turns every cleaned row into at most one sales fact and bulk
// loads them. The caller supplies the phase transaction; commit happens once
// after the whole batch, never per row.
func LoadSales(ctx context.Context, db DB, ex *extract.Extract, lookups *Lookups, batchSize int) (*FactMetrics, error) {
	metrics := &FactMetrics{}
	batch := make([]FactSales, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := db.CopyFrom(ctx, pgx.Identifier{"factsales"}, factSalesColumns,
			pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
				f := batch[i]
				return []any{f.DateID, f.CustomerID, f.ProductID, f.CountryID,
					f.Quantity, f.UnitPrice, f.Revenue}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy factsales: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, row := range ex.Rows {
		metrics.Total++
		fact, reason := ResolveSale(row, lookups)
		switch reason {
		case RejectZeroQuantity:
			metrics.SkippedZeroQuantity++
			continue
		case RejectNonPositivePrice:
			metrics.SkippedNonPositivePrice++
			continue
		case RejectUnknownStockCode:
			metrics.SkippedUnknownStockCode++
			continue
		case RoutedCancellation:
			metrics.RoutedCancellations++
			continue
		}

		batch = append(batch, fact)
		metrics.Inserted++
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	logging.Info().Object("metrics", metrics).Msg("Sales facts loaded")
	return metrics, nil
}

// LoadCancellations derives cancellation facts from rows with negative
// quantity and positive price, re-validating only the stock code rule.
func LoadCancellations(ctx context.Context, db DB, ex *extract.Extract, lookups *Lookups, batchSize int) (*FactMetrics, error) {
	metrics := &FactMetrics{}
	batch := make([]FactCancellation, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		_, err := db.CopyFrom(ctx, pgx.Identifier{"factcancellations"}, factCancellationColumns,
			pgx.CopyFromSlice(len(batch), func(i int) ([]any, error) {
				f := batch[i]
				return []any{f.DateID, f.CustomerID, f.ProductID, f.CountryID,
					f.QuantityCancelled, f.RevenueLost}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy factcancellations: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for _, row := range ex.Rows {
		if !IsCancellation(row) {
			continue
		}
		metrics.Total++

		fact, reason := ResolveCancellation(row, lookups)
		if reason == RejectUnknownStockCode {
			metrics.SkippedUnknownStockCode++
			continue
		}

		batch = append(batch, fact)
		metrics.Inserted++
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	logging.Info().Object("metrics", metrics).Msg("Cancellation facts loaded")
	return metrics, nil
}
