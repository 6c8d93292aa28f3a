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
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pgEdge/pgedge-warehouse/internal/extract"
	"github.com/pgEdge/pgedge-warehouse/internal/logging"
)

// DB is the subset of pgx behavior the warehouse needs. Both *pgxpool.Pool
// and pgx.Tx satisfy it, so phases can run inside a transaction while tests
// and tooling use a pool directly.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// ResolveDimensions materializes all four dimension tables from the cleaned
// extract and returns the surrogate-key lookup maps the fact loader consumes.
// The caller provides the transaction; dimension resolution is one phase,
// one transaction.
func ResolveDimensions(ctx context.Context, db DB, ex *extract.Extract, asOf time.Time) (*Lookups, *DimensionMetrics, error) {
	lookups := NewLookups()
	metrics := &DimensionMetrics{}

	if err := resolveDates(ctx, db, ex.Rows, lookups, metrics); err != nil {
		return nil, nil, fmt.Errorf("date dimension: %w", err)
	}
	if err := resolveCustomers(ctx, db, ex.Rows, lookups, metrics); err != nil {
		return nil, nil, fmt.Errorf("customer dimension: %w", err)
	}
	if err := resolveCountries(ctx, db, ex.Rows, lookups, metrics); err != nil {
		return nil, nil, fmt.Errorf("country dimension: %w", err)
	}
	if err := ResolveProducts(ctx, db, ProductCandidates(ex.Rows), asOf, lookups, metrics); err != nil {
		return nil, nil, fmt.Errorf("product dimension: %w", err)
	}

	logging.Info().Object("metrics", metrics).Msg("Dimensions resolved")
	return lookups, metrics, nil
}

func resolveDates(ctx context.Context, db DB, rows []extract.Row, lookups *Lookups, metrics *DimensionMetrics) error {
	seen := make(map[time.Time]struct{})
	dates := make([]time.Time, 0)
	for _, row := range rows {
		d := DateOnly(row.InvoiceDate)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	batch := &pgx.Batch{}
	for _, d := range dates {
		batch.Queue(
			"INSERT INTO dimdate (date, year, month, day) VALUES ($1, $2, $3, $4) RETURNING dateid",
			d, d.Year(), int(d.Month()), d.Day(),
		)
	}

	br := db.SendBatch(ctx, batch)
	defer br.Close()
	for _, d := range dates {
		var id int64
		if err := br.QueryRow().Scan(&id); err != nil {
			return fmt.Errorf("insert %s: %w", d.Format("2006-01-02"), err)
		}
		lookups.DateIDs[d] = id
	}
	metrics.Dates = len(dates)
	return nil
}

func resolveCustomers(ctx context.Context, db DB, rows []extract.Row, lookups *Lookups, metrics *DimensionMetrics) error {
	// The anonymous sentinel is always present, exactly once.
	if _, err := db.Exec(ctx,
		"INSERT INTO dimcustomer (customerid, customername) VALUES ($1, $2)",
		extract.AnonymousCustomerID, "Anonymous",
	); err != nil {
		return fmt.Errorf("insert anonymous sentinel: %w", err)
	}
	lookups.CustomerIDs[extract.AnonymousCustomerID] = struct{}{}

	ids := make([]int64, 0)
	for _, row := range rows {
		if row.CustomerID == extract.AnonymousCustomerID {
			continue
		}
		if _, ok := lookups.CustomerIDs[row.CustomerID]; ok {
			continue
		}
		lookups.CustomerIDs[row.CustomerID] = struct{}{}
		ids = append(ids, row.CustomerID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue("INSERT INTO dimcustomer (customerid, customername) VALUES ($1, NULL)", id)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert customers: %w", err)
	}

	metrics.Customers = len(ids) + 1
	return nil
}

func resolveCountries(ctx context.Context, db DB, rows []extract.Row, lookups *Lookups, metrics *DimensionMetrics) error {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, row := range rows {
		if _, ok := seen[row.Country]; ok {
			continue
		}
		seen[row.Country] = struct{}{}
		names = append(names, row.Country)
	}
	sort.Strings(names)

	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue("INSERT INTO dimcountry (countryname) VALUES ($1) RETURNING countryid", name)
	}

	br := db.SendBatch(ctx, batch)
	defer br.Close()
	for _, name := range names {
		var id int64
		if err := br.QueryRow().Scan(&id); err != nil {
			return fmt.Errorf("insert %q: %w", name, err)
		}
		lookups.CountryIDs[name] = id
	}
	metrics.Countries = len(names)
	return nil
}

// ResolveProducts runs the SCD Type 2 merge. The set of currently-active
// versions is snapshotted once before any write; every candidate is compared
// against that pre-phase baseline, never against in-phase state. Lookups
// receive surrogate keys for current versions only.
func ResolveProducts(ctx context.Context, db DB, candidates []ProductCandidate, asOf time.Time, lookups *Lookups, metrics *DimensionMetrics) error {
	snapshot, err := LoadCurrentProducts(ctx, db)
	if err != nil {
		return fmt.Errorf("load current versions: %w", err)
	}

	for _, cand := range candidates {
		tr := Transition(snapshot[cand.StockCode], cand, asOf)

		switch tr.Action {
		case ActionNone:
			lookups.ProductIDs[cand.StockCode] = snapshot[cand.StockCode].ID
			metrics.ProductsUnchanged++

		case ActionInsert:
			id, err := insertProductVersion(ctx, db, tr.New)
			if err != nil {
				return fmt.Errorf("insert %q: %w", cand.StockCode, err)
			}
			lookups.ProductIDs[cand.StockCode] = id
			metrics.ProductsInserted++

		case ActionCloseAndInsert:
			if _, err := db.Exec(ctx, `
                UPDATE dimproduct SET end_date = $1, is_current = FALSE
                WHERE stockcode = $2 AND is_current
            `, tr.Closed.EndDate, cand.StockCode); err != nil {
				return fmt.Errorf("close %q: %w", cand.StockCode, err)
			}
			id, err := insertProductVersion(ctx, db, tr.New)
			if err != nil {
				return fmt.Errorf("insert new version of %q: %w", cand.StockCode, err)
			}
			lookups.ProductIDs[cand.StockCode] = id
			metrics.ProductsVersioned++
		}
	}
	return nil
}

// LoadCurrentProducts reads the currently-active product versions keyed by
// stock code.
func LoadCurrentProducts(ctx context.Context, db DB) (map[string]*ProductVersion, error) {
	rows, err := db.Query(ctx, `
        SELECT productid, stockcode, description, price, is_shipping,
               effective_date, end_date, is_current
        FROM dimproduct WHERE is_current
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	versions := make(map[string]*ProductVersion)
	for rows.Next() {
		v := &ProductVersion{}
		if err := rows.Scan(&v.ID, &v.StockCode, &v.Description, &v.Price,
			&v.IsShipping, &v.EffectiveDate, &v.EndDate, &v.IsCurrent); err != nil {
			return nil, err
		}
		versions[v.StockCode] = v
	}
	return versions, rows.Err()
}

func insertProductVersion(ctx context.Context, db DB, v *ProductVersion) (int64, error) {
	var id int64
	err := db.QueryRow(ctx, `
        INSERT INTO dimproduct
            (stockcode, description, price, is_shipping, effective_date, end_date, is_current)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING productid
    `, v.StockCode, v.Description, v.Price, v.IsShipping,
		v.EffectiveDate, v.EndDate, v.IsCurrent).Scan(&id)
	return id, err
}
