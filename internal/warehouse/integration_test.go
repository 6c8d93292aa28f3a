//-------------------------------------------------------------------------
//
// pgEdge Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Integration tests require a running PostgreSQL instance. They are skipped
// when none is available; set PGEDGE_WAREHOUSE_TEST_CONN to point at one.
package warehouse_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-warehouse/internal/db"
	"github.com/pgEdge/pgedge-warehouse/internal/testutil"
	"github.com/pgEdge/pgedge-warehouse/internal/warehouse"
)

const sampleExtract = `Invoice,StockCode,Description,Quantity,InvoiceDate,Price,Customer ID,Country
489434,A1,ANT COPPER LIME,3,2010-12-01 07:45:00,2.00,13085,United Kingdom
C489520,A1,ANT COPPER LIME,-1,2010-12-05 10:00:00,2.00,13085,United Kingdom
489435,B2,CAT BOWL,0,2010-12-01 07:46:00,2.55,13085,United Kingdom
489436,B2,CAT BOWL,4,2010-12-01 07:50:00,2.55,,France
489437,D4,FREE SAMPLE,2,2010-12-02 09:00:00,0.00,12583,Germany
489438,M,Manual,1,2010-12-02 09:05:00,10.00,12583,Germany
489439,POST,POSTAGE,1,2010-12-02 09:06:00,18.00,12583,Germany
`

var runDate = time.Date(2011, 1, 10, 0, 0, 0, 0, time.UTC)

func setupWarehouse(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()

	baseConnStr := testutil.SkipIfNoPostgres(t)
	connStr := testutil.CreateTestDB(t, baseConnStr)
	pool := testutil.ConnectTestDB(t, connStr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := warehouse.CreateSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	return pool, func() {
		testutil.Cleanup(t, baseConnStr, connStr, pool)
	}
}

func writeExtract(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extract.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write extract: %v", err)
	}
	return path
}

func queryInt(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := pool.QueryRow(context.Background(), sql, args...).Scan(&n); err != nil {
		t.Fatalf("Query failed: %v\n%s", err, sql)
	}
	return n
}

func queryFloat(t *testing.T, pool *pgxpool.Pool, sql string, args ...any) float64 {
	t.Helper()
	var f float64
	if err := pool.QueryRow(context.Background(), sql, args...).Scan(&f); err != nil {
		t.Fatalf("Query failed: %v\n%s", err, sql)
	}
	return f
}

func TestPipelineRun(t *testing.T) {
	pool, cleanup := setupWarehouse(t)
	defer cleanup()
	ctx := context.Background()

	path := writeExtract(t, sampleExtract)
	pipeline := warehouse.NewPipeline(pool, path, runDate, 1000)

	report, err := pipeline.Run(ctx)
	if err != nil {
		t.Fatalf("Pipeline run failed: %v", err)
	}

	if report.ExtractRows != 6 {
		t.Errorf("ExtractRows = %d, want 6", report.ExtractRows)
	}
	if report.ExtractRemoved != 1 {
		t.Errorf("ExtractRemoved = %d, want 1", report.ExtractRemoved)
	}

	// Dimensions: 3 dates, sentinel + 2 customers, 3 countries, 3 products
	// (the zero-priced sample never becomes a product).
	if n := queryInt(t, pool, "SELECT count(*) FROM dimdate"); n != 3 {
		t.Errorf("dimdate rows = %d, want 3", n)
	}
	if n := queryInt(t, pool, "SELECT count(*) FROM dimcustomer"); n != 3 {
		t.Errorf("dimcustomer rows = %d, want 3", n)
	}
	if n := queryInt(t, pool, "SELECT count(*) FROM dimcustomer WHERE customerid = 0"); n != 1 {
		t.Errorf("Expected exactly one anonymous row, got %d", n)
	}
	if n := queryInt(t, pool, "SELECT count(*) FROM dimcountry"); n != 3 {
		t.Errorf("dimcountry rows = %d, want 3", n)
	}
	if n := queryInt(t, pool, "SELECT count(*) FROM dimproduct"); n != 3 {
		t.Errorf("dimproduct rows = %d, want 3", n)
	}

	// The exclusion list keeps non-merchandise codes out of every table.
	if n := queryInt(t, pool, "SELECT count(*) FROM dimproduct WHERE stockcode = 'M'"); n != 0 {
		t.Errorf("Excluded stockcode reached the product dimension")
	}

	// Shipping classification.
	var isShipping bool
	if err := pool.QueryRow(ctx,
		"SELECT is_shipping FROM dimproduct WHERE stockcode = 'POST'").Scan(&isShipping); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !isShipping {
		t.Error("POSTAGE product should be flagged as shipping")
	}

	// Facts: A1 sale, anonymous B2 sale, POST line.
	if report.Sales.Inserted != 3 {
		t.Errorf("Sales.Inserted = %d, want 3", report.Sales.Inserted)
	}
	if report.Sales.SkippedZeroQuantity != 1 {
		t.Errorf("SkippedZeroQuantity = %d, want 1", report.Sales.SkippedZeroQuantity)
	}
	if report.Sales.SkippedNonPositivePrice != 1 {
		t.Errorf("SkippedNonPositivePrice = %d, want 1", report.Sales.SkippedNonPositivePrice)
	}
	if report.Sales.RoutedCancellations != 1 {
		t.Errorf("RoutedCancellations = %d, want 1", report.Sales.RoutedCancellations)
	}
	if report.Cancellations.Inserted != 1 {
		t.Errorf("Cancellations.Inserted = %d, want 1", report.Cancellations.Inserted)
	}

	revenue := queryFloat(t, pool, "SELECT sum(revenue) FROM factsales")
	if math.Abs(revenue-34.20) > 0.001 {
		t.Errorf("Total revenue = %v, want 34.20", revenue)
	}

	// No fact row may have a zero quantity or non-positive price.
	if n := queryInt(t, pool,
		"SELECT count(*) FROM factsales WHERE quantity <= 0 OR unitprice <= 0"); n != 0 {
		t.Errorf("Found %d invalid sales facts", n)
	}

	// Cancellation magnitudes are positive; the example return of one unit.
	var qty int64
	var lost float64
	if err := pool.QueryRow(ctx,
		"SELECT quantity_cancelled, revenue_lost FROM factcancellations").Scan(&qty, &lost); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if qty != 1 || math.Abs(lost-2.00) > 0.001 {
		t.Errorf("Cancellation = (%d, %v), want (1, 2.00)", qty, lost)
	}

	// Sale and cancellation of A1 reference the same product key.
	if n := queryInt(t, pool, `
        SELECT count(*) FROM factcancellations fc
        JOIN factsales fs ON fs.productid_fk = fc.productid_fk
    `); n == 0 {
		t.Error("Cancellation does not share a product key with its sale")
	}

	assertReferentialIntegrity(t, pool)

	// Run metadata records the outcome.
	salesMeta, err := db.GetMetadataValue(ctx, pool, "sales_inserted")
	if err != nil {
		t.Fatalf("Failed to read metadata: %v", err)
	}
	if salesMeta != "3" {
		t.Errorf("sales_inserted metadata = %q, want \"3\"", salesMeta)
	}
}

func assertReferentialIntegrity(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	checks := []string{
		`SELECT count(*) FROM factsales f LEFT JOIN dimdate d ON d.dateid = f.dateid_fk WHERE d.dateid IS NULL`,
		`SELECT count(*) FROM factsales f LEFT JOIN dimcustomer c ON c.customerid = f.customerid_fk WHERE c.customerid IS NULL`,
		`SELECT count(*) FROM factsales f LEFT JOIN dimproduct p ON p.productid = f.productid_fk WHERE p.productid IS NULL`,
		`SELECT count(*) FROM factsales f LEFT JOIN dimcountry co ON co.countryid = f.countryid_fk WHERE co.countryid IS NULL`,
		`SELECT count(*) FROM factcancellations f LEFT JOIN dimdate d ON d.dateid = f.dateid_fk WHERE d.dateid IS NULL`,
		`SELECT count(*) FROM factcancellations f LEFT JOIN dimproduct p ON p.productid = f.productid_fk WHERE p.productid IS NULL`,
	}
	for _, sql := range checks {
		if n := queryInt(t, pool, sql); n != 0 {
			t.Errorf("Referential integrity violated (%d orphans):\n%s", n, sql)
		}
	}
}

func TestPipelineIdempotentReload(t *testing.T) {
	pool, cleanup := setupWarehouse(t)
	defer cleanup()
	ctx := context.Background()

	path := writeExtract(t, sampleExtract)
	pipeline := warehouse.NewPipeline(pool, path, runDate, 1000)

	if _, err := pipeline.Run(ctx); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	firstCounts := tableCounts(t, pool)
	firstRevenue := queryFloat(t, pool, "SELECT coalesce(sum(revenue), 0) FROM factsales")

	if _, err := pipeline.Run(ctx); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	secondCounts := tableCounts(t, pool)
	secondRevenue := queryFloat(t, pool, "SELECT coalesce(sum(revenue), 0) FROM factsales")

	for table, n := range firstCounts {
		if secondCounts[table] != n {
			t.Errorf("%s: first run %d rows, second run %d", table, n, secondCounts[table])
		}
	}
	if math.Abs(firstRevenue-secondRevenue) > 0.001 {
		t.Errorf("Revenue changed across reloads: %v vs %v", firstRevenue, secondRevenue)
	}
}

func tableCounts(t *testing.T, pool *pgxpool.Pool) map[string]int64 {
	t.Helper()
	counts := make(map[string]int64)
	for _, table := range []string{
		"dimdate", "dimcustomer", "dimproduct", "dimcountry",
		"factsales", "factcancellations",
	} {
		counts[table] = queryInt(t, pool, "SELECT count(*) FROM "+table)
	}
	return counts
}

func TestResolveProductsPriceChange(t *testing.T) {
	pool, cleanup := setupWarehouse(t)
	defer cleanup()
	ctx := context.Background()

	// Seed a pre-run baseline version at price 1.00.
	_, err := pool.Exec(ctx, `
        INSERT INTO dimproduct
            (stockcode, description, price, is_shipping, effective_date, is_current)
        VALUES ('A1', 'Ant Copper Lime', 1.00, FALSE, '2010-01-01', TRUE)
    `)
	if err != nil {
		t.Fatalf("Failed to seed baseline: %v", err)
	}

	lookups := warehouse.NewLookups()
	metrics := &warehouse.DimensionMetrics{}
	candidates := []warehouse.ProductCandidate{
		{StockCode: "A1", Description: "Ant Copper Lime", Price: 2.00},
	}

	if err := warehouse.ResolveProducts(ctx, pool, candidates, runDate, lookups, metrics); err != nil {
		t.Fatalf("ResolveProducts failed: %v", err)
	}
	if metrics.ProductsVersioned != 1 {
		t.Errorf("ProductsVersioned = %d, want 1", metrics.ProductsVersioned)
	}

	// Exactly one historical row closed on the run date.
	var endDate time.Time
	err = pool.QueryRow(ctx, `
        SELECT end_date FROM dimproduct
        WHERE stockcode = 'A1' AND NOT is_current
    `).Scan(&endDate)
	if err != nil {
		t.Fatalf("Expected one historical row: %v", err)
	}
	if !endDate.Equal(runDate) {
		t.Errorf("End date = %v, want %v", endDate, runDate)
	}

	// Exactly one current row at the new price.
	var price float64
	err = pool.QueryRow(ctx, `
        SELECT price FROM dimproduct
        WHERE stockcode = 'A1' AND is_current
    `).Scan(&price)
	if err != nil {
		t.Fatalf("Expected one current row: %v", err)
	}
	if price != 2.00 {
		t.Errorf("Current price = %v, want 2.00", price)
	}

	// The lookup map points at the new current version.
	var currentID int64
	if err := pool.QueryRow(ctx,
		"SELECT productid FROM dimproduct WHERE stockcode = 'A1' AND is_current").Scan(&currentID); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if lookups.ProductIDs["A1"] != currentID {
		t.Errorf("Lookup key = %d, want %d", lookups.ProductIDs["A1"], currentID)
	}

	// Re-running with the same candidate makes no further writes.
	metrics2 := &warehouse.DimensionMetrics{}
	if err := warehouse.ResolveProducts(ctx, pool, candidates, runDate, warehouse.NewLookups(), metrics2); err != nil {
		t.Fatalf("Second ResolveProducts failed: %v", err)
	}
	if metrics2.ProductsUnchanged != 1 || metrics2.ProductsVersioned != 0 {
		t.Errorf("Second pass metrics = %+v, want unchanged only", metrics2)
	}
	if n := queryInt(t, pool, "SELECT count(*) FROM dimproduct WHERE stockcode = 'A1'"); n != 2 {
		t.Errorf("Expected 2 versions after no-op pass, got %d", n)
	}
}
