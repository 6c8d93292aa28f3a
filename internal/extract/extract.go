//-------------------------------------------------------------------------
//
// pgEdge Warehouse
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package extract loads and cleans the raw retail transaction extract.
//
// Cleaning happens before any dimension or fact logic runs: timestamps are
// parsed, missing customer identifiers are replaced with the anonymous
// sentinel, and rows carrying non-merchandise stock codes (fees, adjustments,
// test and gift codes) are removed outright. Removed rows are counted, not
// errors; a timestamp that fails to parse is fatal.
package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// AnonymousCustomerID is the sentinel for rows with no customer identifier.
const AnonymousCustomerID int64 = 0

// excludedStockCodes are non-merchandise codes removed during cleaning.
// Matching is exact and case-sensitive.
var excludedStockCodes = map[string]struct{}{
	"TEST002":      {},
	"TEST001":      {},
	"SP1002":       {},
	"S":            {},
	"PADS":         {},
	"M":            {},
	"m":            {},
	"D":            {},
	"BANK CHARGES": {},
	"B":            {},
	"AMAZONFEE":    {},
	"ADJUST":       {},
	"GIFT_0001_10": {},
	"GIFT_0001_20": {},
	"GIFT_0001_30": {},
	"GIFT_0001_40": {},
	"GIFT_0001_50": {},
	"GIFT_0001_60": {},
	"GIFT_0001_70": {},
	"GIFT_0001_80": {},
	"GIFT_0001_90": {},
}

// timestampLayouts are the InvoiceDate formats seen across extract exports.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04",
	"1/2/2006 3:04:05 PM",
}

// Row is one cleaned transaction line.
type Row struct {
	InvoiceID   string
	StockCode   string
	Description string
	Quantity    int64
	InvoiceDate time.Time
	Price       float64
	CustomerID  int64
	Country     string
}

// Extract is the cleaned row set plus audit counters.
type Extract struct {
	Rows []Row

	// Removed counts rows dropped by the stock code exclusion list.
	Removed int
}

// IsExcludedStockCode reports whether code is on the fixed exclusion list.
func IsExcludedStockCode(code string) bool {
	_, ok := excludedStockCodes[code]
	return ok
}

// ExcludedStockCodes returns a copy of the exclusion list.
func ExcludedStockCodes() []string {
	codes := make([]string, 0, len(excludedStockCodes))
	for code := range excludedStockCodes {
		codes = append(codes, code)
	}
	return codes
}

// Load reads and cleans the extract at path.
func Load(path string) (*Extract, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open extract: %w", err)
	}
	defer f.Close()

	ex, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ex, nil
}

// Read parses and cleans a raw extract CSV. The first record must be a
// header row naming the source columns.
func Read(r io.Reader) (*Extract, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	ex := &Extract{}
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		line++

		stockCode := record[cols.stockCode]
		if IsExcludedStockCode(stockCode) {
			ex.Removed++
			continue
		}

		row, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ex.Rows = append(ex.Rows, row)
	}

	return ex, nil
}

// columnIndex holds the source column positions resolved from the header.
type columnIndex struct {
	invoice     int
	stockCode   int
	description int
	quantity    int
	invoiceDate int
	price       int
	customerID  int
	country     int
}

func mapHeader(header []string) (columnIndex, error) {
	idx := columnIndex{
		invoice: -1, stockCode: -1, description: -1, quantity: -1,
		invoiceDate: -1, price: -1, customerID: -1, country: -1,
	}
	for i, name := range header {
		switch normalizeHeader(name) {
		case "invoice", "invoiceno", "invoiceid":
			idx.invoice = i
		case "stockcode":
			idx.stockCode = i
		case "description":
			idx.description = i
		case "quantity":
			idx.quantity = i
		case "invoicedate":
			idx.invoiceDate = i
		case "price", "unitprice":
			idx.price = i
		case "customerid":
			idx.customerID = i
		case "country":
			idx.country = i
		}
	}

	missing := []string{}
	for _, c := range []struct {
		name string
		pos  int
	}{
		{"Invoice", idx.invoice},
		{"StockCode", idx.stockCode},
		{"Description", idx.description},
		{"Quantity", idx.quantity},
		{"InvoiceDate", idx.invoiceDate},
		{"Price", idx.price},
		{"Customer ID", idx.customerID},
		{"Country", idx.country},
	} {
		if c.pos < 0 {
			missing = append(missing, c.name)
		}
	}
	if len(missing) > 0 {
		return idx, fmt.Errorf("extract header is missing columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func normalizeHeader(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}

func parseRow(record []string, cols columnIndex) (Row, error) {
	row := Row{
		InvoiceID:   record[cols.invoice],
		StockCode:   record[cols.stockCode],
		Description: record[cols.description],
		Country:     record[cols.country],
	}

	ts, err := parseTimestamp(record[cols.invoiceDate])
	if err != nil {
		return row, err
	}
	row.InvoiceDate = ts

	qty, err := strconv.ParseInt(strings.TrimSpace(record[cols.quantity]), 10, 64)
	if err != nil {
		return row, fmt.Errorf("invalid quantity %q: %w", record[cols.quantity], err)
	}
	row.Quantity = qty

	price, err := strconv.ParseFloat(strings.TrimSpace(record[cols.price]), 64)
	if err != nil {
		return row, fmt.Errorf("invalid price %q: %w", record[cols.price], err)
	}
	row.Price = price

	row.CustomerID, err = parseCustomerID(record[cols.customerID])
	if err != nil {
		return row, err
	}

	return row, nil
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable invoice date %q", value)
}

// parseCustomerID maps a blank identifier to the anonymous sentinel.
// Some exports serialize the identifier as a float ("13085.0").
func parseCustomerID(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return AnonymousCustomerID, nil
	}
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid customer id %q", value)
	}
	return int64(f), nil
}
