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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// extractHeader matches the raw source export column order.
var extractHeader = []string{
	"Invoice", "StockCode", "Description", "Quantity",
	"InvoiceDate", "Price", "Customer ID", "Country",
}

// Mix ratios, per thousand lines.
const (
	anonymousPerMille    = 25 // blank customer id
	cancellationPerMille = 20 // negative quantity, 'C'-prefixed invoice
	excludedPerMille     = 10 // non-merchandise stock codes
	postagePerMille      = 15 // shipping fee lines
	repricePerMille      = 30 // product sold at an alternate price
)

// A handful of non-merchandise codes the cleaner is expected to drop.
var excludedCodes = []string{"M", "D", "AMAZONFEE", "BANK CHARGES", "TEST001"}

var countryPool = []string{
	"United Kingdom", "United Kingdom", "United Kingdom", "United Kingdom",
	"United Kingdom", "United Kingdom", "Germany", "France", "EIRE",
	"Netherlands", "Spain", "Belgium", "Switzerland", "Portugal", "Australia",
	"Norway", "Italy", "Sweden", "Japan",
}

type productSpec struct {
	stockCode   string
	description string
	basePrice   float64
	altPrice    float64
}

// ExtractGenerator emits a synthetic raw transaction extract CSV shaped like
// the real source: UK-heavy countries, mostly small merchandise lines, a few
// anonymous customers, cancellations, postage fees, and excluded codes.
type ExtractGenerator struct {
	faker     *Faker
	products  []productSpec
	customers []int64
	start     time.Time
	end       time.Time
}

// NewExtractGenerator creates a generator. A zero seed means a random one.
func NewExtractGenerator(seed uint64) *ExtractGenerator {
	var f *Faker
	if seed == 0 {
		f = NewFaker()
	} else {
		f = NewFakerWithSeed(seed)
	}

	g := &ExtractGenerator{
		faker: f,
		start: time.Date(2010, 1, 4, 7, 0, 0, 0, time.UTC),
		end:   time.Date(2010, 12, 23, 19, 0, 0, 0, time.UTC),
	}

	numProducts := 400
	for i := 0; i < numProducts; i++ {
		base := f.Price(0.25, 30)
		g.products = append(g.products, productSpec{
			stockCode:   g.stockCode(i),
			description: strings.ToUpper(f.ProductName()),
			basePrice:   base,
			altPrice:    round2(base * f.Float64(1.05, 1.5)),
		})
	}

	numCustomers := 600
	for i := 0; i < numCustomers; i++ {
		g.customers = append(g.customers, f.Int64(12000, 18999))
	}

	return g
}

// stockCode mimics the source's five-digit codes with an occasional
// trailing letter variant.
func (g *ExtractGenerator) stockCode(i int) string {
	code := strconv.Itoa(20000 + i*7%70000)
	if i%11 == 0 {
		code += string(rune('A' + i%5))
	}
	return code
}

// WriteCSV writes a header plus n transaction lines.
func (g *ExtractGenerator) WriteCSV(w io.Writer, n int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(extractHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := 0; i < n; i++ {
		if err := cw.Write(g.line()); err != nil {
			return fmt.Errorf("write line %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func (g *ExtractGenerator) line() []string {
	roll := g.faker.Int(0, 999)
	ts := g.faker.DateRange(g.start, g.end)
	invoice := strconv.Itoa(g.faker.Int(489000, 581999))
	country := Choose(g.faker, countryPool)

	customer := ""
	if roll >= anonymousPerMille {
		customer = strconv.FormatInt(Choose(g.faker, g.customers), 10)
	}

	switch {
	case roll < excludedPerMille:
		// Non-merchandise adjustment line; the cleaner drops these.
		code := Choose(g.faker, excludedCodes)
		return []string{invoice, code, "Manual", "1", formatTS(ts),
			formatPrice(g.faker.Price(1, 200)), customer, country}

	case roll < excludedPerMille+postagePerMille:
		return []string{invoice, "POST", "POSTAGE", strconv.Itoa(g.faker.Int(1, 4)),
			formatTS(ts), formatPrice(g.faker.Price(8, 18)), customer, country}
	}

	p := Choose(g.faker, g.products)
	price := p.basePrice
	if g.faker.Int(0, 999) < repricePerMille {
		price = p.altPrice
	}

	qty := g.faker.Int(1, 48)
	if roll >= 999-cancellationPerMille {
		qty = -g.faker.Int(1, 12)
		invoice = "C" + invoice
	}

	return []string{invoice, p.stockCode, p.description, strconv.Itoa(qty),
		formatTS(ts), formatPrice(price), customer, country}
}

func formatTS(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func formatPrice(p float64) string {
	return strconv.FormatFloat(round2(p), 'f', 2, 64)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
