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
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/pgEdge/pgedge-warehouse/internal/extract"
)

// shippingKeywords classify a product as a shipping/fee line. Matching is a
// case-insensitive substring test against the normalized description.
var shippingKeywords = []string{"POSTAGE", "DOTCOM POSTAGE", "CARRIAGE"}

var titleCaser = cases.Title(language.English)

// NormalizeDescription trims and title-cases a raw product description.
func NormalizeDescription(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

// IsShipping reports whether a normalized description names a shipping or
// carriage fee line.
func IsShipping(description string) bool {
	upper := strings.ToUpper(description)
	for _, kw := range shippingKeywords {
		if strings.Contains(upper, kw) {
			return true
		}
	}
	return false
}

// ProductCandidate is the canonical (stockcode, description, price)
// observation for one stock code within a batch. Description is already
// normalized and the shipping flag computed.
type ProductCandidate struct {
	StockCode   string
	Description string
	Price       float64
	IsShipping  bool
}

// ProductCandidates reduces the cleaned extract to one candidate per stock
// code: rows with a positive price and a non-blank description, keeping the
// latest observed description/price pairing as canonical. The result is
// ordered by stock code so inserts are deterministic.
func ProductCandidates(rows []extract.Row) []ProductCandidate {
	byCode := make(map[string]ProductCandidate)
	for _, row := range rows {
		if row.Price <= 0 || strings.TrimSpace(row.Description) == "" {
			continue
		}
		desc := NormalizeDescription(row.Description)
		byCode[row.StockCode] = ProductCandidate{
			StockCode:   row.StockCode,
			Description: desc,
			Price:       row.Price,
			IsShipping:  IsShipping(desc),
		}
	}

	candidates := make([]ProductCandidate, 0, len(byCode))
	for _, cand := range byCode {
		candidates = append(candidates, cand)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StockCode < candidates[j].StockCode
	})
	return candidates
}

// ProductAction is the outcome of an SCD Type 2 comparison.
type ProductAction int

const (
	// ActionNone: the active version already carries the candidate price.
	ActionNone ProductAction = iota

	// ActionInsert: no active version exists; a new current row is created.
	ActionInsert

	// ActionCloseAndInsert: the price changed; the active row is closed and
	// a new current row created.
	ActionCloseAndInsert
)

// ProductTransition describes the writes an SCD Type 2 step requires.
type ProductTransition struct {
	Action ProductAction

	// New is the version to insert (Insert and CloseAndInsert).
	New *ProductVersion

	// Closed is the prior active version with its end date set and current
	// flag cleared (CloseAndInsert only).
	Closed *ProductVersion
}

// Transition computes the SCD Type 2 step for one candidate against the
// active version from the pre-phase snapshot (nil when the stock code is not
// tracked). asOf becomes the effective date of any new version and the end
// date of a closed one. Pure function; the caller applies the writes.
func Transition(active *ProductVersion, cand ProductCandidate, asOf time.Time) ProductTransition {
	asOf = DateOnly(asOf)

	if active == nil {
		return ProductTransition{
			Action: ActionInsert,
			New:    newVersion(cand, asOf),
		}
	}

	if active.Price == cand.Price {
		return ProductTransition{Action: ActionNone}
	}

	closed := *active
	closed.EndDate = &asOf
	closed.IsCurrent = false

	return ProductTransition{
		Action: ActionCloseAndInsert,
		New:    newVersion(cand, asOf),
		Closed: &closed,
	}
}

func newVersion(cand ProductCandidate, asOf time.Time) *ProductVersion {
	return &ProductVersion{
		StockCode:     cand.StockCode,
		Description:   cand.Description,
		Price:         cand.Price,
		IsShipping:    cand.IsShipping,
		EffectiveDate: asOf,
		IsCurrent:     true,
	}
}
