package warehouse

import "github.com/rs/zerolog"

// DimensionMetrics counts the writes of the dimension build phase.
type DimensionMetrics struct {
	Dates     int
	Customers int
	Countries int

	// ProductsInserted counts stock codes that entered the dimension fresh.
	ProductsInserted int

	// ProductsVersioned counts price changes tracked as new SCD2 versions.
	ProductsVersioned int

	// ProductsUnchanged counts candidates whose active version already
	// carried the observed price.
	ProductsUnchanged int
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (m *DimensionMetrics) MarshalZerologObject(e *zerolog.Event) {
	e.Int("dates", m.Dates).
		Int("customers", m.Customers).
		Int("countries", m.Countries).
		Int("products_inserted", m.ProductsInserted).
		Int("products_versioned", m.ProductsVersioned).
		Int("products_unchanged", m.ProductsUnchanged)
}

// FactMetrics counts per-row outcomes of a fact load phase. Rejections are
// independent counters; a rejected row never aborts the run.
type FactMetrics struct {
	Total                   int
	Inserted                int
	SkippedZeroQuantity     int
	SkippedNonPositivePrice int
	SkippedUnknownStockCode int

	// RoutedCancellations counts negative-quantity rows handed to the
	// cancellation load instead of the sales load.
	RoutedCancellations int
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (m *FactMetrics) MarshalZerologObject(e *zerolog.Event) {
	e.Int("total", m.Total).
		Int("inserted", m.Inserted).
		Int("skipped_zero_quantity", m.SkippedZeroQuantity).
		Int("skipped_non_positive_price", m.SkippedNonPositivePrice).
		Int("skipped_unknown_stockcode", m.SkippedUnknownStockCode).
		Int("routed_cancellations", m.RoutedCancellations)
}

// RunReport aggregates the outcome of one full pipeline run.
type RunReport struct {
	ExtractRows    int
	ExtractRemoved int

	Dimensions    DimensionMetrics
	Sales         FactMetrics
	Cancellations FactMetrics
}
