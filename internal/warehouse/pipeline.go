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
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-warehouse/internal/db"
	"github.com/pgEdge/pgedge-warehouse/internal/extract"
	"github.com/pgEdge/pgedge-warehouse/internal/logging"
)

// Pipeline runs the full batch: extract, dimension resolution, fact loading.
// Execution is strictly sequential; facts require fully resolved dimensions.
// Every run starts with a wholesale truncate, which is the sole idempotency
// mechanism. Each phase runs in its own transaction, so a crash loses at
// most the current phase and a rerun starts clean from the truncate.
type Pipeline struct {
	pool *pgxpool.Pool

	// ExtractPath is the raw transaction CSV to load.
	ExtractPath string

	// RunDate is the as-of date for SCD effective/end dates.
	RunDate time.Time

	// BatchSize bounds fact rows buffered per bulk insert.
	BatchSize int
}

// NewPipeline constructs a Pipeline over an established pool.
func NewPipeline(pool *pgxpool.Pool, extractPath string, runDate time.Time, batchSize int) *Pipeline {
	return &Pipeline{
		pool:        pool,
		ExtractPath: extractPath,
		RunDate:     runDate,
		BatchSize:   batchSize,
	}
}

// Run executes the batch and returns the per-phase metrics.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	report := &RunReport{}

	logging.Info().Str("extract", p.ExtractPath).Msg("Loading extract")
	ex, err := extract.Load(p.ExtractPath)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	report.ExtractRows = len(ex.Rows)
	report.ExtractRemoved = ex.Removed
	logging.Info().
		Int("rows", len(ex.Rows)).
		Int("removed", ex.Removed).
		Msg("Extract cleaned")

	if err := TruncateAll(ctx, p.pool); err != nil {
		return nil, fmt.Errorf("truncate: %w", err)
	}

	// Phase 1: dimensions.
	lookups, dimMetrics, err := p.inTx(ctx, func(tx pgx.Tx) (*Lookups, *DimensionMetrics, error) {
		return ResolveDimensions(ctx, tx, ex, p.RunDate)
	})
	if err != nil {
		return nil, fmt.Errorf("dimension phase: %w", err)
	}
	report.Dimensions = *dimMetrics

	// Phase 2: sales facts.
	salesMetrics, err := p.inTxFacts(ctx, func(tx pgx.Tx) (*FactMetrics, error) {
		return LoadSales(ctx, tx, ex, lookups, p.BatchSize)
	})
	if err != nil {
		return nil, fmt.Errorf("sales phase: %w", err)
	}
	report.Sales = *salesMetrics

	// Phase 3: cancellation facts.
	cancelMetrics, err := p.inTxFacts(ctx, func(tx pgx.Tx) (*FactMetrics, error) {
		return LoadCancellations(ctx, tx, ex, lookups, p.BatchSize)
	})
	if err != nil {
		return nil, fmt.Errorf("cancellation phase: %w", err)
	}
	report.Cancellations = *cancelMetrics

	if err := p.saveMetadata(ctx, report); err != nil {
		return nil, fmt.Errorf("save metadata: %w", err)
	}

	logging.Info().
		Dur("elapsed", time.Since(start)).
		Int("sales", report.Sales.Inserted).
		Int("cancellations", report.Cancellations.Inserted).
		Msg("Run complete")
	return report, nil
}

func (p *Pipeline) inTx(ctx context.Context, fn func(pgx.Tx) (*Lookups, *DimensionMetrics, error)) (*Lookups, *DimensionMetrics, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	lookups, metrics, err := fn(tx)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("commit: %w", err)
	}
	return lookups, metrics, nil
}

func (p *Pipeline) inTxFacts(ctx context.Context, fn func(pgx.Tx) (*FactMetrics, error)) (*FactMetrics, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	metrics, err := fn(tx)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return metrics, nil
}

func (p *Pipeline) saveMetadata(ctx context.Context, report *RunReport) error {
	return db.SaveRunMetadata(ctx, p.pool, p.ExtractPath, map[string]string{
		"run_date":               p.RunDate.Format("2006-01-02"),
		"extract_rows":           strconv.Itoa(report.ExtractRows),
		"extract_removed":        strconv.Itoa(report.ExtractRemoved),
		"sales_inserted":         strconv.Itoa(report.Sales.Inserted),
		"cancellations_inserted": strconv.Itoa(report.Cancellations.Inserted),
	})
}
