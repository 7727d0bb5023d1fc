package etl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/model"
	"github.com/finsight/finsight/internal/service"
)

// ProgressFunc receives per-stage progress for UI reporting.
type ProgressFunc func(state service.RunState, done, total int)

// Config holds configuration options for the pipeline.
type Config struct {
	Progress  ProgressFunc
	BatchSize int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{BatchSize: 500}
}

// Pipeline sequences Reader -> Transformer -> Loader -> Aggregator for one
// load run. It is the only component with control-flow authority; every
// failure surfaces as a RunResult, never as a panic past this boundary.
type Pipeline struct {
	source      service.SourceReader
	warehouse   service.Warehouse
	transformer *Transformer
	progress    ProgressFunc
	batchSize   int
}

// New creates a pipeline over caller-supplied stores.
func New(source service.SourceReader, wh service.Warehouse) *Pipeline {
	return NewWithConfig(source, wh, DefaultConfig())
}

// NewWithConfig creates a pipeline with custom configuration.
func NewWithConfig(source service.SourceReader, wh service.Warehouse, config Config) *Pipeline {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &Pipeline{
		source:      source,
		warehouse:   wh,
		transformer: NewTransformer(),
		progress:    config.Progress,
		batchSize:   config.BatchSize,
	}
}

// RunFullLoad synchronizes every source row and refreshes the dimensions.
func (p *Pipeline) RunFullLoad(ctx context.Context) service.RunResult {
	return p.run(ctx, nil)
}

// RunIncrementalLoad synchronizes rows created or updated after since.
func (p *Pipeline) RunIncrementalLoad(ctx context.Context, since time.Time) service.RunResult {
	return p.run(ctx, &since)
}

func (p *Pipeline) run(ctx context.Context, since *time.Time) service.RunResult {
	start := time.Now()
	mode := "full"
	if since != nil {
		mode = "incremental"
	}

	result := service.RunResult{State: service.StateIdle}

	slog.Info("Starting pipeline run", "mode", mode, "since", since)

	// READING
	result.State = service.StateReading
	txns, err := p.source.ReadTransactions(ctx, since)
	if err != nil {
		return p.fail(ctx, mode, start, result, err)
	}
	result.RowsRead = len(txns)

	var (
		users      []model.User
		accounts   []model.Account
		categories []model.Category
	)
	if since == nil {
		if users, err = p.source.ReadUsers(ctx); err != nil {
			return p.fail(ctx, mode, start, result, err)
		}
		if accounts, err = p.source.ReadAccounts(ctx); err != nil {
			return p.fail(ctx, mode, start, result, err)
		}
		if categories, err = p.source.ReadCategories(ctx); err != nil {
			return p.fail(ctx, mode, start, result, err)
		}
	}

	slog.Info("Read source rows", "transactions", len(txns))

	// TRANSFORMING
	result.State = service.StateTransforming
	facts, invalid := p.transformer.Transform(txns)
	result.RowsSkipped = len(invalid)
	for _, vErr := range invalid {
		slog.Warn("Skipping invalid row",
			"transaction_id", vErr.TransactionID,
			"field", vErr.Field,
			"reason", vErr.Reason)
	}

	// LOADING
	result.State = service.StateLoading
	if since == nil {
		if err := p.refreshDimensions(ctx, users, accounts, categories); err != nil {
			return p.fail(ctx, mode, start, result, err)
		}
	}

	loaded, loadResult, err := p.loadFacts(ctx, facts, since != nil)
	result.Load = loadResult
	if err != nil {
		return p.fail(ctx, mode, start, result, err)
	}

	// AGGREGATING
	result.State = service.StateAggregating
	pairs := affectedPairs(loaded)
	if err := p.aggregate(ctx, pairs); err != nil {
		return p.fail(ctx, mode, start, result, err)
	}
	result.PairsRecomputed = len(pairs)

	// DONE
	result.State = service.StateDone
	result.Success = true
	result.Duration = time.Since(start)

	p.recordRun(ctx, mode, start, result)

	slog.Info("Pipeline run complete",
		"mode", mode,
		"rows_read", result.RowsRead,
		"inserted", result.Load.Inserted,
		"updated", result.Load.Updated,
		"skipped", result.RowsSkipped,
		"missing_date_keys", result.Load.Failed,
		"pairs_recomputed", result.PairsRecomputed,
		"duration", result.Duration)

	return result
}

// refreshDimensions replaces dim_user/dim_account/dim_category from the
// source. Full loads only.
func (p *Pipeline) refreshDimensions(ctx context.Context, users []model.User, accounts []model.Account, categories []model.Category) error {
	wtx, err := p.warehouse.BeginTx(ctx)
	if err != nil {
		return err
	}

	if err := wtx.ReplaceUsers(ctx, users); err != nil {
		_ = wtx.Rollback()
		return err
	}
	if err := wtx.ReplaceAccounts(ctx, accounts); err != nil {
		_ = wtx.Rollback()
		return err
	}
	if err := wtx.ReplaceCategories(ctx, categories); err != nil {
		_ = wtx.Rollback()
		return err
	}

	return wtx.Commit()
}

// loadFacts upserts facts in batches, each batch all-or-nothing. Facts
// whose date has no dimension row abort a full load; on incremental loads
// they are skipped and counted.
func (p *Pipeline) loadFacts(ctx context.Context, facts []model.WarehouseFact, incremental bool) ([]model.WarehouseFact, model.LoadResult, error) {
	var (
		loaded   []model.WarehouseFact
		total    model.LoadResult
		dateKeys = make(map[model.DateKey]bool)
	)

	for batchStart := 0; batchStart < len(facts); batchStart += p.batchSize {
		end := batchStart + p.batchSize
		if end > len(facts) {
			end = len(facts)
		}
		batch := facts[batchStart:end]

		wtx, err := p.warehouse.BeginTx(ctx)
		if err != nil {
			return loaded, total, err
		}

		var (
			batchLoaded []model.WarehouseFact
			batchResult model.LoadResult
		)
		err = func() error {
			for _, fact := range batch {
				known, ok := dateKeys[fact.DateKey]
				if !ok {
					known, err = wtx.DateKeyExists(ctx, fact.DateKey)
					if err != nil {
						return err
					}
					dateKeys[fact.DateKey] = known
				}
				if !known {
					if !incremental {
						return fmt.Errorf("%w: date key %d (transaction %d)",
							common.ErrMissingDateDimension, fact.DateKey, fact.TransactionID)
					}
					batchResult.Failed++
					slog.Warn("Skipping fact with missing date dimension entry",
						"transaction_id", fact.TransactionID,
						"date_key", int(fact.DateKey))
					continue
				}

				inserted, err := wtx.UpsertFact(ctx, fact)
				if err != nil {
					return err
				}
				if inserted {
					batchResult.Inserted++
				} else {
					batchResult.Updated++
				}
				batchLoaded = append(batchLoaded, fact)
			}
			return nil
		}()
		if err != nil {
			_ = wtx.Rollback()
			return loaded, total, err
		}
		if err := wtx.Commit(); err != nil {
			return loaded, total, err
		}

		total.Add(batchResult)
		loaded = append(loaded, batchLoaded...)

		if p.progress != nil {
			p.progress(service.StateLoading, end, len(facts))
		}
	}

	return loaded, total, nil
}

// aggregate recomputes summaries for every affected (user, year, month)
// pair in one transaction.
func (p *Pipeline) aggregate(ctx context.Context, pairs []model.MonthKey) error {
	if len(pairs) == 0 {
		return nil
	}

	wtx, err := p.warehouse.BeginTx(ctx)
	if err != nil {
		return err
	}

	for i, key := range pairs {
		facts, err := wtx.GetFactsForMonth(ctx, key)
		if err != nil {
			_ = wtx.Rollback()
			return err
		}

		monthly, byCategory := Summarize(key, facts)

		if err := wtx.DeleteCategorySummaries(ctx, key); err != nil {
			_ = wtx.Rollback()
			return err
		}
		if err := wtx.UpsertMonthlySummary(ctx, monthly); err != nil {
			_ = wtx.Rollback()
			return err
		}
		for _, cs := range byCategory {
			if err := wtx.UpsertCategorySummary(ctx, cs); err != nil {
				_ = wtx.Rollback()
				return err
			}
		}

		if p.progress != nil {
			p.progress(service.StateAggregating, i+1, len(pairs))
		}
	}

	return wtx.Commit()
}

// fail finalizes a run in the FAILED state. The run never raises past this
// boundary; partial success is not reported as success.
func (p *Pipeline) fail(ctx context.Context, mode string, start time.Time, result service.RunResult, err error) service.RunResult {
	failedStage := result.State
	result.State = service.StateFailed
	result.Success = false
	result.Err = err
	result.ErrorKind = common.ErrorKind(err)
	result.Duration = time.Since(start)

	slog.Error("Pipeline run failed",
		"mode", mode,
		"stage", failedStage,
		"error_kind", result.ErrorKind,
		"error", err)

	p.recordRun(ctx, mode, start, result)

	return result
}

// recordRun appends to the warehouse run log, best effort: a run-log write
// failure is logged but never changes the run's outcome.
func (p *Pipeline) recordRun(ctx context.Context, mode string, start time.Time, result service.RunResult) {
	run := &model.ETLRun{
		Mode:       mode,
		State:      string(result.State),
		RowsRead:   result.RowsRead,
		RowsLoaded: result.Load.Inserted + result.Load.Updated,
		RowsFailed: result.RowsSkipped + result.Load.Failed,
		ErrorKind:  result.ErrorKind,
		StartedAt:  start,
		FinishedAt: time.Now(),
	}
	if err := p.warehouse.RecordRun(ctx, run); err != nil {
		slog.Warn("Failed to record run", "error", err)
	}
}
