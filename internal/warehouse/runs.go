package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/model"
)

// RecordRun appends one row to the run log.
func (w *Warehouse) RecordRun(ctx context.Context, run *model.ETLRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}

	var errorKind any
	if run.ErrorKind != "" {
		errorKind = run.ErrorKind
	}

	res, err := w.db.ExecContext(ctx, `
		INSERT INTO etl_runs (
			mode, state, rows_read, rows_loaded, rows_failed,
			error_kind, started_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.Mode, run.State, run.RowsRead, run.RowsLoaded, run.RowsFailed,
		errorKind, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("%w: recording run: %v", common.ErrWarehouseUnavailable, err)
	}

	if id, err := res.LastInsertId(); err == nil {
		run.ID = id
	}
	return nil
}

// LastSuccessfulRun returns the most recent DONE run, or common.ErrNotFound
// when no load has ever succeeded. Its start time is the next incremental
// load's watermark.
func (w *Warehouse) LastSuccessfulRun(ctx context.Context) (*model.ETLRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		run       model.ETLRun
		errorKind sql.NullString
	)
	err := w.db.QueryRowContext(ctx, `
		SELECT run_id, mode, state, rows_read, rows_loaded, rows_failed,
		       error_kind, started_at, finished_at
		FROM etl_runs
		WHERE state = 'DONE'
		ORDER BY started_at DESC, run_id DESC
		LIMIT 1
	`).Scan(
		&run.ID, &run.Mode, &run.State, &run.RowsRead, &run.RowsLoaded,
		&run.RowsFailed, &errorKind, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: querying run log: %v", common.ErrWarehouseUnavailable, err)
	}

	run.ErrorKind = errorKind.String
	return &run, nil
}
