package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/etl"
	"github.com/finsight/finsight/internal/service"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the warehouse from the transactional store",
		Long: `Run the load pipeline: read source transactions, transform them into
facts, upsert them into the warehouse, and recompute summaries for the
affected months.

Without flags, sync resumes incrementally from the last successful run.
The first sync, or sync --full, loads everything and refreshes the
dimension tables.`,
		RunE: runSync,
	}

	cmd.Flags().Bool("full", false, "Force a full load")
	cmd.Flags().String("since", "", "Incremental watermark (RFC 3339 or YYYY-MM-DD), overrides the run log")
	cmd.Flags().Int("batch-size", 0, "Facts per warehouse transaction (default 500)")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	full, _ := cmd.Flags().GetBool("full")
	sinceFlag, _ := cmd.Flags().GetString("since")
	batchSize, _ := cmd.Flags().GetInt("batch-size")
	if batchSize <= 0 {
		batchSize = viper.GetInt("etl.batch_size")
	}

	ctx := cmd.Context()

	src, err := openSource()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	wh, err := openWarehouse()
	if err != nil {
		return err
	}
	defer func() { _ = wh.Close() }()

	if err := wh.Migrate(ctx); err != nil {
		return fmt.Errorf("warehouse migration failed: %w", err)
	}

	since, err := resolveWatermark(cmd, wh, full, sinceFlag)
	if err != nil {
		return err
	}

	bar := newSyncBar()
	pipeline := etl.NewWithConfig(src, wh, etl.Config{
		BatchSize: batchSize,
		Progress:  bar.update,
	})

	var result service.RunResult
	if since == nil {
		result = pipeline.RunFullLoad(ctx)
	} else {
		result = pipeline.RunIncrementalLoad(ctx, *since)
	}
	bar.finish()

	printRunResult(result)
	if !result.Success {
		return fmt.Errorf("sync failed: %w", result.Err)
	}
	return nil
}

// resolveWatermark picks the load mode: explicit flags win, otherwise the
// run log supplies the last successful run's start time. No run log entry
// means this store has never synced, so load fully.
func resolveWatermark(cmd *cobra.Command, wh service.Warehouse, full bool, sinceFlag string) (*time.Time, error) {
	if full {
		return nil, nil
	}

	if sinceFlag != "" {
		since, err := parseSince(sinceFlag)
		if err != nil {
			return nil, err
		}
		return &since, nil
	}

	last, err := wh.LastSuccessfulRun(cmd.Context())
	if errors.Is(err, common.ErrNotFound) {
		slog.Info("No previous successful run, running full load")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}

	slog.Info("Resuming from last successful run",
		"run_id", last.ID,
		"watermark", last.StartedAt)
	return &last.StartedAt, nil
}

func parseSince(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid --since value %q (want RFC 3339 or YYYY-MM-DD)", value)
}

// syncBar renders loading/aggregating progress. The bar is rebuilt when the
// pipeline moves to a new stage.
type syncBar struct {
	bar   *progressbar.ProgressBar
	stage service.RunState
}

func newSyncBar() *syncBar {
	return &syncBar{}
}

func (b *syncBar) update(stage service.RunState, done, total int) {
	if b.bar == nil || b.stage != stage {
		b.finish()
		b.stage = stage
		description := "Loading facts..."
		if stage == service.StateAggregating {
			description = "Recomputing summaries..."
		}
		b.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription(description),
		)
	}
	_ = b.bar.Set(done)
}

func (b *syncBar) finish() {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(os.Stderr)
		b.bar = nil
	}
}

func printRunResult(result service.RunResult) {
	if result.Success {
		fmt.Println(successStyle.Render("Sync complete"))
	} else {
		fmt.Println(errorStyle.Render("Sync failed") +
			mutedStyle.Render(fmt.Sprintf(" (%s at %s)", result.ErrorKind, result.State)))
	}

	fmt.Printf("  %s %d\n", mutedStyle.Render("rows read:"), result.RowsRead)
	fmt.Printf("  %s %d inserted, %d updated\n", mutedStyle.Render("facts:"),
		result.Load.Inserted, result.Load.Updated)
	if result.RowsSkipped > 0 {
		fmt.Printf("  %s %d\n", warnStyle.Render("invalid rows skipped:"), result.RowsSkipped)
	}
	if result.Load.Failed > 0 {
		fmt.Printf("  %s %d\n", warnStyle.Render("missing date keys:"), result.Load.Failed)
	}
	fmt.Printf("  %s %d\n", mutedStyle.Render("months recomputed:"), result.PairsRecomputed)
	fmt.Printf("  %s %s\n", mutedStyle.Render("duration:"), result.Duration.Round(time.Millisecond))
}
