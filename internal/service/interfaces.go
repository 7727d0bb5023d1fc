// Package service defines the interfaces between the pipeline and its stores.
package service

import (
	"context"
	"time"

	"github.com/finsight/finsight/internal/model"
)

// SourceReader is the read-only view over the transactional store. When
// since is nil the full table is returned; otherwise only rows created or
// updated after the watermark. Implementations must not mutate source state.
type SourceReader interface {
	ReadTransactions(ctx context.Context, since *time.Time) ([]model.Transaction, error)
	ReadUsers(ctx context.Context) ([]model.User, error)
	ReadAccounts(ctx context.Context) ([]model.Account, error)
	ReadCategories(ctx context.Context) ([]model.Category, error)
}

// Warehouse is the analytical store. All fact and summary writes happen
// inside a WarehouseTx; reads used by the analyzer run outside one.
type Warehouse interface {
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (WarehouseTx, error)

	// Analyzer reads.
	GetMonthlySummaries(ctx context.Context, userID int64, limit int) ([]model.MonthlySummary, error)
	GetMonthlySummary(ctx context.Context, userID int64, year, month int) (*model.MonthlySummary, error)
	GetCategorySummaries(ctx context.Context, userID int64, year, month int) ([]model.CategorySummary, error)
	GetDailyExpenses(ctx context.Context, userID int64, from model.DateKey) ([]model.DailyExpense, error)

	// Run log.
	RecordRun(ctx context.Context, run *model.ETLRun) error
	LastSuccessfulRun(ctx context.Context) (*model.ETLRun, error)

	Close() error
}

// WarehouseTx scopes one batch of warehouse writes. A failure mid-batch
// rolls back the whole batch so the aggregator never observes a partial
// write.
type WarehouseTx interface {
	Commit() error
	Rollback() error

	// DateKeyExists reports whether dim_date has a row for the key.
	DateKeyExists(ctx context.Context, key model.DateKey) (bool, error)

	// UpsertFact writes one fact keyed on (transaction_id, date_key) and
	// reports whether the row was newly inserted.
	UpsertFact(ctx context.Context, fact model.WarehouseFact) (inserted bool, err error)

	// GetFactsForMonth returns every fact for the aggregation target,
	// ordered by date key then transaction id.
	GetFactsForMonth(ctx context.Context, key model.MonthKey) ([]model.WarehouseFact, error)

	UpsertMonthlySummary(ctx context.Context, summary model.MonthlySummary) error
	UpsertCategorySummary(ctx context.Context, summary model.CategorySummary) error

	// DeleteCategorySummaries clears the month's category rows before a
	// recompute so categories that vanished from the facts don't linger.
	DeleteCategorySummaries(ctx context.Context, key model.MonthKey) error

	// Dimension replacement, used by full loads only.
	ReplaceUsers(ctx context.Context, users []model.User) error
	ReplaceAccounts(ctx context.Context, accounts []model.Account) error
	ReplaceCategories(ctx context.Context, categories []model.Category) error
}

// RunState tracks pipeline progress through its stages.
type RunState string

// Pipeline states. FAILED is terminal and reachable from any non-idle state.
const (
	StateIdle         RunState = "IDLE"
	StateReading      RunState = "READING"
	StateTransforming RunState = "TRANSFORMING"
	StateLoading      RunState = "LOADING"
	StateAggregating  RunState = "AGGREGATING"
	StateDone         RunState = "DONE"
	StateFailed       RunState = "FAILED"
)

// RunResult is the structured status of one pipeline run. A failed run is
// reported here, never raised past the orchestrator boundary.
type RunResult struct {
	Err             error
	State           RunState
	ErrorKind       string
	Load            model.LoadResult
	Duration        time.Duration
	RowsRead        int
	RowsSkipped     int // rows dropped by transform validation
	PairsRecomputed int
	Success         bool
}
