package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseFact is the denormalized analytical row for one transaction.
// Uniqueness invariant: (TransactionID, DateKey) — re-loading the same
// transaction overwrites, never duplicates.
type WarehouseFact struct {
	Description   string
	MerchantName  string
	PaymentMethod string
	Type          TransactionType
	Amount        decimal.Decimal // source-positive, sign lives in Type
	TransactionID int64
	UserID        int64
	AccountID     int64
	CategoryID    int64 // 0 means uncategorized (NULL in storage)
	DateKey       DateKey
}

// SignedAmount is the fact's contribution to net cash flow: positive for
// income, negative for expense, zero for transfers (recorded verbatim but
// excluded from income/expense aggregation).
func (f WarehouseFact) SignedAmount() decimal.Decimal {
	switch f.Type {
	case TypeIncome:
		return f.Amount
	case TypeExpense:
		return f.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// MonthlySummary is one warehouse row per (UserID, Year, Month).
// Invariant: NetCashflow == TotalIncome - TotalExpenses, always; the
// aggregator recomputes rows in full, never increments them.
type MonthlySummary struct {
	TotalIncome          decimal.Decimal
	TotalExpenses        decimal.Decimal
	NetCashflow          decimal.Decimal
	AvgTransactionAmount decimal.Decimal
	UserID               int64
	Year                 int
	Month                int
	TransactionCount     int
}

// CategorySummary is one warehouse row per (UserID, CategoryID, Year, Month).
// TotalAmount is the signed sum for the category; transfers are excluded.
type CategorySummary struct {
	TotalAmount      decimal.Decimal
	AvgAmount        decimal.Decimal
	UserID           int64
	CategoryID       int64
	Year             int
	Month            int
	TransactionCount int
}

// LoadResult reports the outcome of one warehouse load batch.
type LoadResult struct {
	Inserted int
	Updated  int
	Failed   int // rows skipped for a missing date dimension entry
}

// Add accumulates another batch's result.
func (r *LoadResult) Add(other LoadResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Failed += other.Failed
}

// MonthKey identifies one (user, year, month) aggregation target.
type MonthKey struct {
	UserID int64
	Year   int
	Month  int
}

// DailyExpense is the summed expense amount for one calendar day,
// used by spike detection.
type DailyExpense struct {
	Amount  decimal.Decimal
	DateKey DateKey
}

// ETLRun is one row in the warehouse run log.
type ETLRun struct {
	StartedAt  time.Time
	FinishedAt time.Time
	Mode       string // "full" or "incremental"
	State      string
	ErrorKind  string
	ID         int64
	RowsRead   int
	RowsLoaded int
	RowsFailed int
}
