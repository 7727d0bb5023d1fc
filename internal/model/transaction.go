// Package model defines the record types shared across the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes how a transaction moves money.
type TransactionType string

// Transaction types as stored in the transactional database.
const (
	TypeIncome   TransactionType = "income"
	TypeExpense  TransactionType = "expense"
	TypeTransfer TransactionType = "transfer"
)

// Valid reports whether the type is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer:
		return true
	}
	return false
}

// Transaction represents a single financial transaction in the
// transactional store. Amount is always non-negative at the source;
// sign is derived from Type during transformation.
type Transaction struct {
	Date          time.Time
	CreatedAt     time.Time
	Description   string
	MerchantName  string
	PaymentMethod string
	ExternalID    string // statement-provided id, used for import dedup
	Type          TransactionType
	Amount        decimal.Decimal
	ID            int64
	UserID        int64
	AccountID     int64
	CategoryID    int64 // 0 means uncategorized
}

// User is a transactional-store dimension row.
type User struct {
	CreatedAt time.Time
	Username  string
	Email     string
	ID        int64
}

// Account is a transactional-store dimension row.
type Account struct {
	Name     string
	Type     string
	Currency string
	ID       int64
	UserID   int64
}

// Category is a transactional-store dimension row.
type Category struct {
	Name     string
	Type     string
	ID       int64
	UserID   int64
	ParentID int64 // 0 means top-level
}
