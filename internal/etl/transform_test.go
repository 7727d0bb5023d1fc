package etl

import (
	"testing"
	"time"

	"github.com/finsight/finsight/internal/model"
	"github.com/shopspring/decimal"
)

func validTransaction(id int64) model.Transaction {
	return model.Transaction{
		ID:          id,
		UserID:      1,
		AccountID:   1,
		CategoryID:  2,
		Date:        time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		Type:        model.TypeExpense,
		Amount:      decimal.NewFromInt(42),
		Description: "Coffee",
	}
}

func TestTransform(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*model.Transaction)
		wantFacts   int
		wantInvalid int
		wantField   string
	}{
		{
			name:      "valid expense",
			mutate:    func(_ *model.Transaction) {},
			wantFacts: 1,
		},
		{
			name:        "missing date",
			mutate:      func(txn *model.Transaction) { txn.Date = time.Time{} },
			wantInvalid: 1,
			wantField:   "transaction_date",
		},
		{
			name:        "unknown type",
			mutate:      func(txn *model.Transaction) { txn.Type = "refund" },
			wantInvalid: 1,
			wantField:   "transaction_type",
		},
		{
			name:        "zero amount",
			mutate:      func(txn *model.Transaction) { txn.Amount = decimal.Zero },
			wantInvalid: 1,
			wantField:   "amount",
		},
		{
			name:        "negative amount",
			mutate:      func(txn *model.Transaction) { txn.Amount = decimal.NewFromInt(-5) },
			wantInvalid: 1,
			wantField:   "amount",
		},
		{
			name:      "uncategorized passes through",
			mutate:    func(txn *model.Transaction) { txn.CategoryID = 0 },
			wantFacts: 1,
		},
	}

	transformer := NewTransformer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := validTransaction(7)
			tt.mutate(&txn)

			facts, invalid := transformer.Transform([]model.Transaction{txn})
			if len(facts) != tt.wantFacts {
				t.Errorf("got %d facts, want %d", len(facts), tt.wantFacts)
			}
			if len(invalid) != tt.wantInvalid {
				t.Fatalf("got %d invalid rows, want %d", len(invalid), tt.wantInvalid)
			}
			if tt.wantInvalid > 0 {
				if invalid[0].Field != tt.wantField {
					t.Errorf("got field %q, want %q", invalid[0].Field, tt.wantField)
				}
				if invalid[0].TransactionID != 7 {
					t.Errorf("got transaction id %d, want 7", invalid[0].TransactionID)
				}
			}
		})
	}
}

func TestTransformFactMapping(t *testing.T) {
	txn := validTransaction(11)
	facts, invalid := NewTransformer().Transform([]model.Transaction{txn})
	if len(invalid) != 0 {
		t.Fatalf("unexpected invalid rows: %v", invalid)
	}
	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}

	fact := facts[0]
	if fact.TransactionID != 11 {
		t.Errorf("transaction id = %d, want 11", fact.TransactionID)
	}
	if fact.DateKey != 20240315 {
		t.Errorf("date key = %d, want 20240315", fact.DateKey)
	}
	if !fact.Amount.Equal(txn.Amount) {
		t.Errorf("amount = %s, want %s", fact.Amount, txn.Amount)
	}
	if fact.Type != model.TypeExpense {
		t.Errorf("type = %s, want expense", fact.Type)
	}
}

func TestTransformPreservesOrderAroundSkips(t *testing.T) {
	txns := []model.Transaction{validTransaction(1), validTransaction(2), validTransaction(3)}
	txns[1].Amount = decimal.Zero // skipped

	facts, invalid := NewTransformer().Transform(txns)
	if len(facts) != 2 || len(invalid) != 1 {
		t.Fatalf("got %d facts, %d invalid; want 2, 1", len(facts), len(invalid))
	}
	if facts[0].TransactionID != 1 || facts[1].TransactionID != 3 {
		t.Errorf("fact order = [%d, %d], want [1, 3]", facts[0].TransactionID, facts[1].TransactionID)
	}
	if invalid[0].TransactionID != 2 {
		t.Errorf("invalid row id = %d, want 2", invalid[0].TransactionID)
	}
}
