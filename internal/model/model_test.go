package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateKeyRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want DateKey
	}{
		{"mid month", time.Date(2024, 3, 15, 13, 45, 0, 0, time.UTC), 20240315},
		{"month boundary", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 20240101},
		{"year end", time.Date(2035, 12, 31, 23, 59, 59, 0, time.UTC), 20351231},
		{"local time zone ignored", time.Date(2024, 6, 2, 1, 0, 0, 0, time.FixedZone("X", -7*3600)), 20240602},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := NewDateKey(tt.date)
			if key != tt.want {
				t.Errorf("NewDateKey = %d, want %d", key, tt.want)
			}
			if key.Year() != tt.want.Year() || key.Month() != int(tt.date.Month()) {
				t.Errorf("components: year %d month %d", key.Year(), key.Month())
			}
			back := key.Time()
			if back.Year() != tt.date.Year() || back.Month() != tt.date.Month() || back.Day() != tt.date.Day() {
				t.Errorf("Time() = %v, want same calendar date as %v", back, tt.date)
			}
		})
	}
}

func TestSignedAmount(t *testing.T) {
	amount := decimal.NewFromInt(100)

	tests := []struct {
		name   string
		txType TransactionType
		want   string
	}{
		{"income is positive", TypeIncome, "100"},
		{"expense is negative", TypeExpense, "-100"},
		{"transfer is zero", TypeTransfer, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fact := WarehouseFact{Type: tt.txType, Amount: amount}
			if got := fact.SignedAmount().String(); got != tt.want {
				t.Errorf("SignedAmount = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTransactionTypeValid(t *testing.T) {
	for _, valid := range []TransactionType{TypeIncome, TypeExpense, TypeTransfer} {
		if !valid.Valid() {
			t.Errorf("%s should be valid", valid)
		}
	}
	for _, invalid := range []TransactionType{"", "refund", "INCOME"} {
		if invalid.Valid() {
			t.Errorf("%q should be invalid", invalid)
		}
	}
}

func TestPriorityRank(t *testing.T) {
	if !(PriorityHigh.Rank() < PriorityMedium.Rank() && PriorityMedium.Rank() < PriorityLow.Rank()) {
		t.Error("priority ranks are not ordered high < medium < low")
	}
}
