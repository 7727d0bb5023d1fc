package etl

import (
	"sort"

	"github.com/finsight/finsight/internal/model"
	"github.com/shopspring/decimal"
)

// Summarize recomputes the month's summaries from its full fact set. It
// never adjusts an existing summary, so re-running it over unchanged facts
// yields identical rows.
//
// Transfers are counted in transaction_count and the average, but carry
// zero income/expense contribution. Category summaries cover categorized
// non-transfer facts only; total_amount is the signed per-category sum.
func Summarize(key model.MonthKey, facts []model.WarehouseFact) (model.MonthlySummary, []model.CategorySummary) {
	summary := model.MonthlySummary{
		UserID:               key.UserID,
		Year:                 key.Year,
		Month:                key.Month,
		TotalIncome:          decimal.Zero,
		TotalExpenses:        decimal.Zero,
		NetCashflow:          decimal.Zero,
		AvgTransactionAmount: decimal.Zero,
	}

	type catAccum struct {
		total decimal.Decimal
		abs   decimal.Decimal
		count int
	}
	byCategory := make(map[int64]*catAccum)

	absTotal := decimal.Zero
	for _, fact := range facts {
		switch fact.Type {
		case model.TypeIncome:
			summary.TotalIncome = summary.TotalIncome.Add(fact.Amount)
		case model.TypeExpense:
			summary.TotalExpenses = summary.TotalExpenses.Add(fact.Amount)
		}

		summary.TransactionCount++
		absTotal = absTotal.Add(fact.Amount.Abs())

		if fact.CategoryID == 0 || fact.Type == model.TypeTransfer {
			continue
		}
		acc, ok := byCategory[fact.CategoryID]
		if !ok {
			acc = &catAccum{total: decimal.Zero, abs: decimal.Zero}
			byCategory[fact.CategoryID] = acc
		}
		acc.total = acc.total.Add(fact.SignedAmount())
		acc.abs = acc.abs.Add(fact.Amount.Abs())
		acc.count++
	}

	summary.NetCashflow = summary.TotalIncome.Sub(summary.TotalExpenses)
	if summary.TransactionCount > 0 {
		summary.AvgTransactionAmount = absTotal.
			Div(decimal.NewFromInt(int64(summary.TransactionCount))).
			Round(4)
	}

	categories := make([]model.CategorySummary, 0, len(byCategory))
	for categoryID, acc := range byCategory {
		categories = append(categories, model.CategorySummary{
			UserID:           key.UserID,
			CategoryID:       categoryID,
			Year:             key.Year,
			Month:            key.Month,
			TotalAmount:      acc.total,
			TransactionCount: acc.count,
			AvgAmount:        acc.abs.Div(decimal.NewFromInt(int64(acc.count))).Round(4),
		})
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].CategoryID < categories[j].CategoryID
	})

	return summary, categories
}

// affectedPairs returns the distinct (user, year, month) keys present in
// the loaded facts, in deterministic order.
func affectedPairs(facts []model.WarehouseFact) []model.MonthKey {
	seen := make(map[model.MonthKey]struct{})
	var pairs []model.MonthKey
	for _, fact := range facts {
		key := model.MonthKey{
			UserID: fact.UserID,
			Year:   fact.DateKey.Year(),
			Month:  fact.DateKey.Month(),
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		pairs = append(pairs, key)
	}

	sort.Slice(pairs, func(i, j int) bool {
		a, b := pairs[i], pairs[j]
		if a.UserID != b.UserID {
			return a.UserID < b.UserID
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return pairs
}
