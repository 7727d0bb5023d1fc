package analysis

import (
	"context"
	"testing"

	"github.com/finsight/finsight/internal/common"
	"github.com/finsight/finsight/internal/model"
	"github.com/finsight/finsight/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWarehouse serves canned summaries and daily expenses to the analyzer.
type fakeWarehouse struct {
	summaries []model.MonthlySummary
	daily     []model.DailyExpense
	readErr   error
}

func (w *fakeWarehouse) GetMonthlySummaries(_ context.Context, _ int64, limit int) ([]model.MonthlySummary, error) {
	if w.readErr != nil {
		return nil, w.readErr
	}
	if limit > 0 && len(w.summaries) > limit {
		return w.summaries[len(w.summaries)-limit:], nil
	}
	return w.summaries, nil
}

func (w *fakeWarehouse) GetDailyExpenses(_ context.Context, _ int64, _ model.DateKey) ([]model.DailyExpense, error) {
	return w.daily, nil
}

func (w *fakeWarehouse) Migrate(_ context.Context) error { return nil }
func (w *fakeWarehouse) Close() error                    { return nil }

func (w *fakeWarehouse) BeginTx(_ context.Context) (service.WarehouseTx, error) {
	return nil, common.ErrWarehouseUnavailable
}

func (w *fakeWarehouse) GetMonthlySummary(_ context.Context, _ int64, _, _ int) (*model.MonthlySummary, error) {
	return nil, common.ErrNotFound
}

func (w *fakeWarehouse) GetCategorySummaries(_ context.Context, _ int64, _, _ int) ([]model.CategorySummary, error) {
	return nil, nil
}

func (w *fakeWarehouse) RecordRun(_ context.Context, _ *model.ETLRun) error { return nil }

func (w *fakeWarehouse) LastSuccessfulRun(_ context.Context) (*model.ETLRun, error) {
	return nil, common.ErrNotFound
}

// months builds a summary series starting January 2024 with the given
// income/expense pairs.
func months(pairs ...[2]int64) []model.MonthlySummary {
	summaries := make([]model.MonthlySummary, len(pairs))
	for i, pair := range pairs {
		income := decimal.NewFromInt(pair[0])
		expenses := decimal.NewFromInt(pair[1])
		summaries[i] = model.MonthlySummary{
			UserID:        1,
			Year:          2024,
			Month:         i + 1,
			TotalIncome:   income,
			TotalExpenses: expenses,
			NetCashflow:   income.Sub(expenses),
		}
	}
	return summaries
}

func constantSeries(n int, income, expenses int64) []model.MonthlySummary {
	pairs := make([][2]int64, n)
	for i := range pairs {
		pairs[i] = [2]int64{income, expenses}
	}
	return months(pairs...)
}

func TestProfileInsufficientData(t *testing.T) {
	wh := &fakeWarehouse{}
	profile, err := New(wh).Profile(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, profile.InsufficientData)
	assert.Equal(t, model.ClassUnknown, profile.RiskClass)
	assert.Equal(t, model.ClassUnknown, profile.VolatilityClass)
	assert.Zero(t, profile.RiskScore)
	assert.Zero(t, profile.MonthsAnalyzed)
}

func TestProfileLowConfidenceWithShortHistory(t *testing.T) {
	wh := &fakeWarehouse{summaries: constantSeries(2, 5000, 3000)}
	profile, err := New(wh).Profile(context.Background(), 1)
	require.NoError(t, err)

	assert.False(t, profile.InsufficientData)
	assert.True(t, profile.LowConfidence)
	assert.Equal(t, 2, profile.MonthsAnalyzed)
}

func TestProfileConstantCashflowIsLowVolatility(t *testing.T) {
	// Net 500 every month for a year: CV is exactly 0.
	wh := &fakeWarehouse{summaries: constantSeries(12, 5000, 4500)}
	profile, err := New(wh).Profile(context.Background(), 1)
	require.NoError(t, err)

	assert.InDelta(t, 0.0, profile.VolatilityScore, 1e-9)
	assert.Equal(t, model.ClassLow, profile.VolatilityClass)
	assert.False(t, profile.LowConfidence)
	assert.NotContains(t, profile.RiskFactors, model.RiskHighVolatility)
}

func TestProfileAlternatingCashflowIsHighVolatility(t *testing.T) {
	pairs := make([][2]int64, 12)
	for i := range pairs {
		if i%2 == 0 {
			pairs[i] = [2]int64{4000, 2000} // net +2000
		} else {
			pairs[i] = [2]int64{2000, 4000} // net -2000
		}
	}
	wh := &fakeWarehouse{summaries: months(pairs...)}
	profile, err := New(wh).Profile(context.Background(), 1)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, profile.VolatilityScore, 50.0)
	assert.Equal(t, model.ClassHigh, profile.VolatilityClass)
	assert.True(t, profile.HasFactor(model.RiskHighVolatility))
}

func TestProfileSpikeDetection(t *testing.T) {
	// 29 ordinary days and one outlier: exactly the outlier is flagged.
	var daily []model.DailyExpense
	for day := 1; day <= 29; day++ {
		daily = append(daily, model.DailyExpense{
			DateKey: model.DateKey(20240300 + day),
			Amount:  decimal.NewFromInt(100),
		})
	}
	daily = append(daily, model.DailyExpense{
		DateKey: 20240330,
		Amount:  decimal.NewFromInt(500),
	})

	wh := &fakeWarehouse{
		summaries: constantSeries(12, 5000, 3000),
		daily:     daily,
	}
	profile, err := New(wh).Profile(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, profile.SpikeEvents, 1)
	spike := profile.SpikeEvents[0]
	assert.Equal(t, model.DateKey(20240330), spike.DateKey)
	assert.True(t, spike.Amount.Equal(decimal.NewFromInt(500)))
	assert.Greater(t, spike.Deviation, 2.0)
	assert.InDelta(t, 1.0/30.0, profile.SpikeFrequency, 1e-9)
}

func TestProfileFlatDailyExpensesHaveNoSpikes(t *testing.T) {
	var daily []model.DailyExpense
	for day := 1; day <= 10; day++ {
		daily = append(daily, model.DailyExpense{
			DateKey: model.DateKey(20240300 + day),
			Amount:  decimal.NewFromInt(100),
		})
	}
	wh := &fakeWarehouse{
		summaries: constantSeries(12, 5000, 3000),
		daily:     daily,
	}
	profile, err := New(wh).Profile(context.Background(), 1)
	require.NoError(t, err)

	assert.Empty(t, profile.SpikeEvents)
	assert.Zero(t, profile.SpikeFrequency)
}

func TestProfileSavingsRate(t *testing.T) {
	// 5000 in, 4000 out: 20% retained.
	wh := &fakeWarehouse{summaries: constantSeries(6, 5000, 4000)}
	profile, err := New(wh).Profile(context.Background(), 1)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, profile.SavingsRate, 1e-9)
	assert.False(t, profile.HasFactor(model.RiskLowSavings))
}

func TestProfileZeroIncomeSavingsRate(t *testing.T) {
	wh := &fakeWarehouse{summaries: constantSeries(6, 0, 1000)}
	profile, err := New(wh).Profile(context.Background(), 1)
	require.NoError(t, err)

	assert.Zero(t, profile.SavingsRate)
	assert.True(t, profile.HasFactor(model.RiskLowSavings))
}

func TestProfileDecliningCashflowAndRisingExpenses(t *testing.T) {
	wh := &fakeWarehouse{summaries: months(
		[2]int64{5000, 2000}, // net 3000
		[2]int64{5000, 3000}, // net 2000
		[2]int64{5000, 4000}, // net 1000
		[2]int64{5000, 4500}, // net 500
	)}
	profile, err := New(wh).Profile(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 4, profile.DecliningMonths)
	assert.True(t, profile.HasFactor(model.RiskNegativeCashflow))
	// Second half (4000, 4500) well above first half (2000, 3000).
	assert.Greater(t, profile.ExpenseGrowth, 0.1)
	assert.True(t, profile.HasFactor(model.RiskRisingExpenses))
	assert.InDelta(t, float64(len(profile.RiskFactors))*20, profile.RiskScore, 1e-9)
}

func TestRiskClassThresholds(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		want  model.Classification
	}{
		{"no factors", 0, model.ClassLow},
		{"one factor", 20, model.ClassLow},
		{"two factors", 40, model.ClassMedium},
		{"three factors", 60, model.ClassMedium},
		{"four factors", 80, model.ClassHigh},
		{"five factors", 100, model.ClassHigh},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyRisk(tt.score))
		})
	}
}

func TestProfileWarehouseErrorPropagates(t *testing.T) {
	wh := &fakeWarehouse{readErr: common.ErrWarehouseUnavailable}
	_, err := New(wh).Profile(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrWarehouseUnavailable)
}

func TestSampleStddev(t *testing.T) {
	assert.Zero(t, sampleStddev(nil))
	assert.Zero(t, sampleStddev([]float64{5}))
	// Known series: stddev of {2, 4, 4, 4, 5, 5, 7, 9} with n-1 is ~2.138.
	got := sampleStddev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 2.138, got, 0.001)
}

func TestLongestDecliningRun(t *testing.T) {
	tests := []struct {
		name string
		nets []float64
		want int
	}{
		{"empty", nil, 0},
		{"single", []float64{100}, 1},
		{"flat", []float64{100, 100, 100}, 1},
		{"alternating", []float64{100, 50, 100, 50}, 2},
		{"full decline", []float64{400, 300, 200, 100}, 4},
		{"decline at end", []float64{100, 200, 150, 100, 50}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, longestDecliningRun(tt.nets))
		})
	}
}
