// Package analysis derives per-user behavior signals from the warehouse
// summaries and maps them to ranked recommendations. Both halves are
// stateless transforms; nothing here is persisted.
package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/finsight/finsight/internal/model"
	"github.com/finsight/finsight/internal/service"
	"github.com/shopspring/decimal"
)

// Classification thresholds.
const (
	volatilityLowMax    = 20.0 // CV below this is low volatility
	volatilityMediumMax = 50.0
	riskLowMax          = 33.0
	riskMediumMax       = 66.0

	spikeThresholdSigma = 2.0
	spikeFrequencyMax   = 0.1  // spike days / expense days
	savingsRateMin      = 10.0 // percent
	expenseGrowthMax    = 0.1  // fractional window growth

	riskFactorWeight = 20.0 // five equally weighted factors on 0-100

	defaultWindowMonths = 12
	lowConfidenceMonths = 3
	decliningRunMonths  = 3
)

// Analyzer computes behavior profiles from warehouse summaries.
type Analyzer struct {
	warehouse    service.Warehouse
	windowMonths int
}

// New creates an analyzer over the default 12-month window.
func New(wh service.Warehouse) *Analyzer {
	return NewWithWindow(wh, defaultWindowMonths)
}

// NewWithWindow creates an analyzer over a custom window length.
func NewWithWindow(wh service.Warehouse, windowMonths int) *Analyzer {
	if windowMonths <= 0 {
		windowMonths = defaultWindowMonths
	}
	return &Analyzer{warehouse: wh, windowMonths: windowMonths}
}

// Profile computes the user's behavior profile over the analysis window.
// A user with no monthly summaries gets a profile with InsufficientData
// set and both classes unknown; short history degrades to LowConfidence.
// Only a warehouse failure returns an error.
func (a *Analyzer) Profile(ctx context.Context, userID int64) (*model.BehaviorProfile, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summaries, err := a.warehouse.GetMonthlySummaries(ctx, userID, a.windowMonths)
	if err != nil {
		return nil, fmt.Errorf("loading monthly summaries: %w", err)
	}

	profile := &model.BehaviorProfile{
		UserID:          userID,
		VolatilityClass: model.ClassUnknown,
		RiskClass:       model.ClassUnknown,
		MonthsAnalyzed:  len(summaries),
	}

	if len(summaries) == 0 {
		profile.InsufficientData = true
		return profile, nil
	}
	profile.LowConfidence = len(summaries) < lowConfidenceMonths

	nets := make([]float64, len(summaries))
	for i, s := range summaries {
		nets[i] = s.NetCashflow.InexactFloat64()
	}

	profile.VolatilityScore = coefficientOfVariation(nets)
	profile.VolatilityClass = classifyVolatility(profile.VolatilityScore)

	windowStart := model.DateKey(summaries[0].Year*10000 + summaries[0].Month*100 + 1)
	daily, err := a.warehouse.GetDailyExpenses(ctx, userID, windowStart)
	if err != nil {
		return nil, fmt.Errorf("loading daily expenses: %w", err)
	}
	profile.SpikeEvents, profile.SpikeFrequency = detectSpikes(daily)

	profile.SavingsRate = savingsRate(summaries)
	profile.ExpenseGrowth = expenseGrowth(summaries)

	a.scoreRisk(profile, nets)

	return profile, nil
}

// coefficientOfVariation is the sample standard deviation of the series
// over the mean of its absolute values, as a percentage. A flat or
// all-zero series scores zero.
func coefficientOfVariation(nets []float64) float64 {
	meanAbs := 0.0
	for _, v := range nets {
		meanAbs += math.Abs(v)
	}
	meanAbs /= float64(len(nets))
	if meanAbs == 0 {
		return 0
	}
	return sampleStddev(nets) / meanAbs * 100
}

func classifyVolatility(cv float64) model.Classification {
	switch {
	case cv < volatilityLowMax:
		return model.ClassLow
	case cv < volatilityMediumMax:
		return model.ClassMedium
	default:
		return model.ClassHigh
	}
}

// detectSpikes flags days whose expenses exceed the window mean by more
// than two standard deviations, and returns the spike-day fraction.
func detectSpikes(daily []model.DailyExpense) ([]model.SpikeEvent, float64) {
	if len(daily) == 0 {
		return nil, 0
	}

	amounts := make([]float64, len(daily))
	for i, d := range daily {
		amounts[i] = d.Amount.InexactFloat64()
	}
	m := mean(amounts)
	sd := sampleStddev(amounts)
	threshold := m + spikeThresholdSigma*sd

	var spikes []model.SpikeEvent
	for i, d := range daily {
		if amounts[i] <= threshold || sd == 0 {
			continue
		}
		spikes = append(spikes, model.SpikeEvent{
			DateKey:   d.DateKey,
			Amount:    d.Amount,
			Deviation: (amounts[i] - m) / sd,
		})
	}

	return spikes, float64(len(spikes)) / float64(len(daily))
}

// savingsRate is the percentage of window income retained, exact over the
// decimal totals. Zero income means a zero rate, never a division error.
func savingsRate(summaries []model.MonthlySummary) float64 {
	income := decimal.Zero
	expenses := decimal.Zero
	for _, s := range summaries {
		income = income.Add(s.TotalIncome)
		expenses = expenses.Add(s.TotalExpenses)
	}
	if income.IsZero() {
		return 0
	}
	return income.Sub(expenses).Div(income).InexactFloat64() * 100
}

// expenseGrowth compares mean monthly expenses between the window's two
// halves, as a fractional growth rate.
func expenseGrowth(summaries []model.MonthlySummary) float64 {
	if len(summaries) < 2 {
		return 0
	}

	expenses := make([]float64, len(summaries))
	for i, s := range summaries {
		expenses[i] = s.TotalExpenses.InexactFloat64()
	}
	mid := len(expenses) / 2
	first := mean(expenses[:mid])
	second := mean(expenses[mid:])
	if first == 0 {
		return 0
	}
	return (second - first) / first
}

// scoreRisk grades the five factors, each worth an equal share of the
// 0-100 score.
func (a *Analyzer) scoreRisk(profile *model.BehaviorProfile, nets []float64) {
	profile.DecliningMonths = longestDecliningRun(nets)
	if profile.DecliningMonths >= decliningRunMonths {
		profile.RiskFactors = append(profile.RiskFactors, model.RiskNegativeCashflow)
	}
	if profile.VolatilityClass == model.ClassHigh {
		profile.RiskFactors = append(profile.RiskFactors, model.RiskHighVolatility)
	}
	if profile.SpikeFrequency > spikeFrequencyMax {
		profile.RiskFactors = append(profile.RiskFactors, model.RiskFrequentSpikes)
	}
	if profile.SavingsRate < savingsRateMin {
		profile.RiskFactors = append(profile.RiskFactors, model.RiskLowSavings)
	}
	if profile.ExpenseGrowth > expenseGrowthMax {
		profile.RiskFactors = append(profile.RiskFactors, model.RiskRisingExpenses)
	}

	profile.RiskScore = float64(len(profile.RiskFactors)) * riskFactorWeight
	profile.RiskClass = classifyRisk(profile.RiskScore)
}

func classifyRisk(score float64) model.Classification {
	switch {
	case score < riskLowMax:
		return model.ClassLow
	case score < riskMediumMax:
		return model.ClassMedium
	default:
		return model.ClassHigh
	}
}

// longestDecliningRun returns the length in months of the longest strictly
// declining stretch of net cash flow. A single month counts as a run of one.
func longestDecliningRun(nets []float64) int {
	if len(nets) == 0 {
		return 0
	}
	longest, run := 1, 1
	for i := 1; i < len(nets); i++ {
		if nets[i] < nets[i-1] {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// sampleStddev is the n-1 standard deviation; series shorter than two
// entries score zero.
func sampleStddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
