package model

import "github.com/shopspring/decimal"

// Classification is a three-tier severity band used for both volatility
// and risk. Unknown is reserved for users with no analyzable history.
type Classification string

// Classification bands.
const (
	ClassLow     Classification = "low"
	ClassMedium  Classification = "medium"
	ClassHigh    Classification = "high"
	ClassUnknown Classification = "unknown"
)

// RiskFactor names one contributor to the composite risk score.
type RiskFactor string

// The five graded risk factors.
const (
	RiskNegativeCashflow RiskFactor = "negative_cashflow_trend"
	RiskHighVolatility   RiskFactor = "high_volatility"
	RiskFrequentSpikes   RiskFactor = "frequent_spikes"
	RiskLowSavings       RiskFactor = "low_savings"
	RiskRisingExpenses   RiskFactor = "rising_expenses"
)

// SpikeEvent is a single day whose expenses exceeded the window's
// mean by more than two standard deviations.
type SpikeEvent struct {
	Amount    decimal.Decimal
	DateKey   DateKey
	Deviation float64 // standard deviations above the mean
}

// BehaviorProfile is the derived per-user behavior signal set. It is
// returned to callers, never persisted by this core.
type BehaviorProfile struct {
	VolatilityClass  Classification
	RiskClass        Classification
	RiskFactors      []RiskFactor
	SpikeEvents      []SpikeEvent
	UserID           int64
	VolatilityScore  float64 // coefficient of variation, percent
	SpikeFrequency   float64 // spike days / expense days
	SavingsRate      float64 // percent of income retained
	ExpenseGrowth    float64 // fractional window growth rate
	RiskScore        float64 // 0-100
	MonthsAnalyzed   int
	DecliningMonths  int // longest strictly-declining net cashflow run
	LowConfidence    bool // fewer than 3 months of history
	InsufficientData bool // no monthly summaries at all
}

// HasFactor reports whether the profile carries the given risk factor.
func (p *BehaviorProfile) HasFactor(f RiskFactor) bool {
	for _, rf := range p.RiskFactors {
		if rf == f {
			return true
		}
	}
	return false
}

// Priority orders recommendations for presentation.
type Priority string

// Recommendation priorities, highest first.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns a sortable rank for the priority (lower sorts first).
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Recommendation is one ranked, explained suggestion derived from a
// behavior profile.
type Recommendation struct {
	Title          string
	Rationale      string
	ExpectedImpact string
	Priority       Priority
	Factor         RiskFactor
	UserID         int64
	Confidence     float64 // 0-1, distance past the factor's threshold
}
