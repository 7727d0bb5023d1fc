package analysis

import (
	"sort"

	"github.com/finsight/finsight/internal/model"
)

// template is one declarative factor-to-recommendation rule. Confidence
// grows with the metric's distance past the factor's threshold: 0.5 at the
// boundary, 1.0 at twice the threshold's distance, clipped to [0, 1].
type template struct {
	metric         func(*model.BehaviorProfile) float64
	title          string
	rationale      string
	expectedImpact string
	priority       model.Priority
	threshold      float64
}

var templates = map[model.RiskFactor]template{
	model.RiskNegativeCashflow: {
		priority:  model.PriorityHigh,
		title:     "Reverse the Cashflow Decline",
		rationale: "Net cash flow has fallen for three or more consecutive months. Cutting non-essential expenses or adding income sources stops the slide before reserves run down.",
		expectedImpact: "Return to a flat or positive cashflow trend " +
			"within two to three months",
		metric:    func(p *model.BehaviorProfile) float64 { return float64(p.DecliningMonths) },
		threshold: decliningRunMonths,
	},
	model.RiskHighVolatility: {
		priority:       model.PriorityHigh,
		title:          "Stabilize Your Cash Flow",
		rationale:      "Month-to-month cash flow swings widely. A monthly budget with buffer funds and automatic savings transfers smooths the variation.",
		expectedImpact: "Reduce cashflow volatility by 30-40%",
		metric:         func(p *model.BehaviorProfile) float64 { return p.VolatilityScore },
		threshold:      volatilityMediumMax,
	},
	model.RiskFrequentSpikes: {
		priority:       model.PriorityMedium,
		title:          "Manage Expense Spikes",
		rationale:      "More than one expense day in ten is an unusual spike. Spending alerts and a buffer fund for planned large purchases absorb these without disrupting the budget.",
		expectedImpact: "Reduce unexpected expense impact by 25%",
		metric:         func(p *model.BehaviorProfile) float64 { return p.SpikeFrequency },
		threshold:      spikeFrequencyMax,
	},
	model.RiskLowSavings: {
		priority:       model.PriorityMedium,
		title:          "Increase Your Savings Rate",
		rationale:      "Less than 10% of income is retained. Automating transfers on payday raises the rate without relying on month-end leftovers.",
		expectedImpact: "Raise the savings rate toward the 20% target",
		// Inverted factor: distance is how far the rate sits below the floor.
		metric:    func(p *model.BehaviorProfile) float64 { return 2*savingsRateMin - p.SavingsRate },
		threshold: savingsRateMin,
	},
	model.RiskRisingExpenses: {
		priority:       model.PriorityLow,
		title:          "Rein In Expense Growth",
		rationale:      "Average monthly expenses in the recent half of the window exceed the earlier half by more than 10%. Category trends show where the growth concentrates.",
		expectedImpact: "Reduce category spending growth by 10-15%",
		metric:         func(p *model.BehaviorProfile) float64 { return p.ExpenseGrowth },
		threshold:      expenseGrowthMax,
	},
}

// Recommender maps behavior profiles to ranked recommendations through the
// template table. It is a deterministic rules engine.
type Recommender struct{}

// NewRecommender creates a new recommender.
func NewRecommender() *Recommender {
	return &Recommender{}
}

// Generate returns one recommendation per risk factor on the profile,
// ordered by priority then descending confidence. Profiles without
// analyzable history yield no recommendations.
func (r *Recommender) Generate(profile *model.BehaviorProfile) []model.Recommendation {
	if profile == nil || profile.InsufficientData {
		return nil
	}

	recs := make([]model.Recommendation, 0, len(profile.RiskFactors))
	for _, factor := range profile.RiskFactors {
		tmpl, ok := templates[factor]
		if !ok {
			continue
		}
		recs = append(recs, model.Recommendation{
			UserID:         profile.UserID,
			Factor:         factor,
			Priority:       tmpl.priority,
			Title:          tmpl.title,
			Rationale:      tmpl.rationale,
			ExpectedImpact: tmpl.expectedImpact,
			Confidence:     confidence(tmpl.metric(profile), tmpl.threshold),
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority.Rank() < recs[j].Priority.Rank()
		}
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		return recs[i].Factor < recs[j].Factor
	})

	return recs
}

// confidence maps a metric's distance past its threshold onto [0, 1]:
// 0.5 at the boundary, saturating at twice the threshold.
func confidence(metric, threshold float64) float64 {
	if threshold == 0 {
		return 0.5
	}
	c := 0.5 + (metric-threshold)/(2*threshold)
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
